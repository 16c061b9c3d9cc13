// Package xcm renders XSPEC command scripts and parses the tab-separated
// result files those scripts write.
package xcm

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// Kind selects the script family.
type Kind string

const (
	Fit  Kind = "fit"
	Flux Kind = "flux"
)

// OverrideName is the template file looked up in the script directory.
func OverrideName(k Kind) string {
	return string(k) + ".xcm.tmpl"
}

// Data names the spectral files loaded by every script.
type Data struct {
	Spectrum   string
	Background string
	RMF        string
	ARF        string
}

// InitialValue is one newpar command.
type InitialValue struct {
	Index int
	Value string
}

// FitParams feeds the fit script.
type FitParams struct {
	Data
	Model       string
	Statistic   string
	EnergyRange string
	Initial     []InitialValue
	OutFile     string // result file, relative to the working dir
	ModelFile   string // saved model for the flux stage
}

// FluxParams feeds the flux script.
type FluxParams struct {
	Data
	EnergyRange string
	ModelFile   string
	EMin        float64
	EMax        float64
	ErrorTrials int
	OutFile     string
}

var funcMap = template.FuncMap{
	"tclquote": tclQuote,
}

// Render executes the script template for k. A file named OverrideName(k)
// in scriptDir replaces the built-in template.
func Render(k Kind, scriptDir string, params any) (string, error) {
	tmplStr, name, err := source(k, scriptDir)
	if err != nil {
		return "", err
	}
	tmpl, err := template.New(name).Funcs(funcMap).Option("missingkey=error").Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

func source(k Kind, scriptDir string) (string, string, error) {
	if scriptDir != "" {
		path := filepath.Join(scriptDir, OverrideName(k))
		data, err := os.ReadFile(path)
		if err == nil {
			return string(data), path, nil
		}
		if !os.IsNotExist(err) {
			return "", "", fmt.Errorf("read template %s: %w", path, err)
		}
	}
	switch k {
	case Fit:
		return fitTemplate, "fit", nil
	case Flux:
		return fluxTemplate, "flux", nil
	}
	return "", "", fmt.Errorf("no template for %q", k)
}

// tclQuote wraps a path in braces so spaces survive Tcl parsing.
func tclQuote(s string) string {
	if strings.ContainsAny(s, " \t{}") {
		return "{" + s + "}"
	}
	return s
}

const fitTemplate = `query yes
chatter 5
statistic {{.Statistic}}
data 1:1 {{tclquote .Spectrum}}
backgrnd 1 {{tclquote .Background}}
response 1 {{tclquote .RMF}}
arf 1 {{tclquote .ARF}}
ignore {{.EnergyRange}}
ignore bad
model {{.Model}} & /*
{{- range .Initial}}
newpar {{.Index}} {{.Value}}
{{- end}}
fit 1000
set fp [open {{tclquote .OutFile}} w]
tclout modpar
set npar $xspec_tclout
for {set i 1} {$i <= $npar} {incr i} {
  tclout pinfo $i
  set pname [lindex $xspec_tclout 0]
  set punit [lindex $xspec_tclout 1]
  tclout param $i
  set pval [lindex $xspec_tclout 0]
  set pdelta [lindex $xspec_tclout 1]
  set frozen [expr {$pdelta < 0 ? 1 : 0}]
  set elo 0
  set ehi 0
  if {!$frozen} {
    error 2.706 $i
    tclout error $i
    set elo [lindex $xspec_tclout 0]
    set ehi [lindex $xspec_tclout 1]
  }
  puts $fp "par\t$i\t$pname\t$punit\t$pval\t$elo\t$ehi\t$frozen"
}
tclout stat
set sval $xspec_tclout
tclout dof
puts $fp "stat\t{{.Statistic}}\t$sval\t[lindex $xspec_tclout 0]"
close $fp
save model {{tclquote .ModelFile}}
exit
`

const fluxTemplate = `query yes
chatter 5
data 1:1 {{tclquote .Spectrum}}
backgrnd 1 {{tclquote .Background}}
response 1 {{tclquote .RMF}}
arf 1 {{tclquote .ARF}}
ignore {{.EnergyRange}}
ignore bad
@{{.ModelFile}}
{{- if gt .ErrorTrials 0}}
flux {{.EMin}} {{.EMax}} err {{.ErrorTrials}} 90
{{- else}}
flux {{.EMin}} {{.EMax}}
{{- end}}
tclout flux 1
set fp [open {{tclquote .OutFile}} w]
puts $fp "flux\t[join $xspec_tclout \t]"
close $fp
exit
`
