package xcm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrIncompleteOutput is returned when a result file lacks required lines,
// usually because XSPEC stopped before the script finished.
var ErrIncompleteOutput = errors.New("incomplete xspec output")

// ParamLine is one "par" line of a fit result file.
type ParamLine struct {
	Index   int
	Name    string
	Unit    string
	Value   float64
	ErrLow  float64
	ErrHigh float64
	Frozen  bool
}

// FitOutput is the parsed fit result file.
type FitOutput struct {
	Params     []ParamLine
	StatMethod string
	Statistic  float64
	DOF        int
}

// FluxOutput is the parsed flux result file.
type FluxOutput struct {
	Flux, FluxLow, FluxHigh                   float64
	PhotonFlux, PhotonFluxLow, PhotonFluxHigh float64
}

// ParseFit reads the file written by the fit script.
func ParseFit(r io.Reader) (*FitOutput, error) {
	out := &FitOutput{}
	sawStat := false
	err := scanFields(r, func(lineNo int, f []string) error {
		switch f[0] {
		case "par":
			if len(f) < 8 {
				return fmt.Errorf("line %d: par wants 8 fields, got %d", lineNo, len(f))
			}
			p := ParamLine{Name: f[2], Unit: f[3]}
			var err error
			if p.Index, err = strconv.Atoi(f[1]); err != nil {
				return fmt.Errorf("line %d: index: %w", lineNo, err)
			}
			nums, err := parseFloats(f[4:7])
			if err != nil {
				return fmt.Errorf("line %d: %w", lineNo, err)
			}
			p.Value, p.ErrLow, p.ErrHigh = nums[0], nums[1], nums[2]
			p.Frozen = f[7] == "1"
			out.Params = append(out.Params, p)
		case "stat":
			if len(f) < 4 {
				return fmt.Errorf("line %d: stat wants 4 fields, got %d", lineNo, len(f))
			}
			out.StatMethod = f[1]
			v, err := strconv.ParseFloat(f[2], 64)
			if err != nil {
				return fmt.Errorf("line %d: statistic: %w", lineNo, err)
			}
			dof, err := strconv.Atoi(f[3])
			if err != nil {
				return fmt.Errorf("line %d: dof: %w", lineNo, err)
			}
			out.Statistic, out.DOF = v, dof
			sawStat = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out.Params) == 0 || !sawStat {
		return nil, fmt.Errorf("%w: %d params, stat line present=%v", ErrIncompleteOutput, len(out.Params), sawStat)
	}
	return out, nil
}

// ParseFlux reads the file written by the flux script.
func ParseFlux(r io.Reader) (*FluxOutput, error) {
	var out *FluxOutput
	err := scanFields(r, func(lineNo int, f []string) error {
		if f[0] != "flux" {
			return nil
		}
		if len(f) < 7 {
			return fmt.Errorf("line %d: flux wants 7 fields, got %d", lineNo, len(f))
		}
		nums, err := parseFloats(f[1:7])
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		out = &FluxOutput{
			Flux: nums[0], FluxLow: nums[1], FluxHigh: nums[2],
			PhotonFlux: nums[3], PhotonFluxLow: nums[4], PhotonFluxHigh: nums[5],
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("%w: no flux line", ErrIncompleteOutput)
	}
	return out, nil
}

// FormatFit renders a fit result file in the format the fit script writes.
func FormatFit(o *FitOutput) string {
	var b strings.Builder
	for _, p := range o.Params {
		frozen := 0
		if p.Frozen {
			frozen = 1
		}
		fmt.Fprintf(&b, "par\t%d\t%s\t%s\t%g\t%g\t%g\t%d\n", p.Index, p.Name, p.Unit, p.Value, p.ErrLow, p.ErrHigh, frozen)
	}
	fmt.Fprintf(&b, "stat\t%s\t%g\t%d\n", o.StatMethod, o.Statistic, o.DOF)
	return b.String()
}

// FormatFlux renders a flux result file in the format the flux script writes.
func FormatFlux(o *FluxOutput) string {
	return fmt.Sprintf("flux\t%g\t%g\t%g\t%g\t%g\t%g\n",
		o.Flux, o.FluxLow, o.FluxHigh, o.PhotonFlux, o.PhotonFluxLow, o.PhotonFluxHigh)
}

func scanFields(r io.Reader, fn func(lineNo int, fields []string) error) error {
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		if err := fn(lineNo, fields); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan xspec output: %w", err)
	}
	return nil
}

func parseFloats(ss []string) ([]float64, error) {
	out := make([]float64, len(ss))
	for i, s := range ss {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}
