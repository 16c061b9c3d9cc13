package main

import (
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "nicer",
		Short: "NICER X-ray observation pipeline",
		Long: "nicer reduces NICER observations with nicerl2 and nicerl3-spect,\n" +
			"fits spectral models and computes fluxes with XSPEC, and plots the\n" +
			"results across observations.",
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "Config file (YAML or JSON); default ./"+defaultConfigName+" when present")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides config")
	pf.StringVar(&g.logFormat, "log-format", "", "Log format (text, json); overrides config")

	for _, name := range stageNames {
		root.AddCommand(newStageCmd(g, name))
	}
	root.AddCommand(newRunCmd(g))
	root.AddCommand(newStatusCmd(g))
	root.AddCommand(newSummaryCmd(g))
	root.AddCommand(newInitConfigCmd())
	return root
}
