package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nicer/internal/config"
)

type initConfigFlags struct {
	output string
	force  bool
}

func newInitConfigCmd() *cobra.Command {
	f := &initConfigFlags{}
	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write the default configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := config.Marshal(config.Default())
			if err != nil {
				return err
			}
			if f.output == "" || f.output == "-" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if _, err := os.Stat(f.output); err == nil && !f.force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", f.output)
			}
			if err := os.WriteFile(f.output, data, 0644); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config: %s\n", f.output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output path; stdout when empty or -")
	cmd.Flags().BoolVar(&f.force, "force", false, "Overwrite an existing file")
	return cmd
}
