package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"captionburn/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	var savePath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration after merging defaults, the config file and flags.

Config files are searched in order:
  1. ./captionburn.yaml, ./captionburn.yml, ./captionburn.toml
  2. ~/.captionburn/config.{yaml,yml,toml}
  3. /etc/captionburn/config.{yaml,yml,toml}

Priority: CLI flags > Config file > Defaults`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if savePath == "" {
				cfg.WriteTable(out)
				return nil
			}

			if !overwrite {
				if _, err := os.Stat(savePath); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", savePath)
				}
			}
			if err := config.SaveConfigFile(cfg, savePath); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote configuration to %s\n", savePath)
			return nil
		},
	}

	cmd.Flags().StringVar(&savePath, "save", "", "Write the effective configuration to a .yaml or .toml file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")

	return cmd
}
