package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/platformbuilds/delivery-hours/internal/config"
)

const redacted = "********"

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Work with service configuration files",
	}

	var quiet bool
	check := &cobra.Command{
		Use:   "check [file]",
		Short: "Load a config file the way the server does and print the effective settings",
		Long: `Loads the file together with environment overrides and secrets, runs the
server's validation and prints the merged result. Without a file the default
search path (./config.yaml, ./configs/, /etc/delivery-hours/) is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ConfigFilePath()
			if len(args) == 1 {
				path = args[0]
			}
			cfg, err := config.LoadFile(path)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if quiet {
				fmt.Fprintln(w, "configuration OK")
				return nil
			}
			if cfg.Cache.Password != "" {
				cfg.Cache.Password = redacted
			}
			if u, err := url.Parse(cfg.Cache.URL); err == nil {
				cfg.Cache.URL = u.Redacted()
			}
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}
	check.Flags().BoolVarP(&quiet, "quiet", "q", false, "only report whether the configuration is valid")

	cmd.AddCommand(check)
	return cmd
}
