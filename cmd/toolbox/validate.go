package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/txn2/mcp-toolbox/pkg/platform"
	"github.com/txn2/mcp-toolbox/pkg/registry"
	"github.com/txn2/mcp-toolbox/pkg/tools"
)

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a tools file without connecting to any source",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := setupLogging(cmd); err != nil {
				return err
			}
			path, _ := cmd.Flags().GetString("tools-file")
			summary, err := validateToolsFile(path)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().String("tools-file", defaultToolsFile, "Path to the tools file (.yaml or .toml)")
	return cmd
}

// validateToolsFile loads, validates and compiles every tool in path.
func validateToolsFile(path string) (string, error) {
	cfg, err := platform.LoadConfig(path)
	if err != nil {
		return "", err
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	snap, err := registry.Build(cfg.RegistryConfig(), registry.BuiltinSourceFactories(), tools.Builtin())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s: %d sources, %d tools, %d toolsets OK",
		path, len(snap.Sources().Names()), len(snap.Tools()), len(cfg.Toolsets)), nil
}
