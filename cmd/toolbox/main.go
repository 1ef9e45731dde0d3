// Package main provides the entry point for the toolbox server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "github.com/txn2/mcp-toolbox/internal/apidocs" // register swagger docs
)

// version is set at build time.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "toolbox",
		Short:         "Serve parameterized database tools to agents",
		Long:          "toolbox loads a tools file of sources and tools and serves them over REST and MCP.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	root.PersistentFlags().String("log-format", "text", "Log format: text, json")

	root.AddCommand(
		serveCmd(),
		validateCmd(),
		versionCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the toolbox version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "toolbox version %s\n", version)
		},
	}
}
