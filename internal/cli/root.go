package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edgecomet/seoeditor/internal/common/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=..."
var version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "seoctl",
	Short: "Inspect and edit the SEO metadata of static pages",
	Long: `seoctl reads and rewrites the <head> metadata of HTML and PHP pages:
title, description, canonical, robots, Open Graph, Twitter cards and JSON-LD.
It can also audit pages and run the editor API server.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("seoctl version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr while running")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// commandLogger is a console logger with --verbose and a no-op logger otherwise
func commandLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	dl, err := logger.NewDefaultLogger()
	if err != nil {
		return zap.NewNop()
	}
	return dl.Logger
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
