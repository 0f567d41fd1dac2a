package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// configPath is shared by every subcommand.
var configPath string

var rootCmd = &cobra.Command{
	Use:   "blueprint-parser",
	Short: "Turn blueprint scans into clean binary masks",
	Long: `blueprint-parser thresholds a blueprint image against its own average
brightness and cleans the result with erosion and dilation.

Run "serve" for the HTTP API or "parse" to process a single file.

Environment variables:
  BLUEPRINT_ADDR         Listen address, overrides server.addr
  BLUEPRINT_LOG_LEVEL    Log level, overrides log.level
  BLUEPRINT_STORAGE_DIR  Upload directory, overrides storage.dir`,
	Version:       Version,
	SilenceErrors: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(fmt.Sprintf("blueprint-parser {{.Version}}\n  Build time: %s\n  Git commit: %s\n", BuildTime, GitCommit))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML config file (defaults apply when empty or missing)")
}
