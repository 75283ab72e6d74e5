// Package main contains the cli implementation of the tool. It uses the
// cobra package for cli tool implementation, the same way the teacher's
// cmd/smf/main.go builds its root command and per-subcommand flags.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mzafarm/datasmith/internal/config"
	"github.com/mzafarm/datasmith/internal/server"
	"github.com/mzafarm/datasmith/internal/store"
)

type serveFlags struct {
	dataDir    string
	configPath string
}

func main() {
	flags := &serveFlags{}

	rootCmd := &cobra.Command{
		Use:   "datasmith",
		Short: "Synthetic-data population engine command server",
		Long: "DataSmith drives schema introspection, generator orchestration, and " +
			"transactional writes behind a line-delimited JSON command server. " +
			"Running datasmith with no subcommand is equivalent to datasmith serve.",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(flags)
		},
	}
	rootCmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "Directory for config, logs, and the embedded store (default ~/.datasmith)")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to config.toml (default <data-dir>/config.toml)")

	rootCmd.AddCommand(serveCmd(flags))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd(flags *serveFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the command server over stdin/stdout",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(flags)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Println(server.Version)
			return nil
		},
	}
}

func runServe(flags *serveFlags) error {
	dataDir := flags.dataDir
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("datasmith: resolving home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".datasmith")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("datasmith: creating data directory %q: %w", dataDir, err)
	}

	configPath := flags.configPath
	if configPath == "" {
		configPath = filepath.Join(dataDir, "config.toml")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	st, err := store.Open(filepath.Join(dataDir, "config.db"))
	if err != nil {
		return err
	}
	defer st.Close()

	srv, err := server.New(st, cfg, dataDir)
	if err != nil {
		return err
	}
	defer srv.Close()

	return srv.Listen(os.Stdin, os.Stdout)
}
