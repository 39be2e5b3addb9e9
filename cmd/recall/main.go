package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/recall/internal/app"
	"github.com/ternarybob/recall/internal/common"
)

var (
	configFiles []string

	// Global state shared by the subcommands
	config      *common.Config
	logger      arbor.ILogger
	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Local document retrieval engine",
	Long: `Recall ingests text, markdown and HTML documents, chunks them and
serves ranked TF-IDF search over the chunks. All data lives in a local
Badger store.`,
	SilenceUsage:       true,
	PersistentPreRunE:  initApp,
	PersistentPostRunE: closeApp,
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil,
		"configuration file (can be repeated, later files override earlier ones)")
}

// initApp loads configuration and wires the application. The version
// and help commands run without touching the store.
func initApp(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" || cmd.Name() == "help" {
		return nil
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		for _, candidate := range []string{"recall.toml", "recall.yaml"} {
			if _, err := os.Stat(candidate); err == nil {
				configFiles = append(configFiles, candidate)
				break
			}
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger = common.InitLogger(config)

	application, err = app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return nil
}

func closeApp(cmd *cobra.Command, args []string) error {
	if application != nil {
		return application.Close()
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
