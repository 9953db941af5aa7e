package cmd

import (
	"context"
	"io"

	"github.com/mbolis/quick-form/config"
	"github.com/mbolis/quick-form/database"
	"github.com/mbolis/quick-form/log"
	"github.com/mbolis/quick-form/store"
	"github.com/spf13/cobra"
)

var (
	v          = config.New()
	configFile string
	cfg        config.Config
	logFile    io.Closer
)

var rootCmd = &cobra.Command{
	Use:          "quick-form",
	Short:        "Form builder, results viewer and link shortener",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		err := config.ReadFile(v, configFile)
		if err != nil {
			return err
		}
		cfg, err = config.Load(v)
		if err != nil {
			return err
		}

		if cfg.Debug {
			log.SetLevel(log.DebugLevel)
		}
		if cfg.LogFile != "" {
			logFile = log.SetFile(cfg.LogFile)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			logFile.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file")
	if err := config.BindFlags(v, rootCmd.PersistentFlags()); err != nil {
		log.Fatal("main.flags:", err)
	}

	rootCmd.AddCommand(serveCmd, adminCmd, formCmd, shortCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal("main:", err)
	}
}

func openStore(ctx context.Context) (store.Store, error) {
	return database.Open(ctx, cfg)
}
