package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"broadoak/internal/config"
)

type rootOptions struct {
	configPath string
	dataDir    string
	backend    string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "broadoak",
		Short:         "Import shift rotas from spreadsheets into the shift store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config.toml (default: next to the executable)")
	cmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "Data directory (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "Store backend: sqlite, firestore or memory (overrides config)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newServeCmd(opts),
		newImportCmd(opts),
		newSheetsCmd(),
		newUsersCmd(opts),
		newConfigCmd(opts),
	)
	return cmd
}

// load 加载配置并应用命令行覆盖
func (o *rootOptions) load() (*config.AppConfig, config.LoadConfigInfo, error) {
	cfg, info, err := config.LoadConfigWithInfo(o.configPath)
	if err != nil {
		return nil, info, err
	}
	if o.dataDir != "" {
		cfg.Data.DataDir = o.dataDir
	}
	if o.backend != "" {
		cfg.Store.Backend = o.backend
		if err := cfg.Validate(); err != nil {
			return nil, info, err
		}
	}
	return cfg, info, nil
}

func (o *rootOptions) logger() (*zap.Logger, error) {
	if o.verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	return cfg.Build()
}
