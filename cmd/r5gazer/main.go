package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/langchou/r5gazer/internal/config"
	"github.com/langchou/r5gazer/internal/ui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "r5gazer",
		Short:         "Renault R5 E-Tech telemetry dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newDashboardCmd())
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if !cfg.HasCredentials() {
		return nil, errors.New("RENAULT_EMAIL and RENAULT_PASSWORD must be set")
	}
	return cfg, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/WebSocket server with periodic refresh",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := initLogger(cfg.Debug)
			defer logger.Sync()

			return runServer(cfg, logger)
		},
	}
}

func newReportCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Fetch once and print the dashboard",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := initLogger(cfg.Debug)
			defer logger.Sync()

			svc := newDashboardService(cfg, logger, nil)
			snap, err := svc.Refresh(context.Background())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			_, _ = fmt.Fprintln(out, ui.RenderReport(snap))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the snapshot as JSON")
	return cmd
}

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Run the terminal dashboard",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// 日志会打乱终端界面，只在调试时输出
			logger := zap.NewNop()
			if cfg.Debug {
				logger = initLogger(true)
			}
			defer logger.Sync()

			svc := newDashboardService(cfg, logger, nil)
			_, err = tea.NewProgram(ui.NewModel(svc, nil), tea.WithAltScreen()).Run()
			return err
		},
	}
}
