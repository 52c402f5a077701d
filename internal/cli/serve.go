package cli

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lookfor-ai/maestro/internal/commerce"
	"github.com/lookfor-ai/maestro/internal/config"
	"github.com/lookfor-ai/maestro/internal/gateway"
	"github.com/lookfor-ai/maestro/internal/handler"
	"github.com/lookfor-ai/maestro/internal/intake"
	"github.com/lookfor-ai/maestro/internal/orchestrator"
	"github.com/lookfor-ai/maestro/internal/responder"
	"github.com/lookfor-ai/maestro/internal/rules"
	"github.com/lookfor-ai/maestro/internal/session"
	"github.com/lookfor-ai/maestro/internal/store"
	"github.com/lookfor-ai/maestro/internal/trace"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the orchestration engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return fmt.Errorf("creating data directories: %w", err)
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Storage backend (SQLite or in-memory)
			var (
				sessions  session.Store
				ruleStore rules.Store
				tracer    trace.Tracer
			)
			if cfg.Storage.Driver == "sqlite" {
				dbPath := cfg.Storage.Path
				if dbPath == "" {
					dbPath = filepath.Join(paths.Data, "maestro.db")
				}
				db, err := store.Open(dbPath, log)
				if err != nil {
					return fmt.Errorf("opening database: %w", err)
				}
				defer db.Close()
				sessions = store.NewSessionStore(db)
				ruleStore = store.NewRuleStore(db, nil)
				tracer = store.NewTraceStore(db)
				log.Info().Str("path", dbPath).Msg("using SQLite storage")
			} else {
				sessions = session.NewMemoryStore()
				ruleStore = rules.NewMemoryStore(nil)
				tracer = trace.NewMemoryTracer()
				log.Info().Msg("using in-memory storage")
			}

			feed := trace.NewFanout(tracer)

			gen := responder.NewHTTPClient(cfg.Responder.BaseURL, cfg.Responder.APIKey)
			tools := commerce.NewHTTPToolClient(cfg.Commerce.BaseURL, cfg.Commerce.APIKey)

			orch := orchestrator.New(sessions, ruleStore, feed, handler.Defaults(), gen, tools, log)

			if cfg.Intake.IMAP != nil {
				poller := intake.NewPoller(*cfg.Intake.IMAP, orch, log)
				go poller.Run(ctx)
			}

			srv := gateway.New(cfg.Gateway, orch, log, gateway.WithFeed(feed))
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan, custom)")

	return cmd
}
