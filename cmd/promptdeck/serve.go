package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/promptdeck/pkg/logging"
	"github.com/Sternrassler/promptdeck/pkg/optimizer"
	"github.com/Sternrassler/promptdeck/pkg/ratelimit"
	"github.com/Sternrassler/promptdeck/pkg/server"
	"github.com/Sternrassler/promptdeck/pkg/store"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the promptdeck HTTP API",
		Long: `Start the promptdeck HTTP API on top of a SQLite database.

The server provides:
  - /api/prompts, /api/variables        - paginated listing and CRUD
  - /api/extension/fetch-*              - exports for browser extensions
  - /api/extension/optimize-prompt      - prompt rewriting via OpenAI
  - /health, /metrics                   - health check and Prometheus metrics

Requests authenticate with a bearer token listed under server.tokens.
With redis.addr set, the per-owner request budget is shared through Redis.
Prompt optimization needs openai.api_key (default: ${OPENAI_API_KEY}).

Examples:
  promptdeck serve                       # Listen on :8080
  promptdeck serve --addr 127.0.0.1:3000
  promptdeck serve --db /var/lib/promptdeck/promptdeck.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := a.cfg
			logger := logging.NewLogger("serve")

			db, err := store.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			st := store.New(db)
			if err := st.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			srvCfg := server.Config{
				Addr:            cfg.Server.Addr,
				Tokens:          cfg.Server.TokenMap(),
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
			}
			if len(srvCfg.Tokens) == 0 {
				logger.Warn().Msg("No tokens configured under server.tokens; every API request will be rejected")
			}

			if cfg.OpenAI.APIKey != "" {
				srvCfg.Optimizer = optimizer.New(optimizer.Config{
					APIKey:     cfg.OpenAI.APIKey,
					Model:      cfg.OpenAI.Model,
					BaseURL:    cfg.OpenAI.BaseURL,
					MaxRetries: cfg.OpenAI.MaxRetries,
					Timeout:    cfg.OpenAI.Timeout,
				})
			} else {
				logger.Info().Msg("openai.api_key not set; prompt optimization disabled")
			}

			if cfg.RateLimit.Enabled {
				policy := ratelimit.Policy{
					RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
					Burst:             cfg.RateLimit.Burst,
				}
				limiterLog := logging.NewLogger("ratelimit")
				if cfg.Redis.Addr != "" {
					rdb := a.redisClient()
					defer rdb.Close()
					srvCfg.Limiter = ratelimit.NewTracker(rdb, policy, limiterLog)
				} else {
					srvCfg.Limiter = ratelimit.NewLocal(policy, limiterLog)
				}
			}

			return server.New(st, srvCfg).Run(ctx)
		},
	}

	cmd.Flags().String("addr", ":8080", "address to listen on")
	cmd.Flags().String("db", "promptdeck.db", "SQLite database path")
	return cmd
}
