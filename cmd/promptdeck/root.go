package main

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/promptdeck/pkg/client"
	"github.com/Sternrassler/promptdeck/pkg/config"
	"github.com/Sternrassler/promptdeck/pkg/logging"
)

// flagKeys maps command line flags to configuration keys. Flags only
// override the configuration when set explicitly.
var flagKeys = map[string]string{
	"log-level": "log.level",
	"pretty":    "log.pretty",
	"addr":      "server.addr",
	"db":        "database.path",
	"server":    "client.base_url",
	"token":     "client.token",
}

// app carries state shared by all commands of one invocation.
type app struct {
	cfgFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "promptdeck",
		Short: "Manage prompt templates and the variables they reference",
		Long: `promptdeck stores prompt templates and reusable variables and serves them
over HTTP to browser extensions and the CLI.

Prompts reference variables with {{label}} tokens. Typing "{{" while composing
opens a searchable, paginated variable picker.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(
		&a.cfgFile, "config", "", "config file (default: ./config.yaml or ~/.promptdeck/config.yaml)",
	)
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error, disabled")
	root.PersistentFlags().Bool("pretty", false, "human-readable log output")

	root.AddCommand(
		newVersionCmd(),
		newServeCmd(a),
		newBrowseCmd(a),
		newComposeCmd(a),
		newRecordCmd(a, promptKind),
		newRecordCmd(a, variableKind),
	)
	return root
}

// load reads the configuration and sets up logging.
func (a *app) load(cmd *cobra.Command) error {
	v, err := config.New(a.cfgFile)
	if err != nil {
		return err
	}
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging())
	a.cfg = cfg
	return nil
}

// apiClient builds a client for the configured server. The Redis page cache
// is used when enabled and a Redis address is configured.
func (a *app) apiClient() (*client.Client, error) {
	cc := client.DefaultConfig(a.cfg.Client.BaseURL, a.cfg.Client.Token)
	if a.cfg.Client.Timeout > 0 {
		cc.Timeout = a.cfg.Client.Timeout
	}
	if a.cfg.Client.Cache && a.cfg.Redis.Addr != "" {
		cc.Redis = a.redisClient()
	}
	c, err := client.New(cc)
	if err != nil {
		return nil, fmt.Errorf("create client (set client.token or PROMPTDECK_TOKEN): %w", err)
	}
	return c, nil
}

func (a *app) redisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        a.cfg.Redis.Addr,
		Password:    a.cfg.Redis.Password,
		DB:          a.cfg.Redis.DB,
		DialTimeout: 5 * time.Second,
	})
}
