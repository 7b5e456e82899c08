package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/livesync"
	"github.com/jpalmerr/livesync/config"
	"github.com/jpalmerr/livesync/internal/ringlog"
	"github.com/jpalmerr/livesync/internal/sqlitekv"
	"github.com/jpalmerr/livesync/internal/wsbridge"
)

// newLogger creates a ring-buffered JSON logger for CLI use.
func newLogger() (*slog.Logger, *ringlog.Handler) {
	handler := ringlog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}), 0)
	return slog.New(handler), handler
}

// tailCmd mirrors configured stores and prints every change.
var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Mirror stores and print updates",
	Long: `Connect to the realtime server and mirror the configured stores
and presence topics, printing every change to stdout as a JSON line.

The connection reconnects with backoff if it drops. The command runs
until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  livesync tail -c config.yaml
  livesync tail --config /etc/livesync/config.yaml`,
	RunE: runTail,
}

func init() {
	rootCmd.AddCommand(tailCmd)

	tailCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = tailCmd.MarkFlagRequired("config")
}

func runTail(cmd *cobra.Command, args []string) error {
	logger, _ := newLogger()

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("config loaded",
		"stores", len(cfg.Stores),
		"topics", len(cfg.Topics),
		"url", cfg.URL,
	)

	sessionOpts := []livesync.Option{
		livesync.WithLogger(logger),
	}
	if cfg.Storage != "" {
		kv, err := sqlitekv.Open(cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		defer kv.Close()
		sessionOpts = append(sessionOpts, livesync.WithStorage(kv))
	}

	session, err := livesync.New(sessionOpts...)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	stores, presences, err := config.BuildStores(session, cfg)
	if err != nil {
		return fmt.Errorf("failed to build stores: %w", err)
	}

	bridge, err := wsbridge.New(cfg.URL, session.Dispatch,
		wsbridge.WithLogger(logger),
		wsbridge.WithHeartbeat(cfg.Heartbeat.Duration()),
		wsbridge.WithHeader(headersFromConfig(cfg)),
	)
	if err != nil {
		return fmt.Errorf("failed to create bridge: %w", err)
	}

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for _, store := range stores {
		wg.Add(1)
		go func(store *livesync.Store[config.Item]) {
			defer wg.Done()
			printStore(ctx, store)
		}(store)
	}
	for _, p := range presences {
		wg.Add(1)
		go func(p *livesync.Presence) {
			defer wg.Done()
			printPresence(ctx, p)
		}(p)
	}

	err = bridge.Run(ctx) // blocks until context cancelled
	stop()
	wg.Wait()
	if err != nil {
		return fmt.Errorf("bridge error: %w", err)
	}
	logger.Info("livesync stopped")
	return nil
}

// printStore streams store snapshots to stdout as JSON lines.
func printStore(ctx context.Context, store *livesync.Store[config.Item]) {
	ch := store.Subscribe()
	defer store.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case entries, ok := <-ch:
			if !ok {
				return
			}
			items := make([]config.Item, len(entries))
			for i, e := range entries {
				items[i] = e.Value
			}
			printLine(map[string]any{
				"store": store.Name(),
				"count": len(items),
				"items": items,
			})
		}
	}
}

// printPresence streams presence snapshots to stdout as JSON lines.
func printPresence(ctx context.Context, p *livesync.Presence) {
	ch := p.Subscribe()
	defer p.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case users, ok := <-ch:
			if !ok {
				return
			}
			printLine(map[string]any{
				"topic": p.Topic(),
				"count": len(users),
				"users": users,
			})
		}
	}
}

func printLine(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Println(string(data))
}

func headersFromConfig(cfg *config.Config) http.Header {
	if len(cfg.Headers) == 0 {
		return nil
	}
	header := make(http.Header, len(cfg.Headers))
	for k, v := range cfg.Headers {
		header.Set(k, v)
	}
	return header
}
