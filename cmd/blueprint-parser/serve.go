package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/blueprint-parser/internal/blueprint"
	"github.com/ironsheep/blueprint-parser/internal/config"
	"github.com/ironsheep/blueprint-parser/internal/logging"
	"github.com/ironsheep/blueprint-parser/internal/queue"
	"github.com/ironsheep/blueprint-parser/internal/server"
	"github.com/ironsheep/blueprint-parser/internal/storage"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runServe(cmd.Context(), configPath, serveAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address, overrides the config file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context, path, addr string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	// The logger itself passes everything; the global level does the
	// filtering so a config reload can change it.
	log, err := logging.New(os.Stderr, zerolog.LevelTraceValue, cfg.Log.Format)
	if err != nil {
		return err
	}
	if err := logging.SetLevel(cfg.Log.Level); err != nil {
		return err
	}
	log.Info().Str("version", Version).Str("commit", GitCommit).Str("addr", cfg.Server.Addr).Msg("blueprint-parser starting")

	var store *storage.Store
	if cfg.Storage.Enabled() {
		if store, err = storage.New(cfg.Storage.Dir, cfg.Pipeline.MaxDimension, cfg.Storage.CachePixels); err != nil {
			return err
		}
		log.Info().Str("dir", store.Dir()).Msg("storing uploads")
	}

	q := queue.New(queue.ExecutorFunc(blueprint.NewPipeline(log).Parse), log)
	srv := server.New(q, store, cfg, log)
	runner := queue.NewRunner(q, cfg.Pipeline.Tick, log)

	g, gctx := errgroup.WithContext(ctx)

	// The consumer stops only after the HTTP server has drained, so
	// handlers still waiting on a job get their answer.
	runCtx, stopRunner := context.WithCancel(context.WithoutCancel(ctx))
	g.Go(func() error {
		defer stopRunner()
		return srv.ListenAndServe(gctx)
	})
	g.Go(func() error {
		return runner.Run(runCtx)
	})

	if watchable(path) {
		g.Go(func() error {
			return config.Watch(gctx, path, log, func(next *config.Config) {
				if addr != "" {
					next.Server.Addr = addr
				}
				if err := logging.SetLevel(next.Log.Level); err != nil {
					log.Error().Err(err).Msg("keeping previous log level")
				}
				srv.SetConfig(next)
			})
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	st := q.Stats()
	log.Info().Uint64("completed", st.Completed).Uint64("failed", st.Failed).Uint64("rejected", st.Rejected).Msg("blueprint-parser stopped")
	return nil
}

// watchable reports whether path names an existing config file.
func watchable(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
