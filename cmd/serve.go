package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadsnap/internal/gateway"
	"github.com/sells-group/leadsnap/internal/media"
	"github.com/sells-group/leadsnap/internal/photo"
	"github.com/sells-group/leadsnap/internal/queue"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the photo ingestion gateway",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Gateway.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		pool, err := dbPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		objects, err := objectStore()
		if err != nil {
			return err
		}

		signer, err := newSigner()
		if err != nil {
			return err
		}

		normalizer := media.NewNormalizer(
			media.NewFFmpeg(cfg.Media.FFmpegPath),
			media.NewHeifConvert(cfg.Media.HeifConvertPath),
		)

		srv := gateway.New(cfg.Gateway, cfg.Queues, gateway.Deps{
			Signer:     signer,
			Normalizer: normalizer,
			Objects:    objects,
			Photos:     photo.NewPostgresStore(pool),
			Queue:      queue.New(pool),
			Collector:  newCollector(pool),
		})

		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Gateway.Port),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown: stop accepting, then drain in-flight uploads.
		go func() {
			<-ctx.Done()
			grace := time.Duration(cfg.Gateway.ShutdownGraceSec) * time.Second
			if grace <= 0 {
				grace = 10 * time.Second
			}
			zap.L().Info("shutting down gateway", zap.Duration("grace", grace))

			shCtx, cancel := context.WithTimeout(context.Background(), grace)
			defer cancel()
			if err := httpSrv.Shutdown(shCtx); err != nil {
				zap.L().Warn("gateway shutdown incomplete", zap.Error(err))
			}
		}()

		zap.L().Info("starting gateway", zap.Int("port", cfg.Gateway.Port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "gateway listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
