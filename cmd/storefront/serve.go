package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Skotchmaster/storefront/internal/catalog"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the storefront on the configured address",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			rt.log.Error("close_error", "error", err)
		}
	}()
	l := rt.log
	ctx = logging.IntoContext(ctx, l)

	if len(rt.cfg.KafkaBrokers) > 0 {
		bridge, err := events.NewKafkaBridge(rt.cfg.KafkaBrokers, rt.cfg.KafkaTopic)
		if err != nil {
			return err
		}
		defer bridge.Close()
		rt.bus.AddSink(bridge)
		go func() {
			if err := bridge.Consume(ctx, rt.bus); err != nil {
				l.Error("kafka_consume_error", "error", err)
			}
		}()
		l.Info("kafka_bridge", "status", "enabled", "topic", rt.cfg.KafkaTopic)
	}

	var index *catalog.ESIndex
	if rt.cfg.ESURL != "" {
		es, err := catalog.NewESClient(rt.cfg.ESURL, rt.cfg.ESUser, rt.cfg.ESPassword)
		if err != nil {
			return err
		}
		index = catalog.NewESIndex(es, rt.cfg.ESIndex)
		l.Info("search_index", "status", "enabled", "index", rt.cfg.ESIndex)
	}

	deps := httpserver.Wire(httpserver.Sources{
		Logger:  l,
		Client:  rt.client,
		Storage: rt.storage,
		Bus:     rt.bus,
		Metrics: rt.metrics,
		Index:   index,
	})
	deps.Ready = func(ctx context.Context) error {
		_, err := session.StoredRole(ctx, rt.storage)
		return err
	}

	for _, s := range []*session.Store{deps.Customer, deps.Admin} {
		if err := s.Restore(ctx); err != nil {
			l.Warn("session_restore_error", "role", string(s.Role()), "error", err)
		}
	}

	go deps.Hub.Run(ctx)

	e := httpserver.New(deps)
	srv := &http.Server{
		Addr:              rt.cfg.ListenAddr,
		Handler:           e,
		ReadTimeout:       e.Server.ReadTimeout,
		ReadHeaderTimeout: e.Server.ReadHeaderTimeout,
		WriteTimeout:      e.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("http_listen", "addr", rt.cfg.ListenAddr, "api", rt.cfg.APIURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	l.Info("shutdown", "status", "start")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("shutdown", "status", "error", "error", err)
	}
	rt.bus.Wait()
	l.Info("shutdown", "status", "complete")
	return nil
}
