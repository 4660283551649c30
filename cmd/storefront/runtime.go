package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/pkg/apiclient"
	"github.com/Skotchmaster/storefront/pkg/config"
	"github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

// runtime holds what every command needs: configuration, logger, backend
// client and the session storage.
type runtime struct {
	cfg     config.Config
	log     *slog.Logger
	client  *apiclient.Client
	storage session.Storage
	bus     *events.Bus
	metrics *metrics.Metrics

	closers []func() error
}

func newRuntime(ctx context.Context) (*runtime, error) {
	cfg := config.Load()
	config.MustURL(cfg.APIURL, "FOODYY_API_URL")

	rt := &runtime{
		cfg:     cfg,
		log:     logging.New(cfg.LogLevel).With("service", cfg.ServiceName),
		bus:     events.NewBus(),
		metrics: metrics.New(),
	}
	rt.client = apiclient.NewClient(cfg.APIURL,
		apiclient.WithTimeout(cfg.APITimeout),
		apiclient.WithObserver(rt.metrics),
	)

	storage, err := rt.openStorage(logging.IntoContext(ctx, rt.log))
	if err != nil {
		return nil, err
	}
	if len(cfg.SessionKey) > 0 {
		storage = session.NewSealedStorage(storage, cfg.SessionKey)
	}
	rt.storage = storage
	return rt, nil
}

func (rt *runtime) openStorage(ctx context.Context) (session.Storage, error) {
	l := logging.FromContext(ctx)

	if rt.cfg.RedisAddr != "" {
		rs := session.NewRedisStorage(rt.cfg.RedisAddr)
		rt.closers = append(rt.closers, rs.Close)
		l.Info("session_storage", "backend", "redis", "addr", rt.cfg.RedisAddr)
		return rs, nil
	}

	gdb, err := db.Open(ctx, rt.cfg.SessionDSN)
	if err != nil {
		return nil, fmt.Errorf("open session storage: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("open session storage: %w", err)
	}
	rt.closers = append(rt.closers, sqlDB.Close)

	gs, err := session.NewGormStorage(gdb)
	if err != nil {
		return nil, fmt.Errorf("open session storage: %w", err)
	}
	l.Info("session_storage", "backend", db.Dialect(rt.cfg.SessionDSN))
	return gs, nil
}

func (rt *runtime) stores() (customer, admin *session.Store) {
	return session.NewCustomerStore(rt.storage, rt.client, rt.bus),
		session.NewAdminStore(rt.storage, rt.client, rt.bus)
}

func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
