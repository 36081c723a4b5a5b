package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sheetsync/internal/engine"
	"github.com/sells-group/sheetsync/internal/sheets"
	"github.com/sells-group/sheetsync/internal/store"
	"github.com/sells-group/sheetsync/pkg/crm"
)

// env bundles the wired collaborators a command needs.
type env struct {
	store  store.Store
	reader sheets.Reader
	relay  crm.Client
	engine *engine.Engine
}

func (e *env) Close() {
	if e.store != nil {
		_ = e.store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "sheetsync.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initEnv(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	reader := sheets.NewXLSXReader(cfg.Sheets.Dir)

	if cfg.Relay.URL == "" {
		_ = st.Close()
		return nil, eris.New("relay URL is required (SHEETSYNC_RELAY_URL)")
	}
	relay := crm.NewClient(cfg.Relay.URL,
		crm.WithAuthHeader(cfg.Relay.AuthHeader),
		crm.WithRateLimit(cfg.Relay.RequestsPerSec),
	)

	eng := engine.New(st, reader, relay,
		engine.WithThrottle(cfg.Sync.ThrottleEvery, time.Duration(cfg.Sync.ThrottleDelayMS)*time.Millisecond),
	)

	return &env{store: st, reader: reader, relay: relay, engine: eng}, nil
}
