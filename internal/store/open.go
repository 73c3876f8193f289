package store

import (
	"context"
	"fmt"

	"monthcal/internal/config"
	appLog "monthcal/internal/log"
)

// Open builds the backend selected by cfg.Store. The returned close func
// releases its resources and is never nil.
func Open(ctx context.Context, cfg *config.Config) (EventStore, func(), error) {
	noop := func() {}

	switch cfg.Store {
	case config.StorePostgres:
		p, err := ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		return p, p.Close, nil

	case config.StoreRemote:
		var opts []ClientOption
		if cfg.BasicAuth != nil && cfg.BasicAuth.Username != "" {
			opts = append(opts, WithBasicAuth(cfg.BasicAuth.Username, cfg.BasicAuth.Password))
		}
		appLog.Info("using remote event store", "server_url", cfg.ServerURL)
		return NewClient(cfg.ServerURL, opts...), noop, nil

	case config.StoreFile, "":
		f, err := OpenFile(cfg.DataFile)
		if err != nil {
			return nil, noop, err
		}
		appLog.Info("using file event store", "path", cfg.DataFile)
		return f, noop, nil
	}
	return nil, noop, fmt.Errorf("store: unknown backend %q", cfg.Store)
}
