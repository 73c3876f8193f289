package store

import (
	"context"
	"path/filepath"
	"testing"

	"monthcal/internal/config"
)

func TestOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cfg := config.DefaultConfig()
	cfg.DataFile = filepath.Join(t.TempDir(), "events.json")
	st, closeFn, err := Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open(file): %v", err)
	}
	defer closeFn()
	if _, ok := st.(*File); !ok {
		t.Fatalf("file backend = %T", st)
	}

	cfg.Store = config.StoreRemote
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "me", Password: "secret"}
	st, _, err = Open(ctx, cfg)
	if err != nil {
		t.Fatalf("Open(remote): %v", err)
	}
	c, ok := st.(*Client)
	if !ok || c.username != "me" {
		t.Fatalf("remote backend = %T %+v", st, st)
	}

	cfg.Store = config.StorePostgres
	cfg.DatabaseURL = ""
	if _, closeFn, err := Open(ctx, cfg); err == nil || closeFn == nil {
		t.Fatal("postgres without a url should fail with a non-nil close func")
	}

	cfg.Store = "sqlite"
	if _, _, err := Open(ctx, cfg); err == nil {
		t.Fatal("unknown backend accepted")
	}
}
