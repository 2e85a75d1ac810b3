package extension

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/xraph/vault"
	"github.com/xraph/vault/store/memory"
	"github.com/xraph/vault/store/sqlite"
)

func TestMergeWithDefaults(t *testing.T) {
	e := New()
	cfg := e.mergeWithDefaults(Config{Capacity: 1000, WithdrawalLimit: 100})

	if cfg.Driver != DriverMemory {
		t.Errorf("driver: got %q", cfg.Driver)
	}
	if cfg.TransferPolicy != "capped" {
		t.Errorf("transfer policy: got %q", cfg.TransferPolicy)
	}
	if cfg.NotifyTimeout != 5*time.Second {
		t.Errorf("notify timeout: got %s", cfg.NotifyTimeout)
	}
	if cfg.Capacity != 1000 || cfg.WithdrawalLimit != 100 {
		t.Errorf("limits changed: %+v", cfg)
	}
}

func TestMergeConfigurationsPrefersFile(t *testing.T) {
	e := New()
	file := Config{Capacity: 5000, Driver: DriverSQLite, DSN: "/var/lib/vault.db"}
	prog := Config{
		Capacity:          1000,
		WithdrawalLimit:   100,
		Driver:            DriverPostgres,
		DisableMigrate:    true,
		ReconcileInterval: time.Minute,
	}

	cfg := e.mergeConfigurations(file, prog)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"capacity from file", cfg.Capacity, file.Capacity},
		{"limit fills gap", cfg.WithdrawalLimit, prog.WithdrawalLimit},
		{"driver from file", cfg.Driver, DriverSQLite},
		{"disable migrate flag", cfg.DisableMigrate, true},
		{"reconcile fills gap", cfg.ReconcileInterval, time.Minute},
		{"database default", cfg.Database, "vault"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, err := openStore(ctx, Config{Driver: DriverMemory})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*memory.Store); !ok {
		t.Errorf("memory driver: got %T", s)
	}

	s, err = openStore(ctx, Config{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "vault.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if _, ok := s.(*sqlite.Store); !ok {
		t.Errorf("sqlite driver: got %T", s)
	}

	errCases := []Config{
		{Driver: DriverPostgres},
		{Driver: DriverMongo},
		{Driver: "cassandra", DSN: "x"},
	}
	for _, cfg := range errCases {
		if _, err := openStore(ctx, cfg); err == nil {
			t.Errorf("driver %q: expected error", cfg.Driver)
		}
	}
}

func TestBuildVaultOptsRejectsUnknownPolicy(t *testing.T) {
	e := New(WithTransferPolicy("generous", 0, 0))
	if _, err := e.buildVaultOpts(); err == nil {
		t.Fatal("expected unknown policy to fail")
	}

	e = New(WithTransferPolicy("unrestricted", 0, 0), WithReconcileInterval(time.Second))
	opts, err := e.buildVaultOpts()
	if err != nil {
		t.Fatal(err)
	}
	if len(opts) != 3 {
		t.Errorf("got %d options, want migrate, pool policy and reconcile interval", len(opts))
	}
}

type migrateCounter struct {
	*memory.Store
	calls int
}

func (m *migrateCounter) Migrate(ctx context.Context) error {
	m.calls++
	return m.Store.Migrate(ctx)
}

type initCounter struct{ inits int }

func (c *initCounter) Name() string { return "init-counter" }

func (c *initCounter) OnInit(context.Context, interface{}) error {
	c.inits++
	return nil
}

func TestStartWithDisableMigrateStillStartsEngine(t *testing.T) {
	ctx := context.Background()
	c := &initCounter{}
	e := New(WithDisableMigrate(), WithPlugin(c), WithLimits(1000, 100))

	opts, err := e.buildVaultOpts()
	if err != nil {
		t.Fatal(err)
	}
	s := &migrateCounter{Store: memory.New()}
	e.engine, err = vault.New(s, vault.Config{Capacity: 1000, WithdrawalLimit: 100}, opts...)
	if err != nil {
		t.Fatal(err)
	}

	if err := e.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = e.Stop(ctx) })

	if s.calls != 0 {
		t.Errorf("migrate calls: got %d, want 0", s.calls)
	}
	if c.inits != 1 {
		t.Errorf("init hooks: got %d, want 1", c.inits)
	}
}
