package daemon

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/chathive/chathive/internal/service"
)

// TestModuleWiring verifies the fx dependency graph resolves, the daemon
// loads its store on start, and the Registry is empty again on stop —
// guarding against a provider taking a type fx can't resolve.
func TestModuleWiring(t *testing.T) {
	dir := t.TempDir()
	p := Params{StoreName: "fxtest", StoreDir: filepath.Join(dir, "store")}

	var reg *service.Registry
	app := fxtest.New(t,
		Module(p),
		fx.Populate(&reg),
	)

	app.RequireStart()
	if len(reg.Handles()) != 1 {
		t.Fatalf("handles after start = %d, want 1", len(reg.Handles()))
	}

	app.RequireStop()
	if len(reg.Handles()) != 0 {
		t.Fatalf("handles after stop = %d, want 0", len(reg.Handles()))
	}
}

// TestModuleRefusesSecondLockHolder verifies the per-store file lock
// actually excludes a second daemon instance pointed at the same store
// directory.
func TestModuleRefusesSecondLockHolder(t *testing.T) {
	dir := t.TempDir()
	storeDir := filepath.Join(dir, "store")
	p := Params{StoreName: "fxtest", StoreDir: storeDir}

	app1 := fxtest.New(t, Module(p))
	app1.RequireStart()
	defer app1.RequireStop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	app2 := fx.New(Module(p))
	err := app2.Start(ctx)
	if err == nil {
		_ = app2.Stop(ctx)
		t.Fatal("second daemon over the same store should have failed to start")
	}
}
