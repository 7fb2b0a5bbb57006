package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/riskibarqy/fpl-predictor/internal/config"
	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/engine"
	"github.com/riskibarqy/fpl-predictor/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/fpl-predictor/internal/infrastructure/repository/sqlite"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
)

func testConfig(driver string) config.Config {
	eng := engine.DefaultConfig()
	eng.SimulationSeed = 11
	eng.SimulationWorkers = 2
	eng.DefaultTrials = 50

	return config.Config{
		AppEnv:             config.EnvDev,
		ServiceName:        "fpl-predictor-test",
		ServiceVersion:     "test",
		HTTPAddr:           ":0",
		ReadTimeout:        5 * time.Second,
		WriteTimeout:       5 * time.Second,
		CORSAllowedOrigins: []string{"*"},
		InternalToken:      "secret",
		StoreDriver:        driver,
		SQLitePath:         sqlite.MemoryPath,
		CacheEnabled:       true,
		CacheTTL:           time.Minute,
		MCPAddr:            ":0",
		MCPPath:            "/mcp",
		Engine:             eng,
	}
}

func TestOpenStore_Drivers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		driver     string
		persistent bool
		wantErr    bool
	}{
		{name: "memory", driver: config.StoreMemory},
		{name: "sqlite in memory", driver: config.StoreSQLite, persistent: true},
		{name: "unknown", driver: "mongo", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store, err := OpenStore(t.Context(), testConfig(tc.driver), logging.NewNop())
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for driver %q", tc.driver)
				}
				return
			}
			if err != nil {
				t.Fatalf("open store: %v", err)
			}
			t.Cleanup(func() { _ = store.Close() })

			if store.Persistent() != tc.persistent {
				t.Fatalf("unexpected persistence: got=%v want=%v", store.Persistent(), tc.persistent)
			}
			if err := store.Ping(t.Context()); err != nil {
				t.Fatalf("ping: %v", err)
			}
		})
	}
}

func TestServices_WarmUpAndServe(t *testing.T) {
	t.Parallel()

	cfg := testConfig(config.StoreMemory)
	store, err := OpenStore(t.Context(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	services := NewServices(cfg, store, logging.NewNop())
	if !services.WarmUp(t.Context(), logging.NewNop()) {
		t.Fatalf("expected warm up to succeed on the seeded store")
	}

	srv, err := NewHTTPServer(cfg, services, logging.NewNop())
	if err != nil {
		t.Fatalf("build http server: %v", err)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tiers", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}

	mcpSrv, err := NewMCPServer(cfg, services, logging.NewNop())
	if err != nil {
		t.Fatalf("build mcp server: %v", err)
	}
	rec = httptest.NewRecorder()
	mcpSrv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected mcp health status: got=%d", rec.Code)
	}
}

func TestServices_RefreshBypassesReadCache(t *testing.T) {
	t.Parallel()

	cfg := testConfig(config.StoreMemory)
	store, err := OpenStore(t.Context(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	services := NewServices(cfg, store, logging.NewNop())
	if !services.WarmUp(t.Context(), logging.NewNop()) {
		t.Fatalf("warm up failed")
	}

	players, err := store.Players.GetByIDs(t.Context(), []int64{101})
	if err != nil || len(players) != 1 {
		t.Fatalf("load player 101: %v", err)
	}
	renamed := players[0]
	renamed.WebName = "Renamed"
	if err := store.Players.UpsertPlayers(t.Context(), []player.Player{renamed}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if _, err := services.Snapshots.Refresh(t.Context()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	snap, err := services.Snapshots.Current()
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	got, ok := snap.Player(101)
	if !ok || got.WebName != "Renamed" {
		t.Fatalf("refresh served a cached player: got=%q", got.WebName)
	}
}

func TestServices_WarmUpFailureKeepsServing(t *testing.T) {
	t.Parallel()

	cfg := testConfig(config.StoreSQLite)
	store, err := OpenStore(t.Context(), cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	services := NewServices(cfg, store, logging.NewNop())
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}
	if services.WarmUp(t.Context(), logging.NewNop()) {
		t.Fatalf("expected warm up to fail on a closed store")
	}

	srv, err := NewHTTPServer(cfg, services, logging.NewNop())
	if err != nil {
		t.Fatalf("build http server: %v", err)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected health status: got=%d", rec.Code)
	}
}

func TestNewHTTPServer_RequiresAddr(t *testing.T) {
	t.Parallel()

	cfg := testConfig(config.StoreMemory)
	cfg.HTTPAddr = ""
	if _, err := NewHTTPServer(cfg, &Services{}, nil); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}

func TestSeedIfEmpty_SeedsOnce(t *testing.T) {
	t.Parallel()

	store, err := OpenStore(t.Context(), testConfig(config.StoreSQLite), logging.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	seeded, err := SeedIfEmpty(t.Context(), store, logging.NewNop())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !seeded {
		t.Fatalf("expected empty store to be seeded")
	}

	players, err := store.Players.List(t.Context())
	if err != nil {
		t.Fatalf("list players: %v", err)
	}
	if got, want := len(players), len(memory.SeedPlayers()); got != want {
		t.Fatalf("got=%d want=%d players", got, want)
	}
	records, err := store.Players.ListMatchRecords(t.Context(), []int64{players[0].ID})
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) == 0 {
		t.Fatalf("expected match records for player %d", players[0].ID)
	}

	seeded, err = SeedIfEmpty(t.Context(), store, logging.NewNop())
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if seeded {
		t.Fatalf("expected populated store to be left alone")
	}
}
