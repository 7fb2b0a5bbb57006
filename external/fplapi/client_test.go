package fplapi

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
	"github.com/riskibarqy/fpl-predictor/internal/platform/resilience"
	"github.com/riskibarqy/fpl-predictor/internal/usecase"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

const bootstrapBody = `{
  "teams": [
    {"id": 1, "name": "Arsenal", "short_name": "ARS", "position": 0, "strength": 5, "strength_overall_home": 1340, "strength_overall_away": 1360},
    {"id": 2, "name": "Ipswich", "short_name": "IPS", "position": 0, "strength": 2, "strength_overall_home": 1050, "strength_overall_away": 1060}
  ],
  "elements": [
    {"id": 10, "team": 1, "first_name": "Bukayo", "second_name": "Saka", "web_name": "Saka", "element_type": 3,
     "chance_of_playing_next_round": 75, "news": "Knock", "total_points": 120, "points_per_game": "6.3", "form": "7.0"},
    {"id": 11, "team": 1, "first_name": "David", "second_name": "Raya", "web_name": "Raya", "element_type": 1,
     "chance_of_playing_next_round": null, "news": "", "total_points": 90, "points_per_game": "4.5", "form": "3.2"},
    {"id": 99, "team": 2, "first_name": "Kieran", "second_name": "McKenna", "web_name": "McKenna", "element_type": 5,
     "total_points": 0, "points_per_game": "0.0", "form": "0.0"}
  ]
}`

const summaryBody = `{
  "history": [
    {"element": 10, "fixture": 1, "opponent_team": 2, "round": 1, "was_home": true, "minutes": 90,
     "goals_scored": 1, "assists": 1, "clean_sheets": 1, "goals_conceded": 0, "own_goals": 0,
     "penalties_saved": 0, "penalties_missed": 0, "yellow_cards": 0, "red_cards": 0, "saves": 0,
     "bonus": 3, "bps": 40, "total_points": 14},
    {"element": 10, "fixture": 7, "opponent_team": 2, "round": 0, "was_home": false, "minutes": 0, "total_points": 0}
  ]
}`

const fixturesBody = `[
  {"id": 1, "event": 1, "team_h": 1, "team_a": 2, "team_h_score": 2, "team_a_score": 0,
   "kickoff_time": "2025-08-16T14:00:00Z", "finished": true},
  {"id": 7, "event": null, "team_h": 2, "team_a": 1, "team_h_score": null, "team_a_score": null,
   "kickoff_time": null, "finished": false}
]`

type fakeAPI struct {
	mu       sync.Mutex
	handlers map[string]func(ctx *fasthttp.RequestCtx)
	hits     map[string]*atomic.Int32
}

func newFakeAPI(t *testing.T) (*fakeAPI, *fasthttp.Client) {
	t.Helper()

	api := &fakeAPI{
		handlers: make(map[string]func(ctx *fasthttp.RequestCtx)),
		hits:     make(map[string]*atomic.Int32),
	}
	ln := fasthttputil.NewInmemoryListener()
	server := &fasthttp.Server{Handler: api.serve}
	go func() {
		_ = server.Serve(ln)
	}()
	t.Cleanup(func() {
		_ = server.Shutdown()
		_ = ln.Close()
	})

	client := &fasthttp.Client{
		Dial: func(string) (net.Conn, error) {
			return ln.Dial()
		},
	}
	return api, client
}

func (a *fakeAPI) handle(path string, fn func(ctx *fasthttp.RequestCtx)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers[path] = fn
	a.hits[path] = &atomic.Int32{}
}

func (a *fakeAPI) count(path string) int32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hits[path].Load()
}

func (a *fakeAPI) serve(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	a.mu.Lock()
	fn, ok := a.handlers[path]
	if ok {
		a.hits[path].Add(1)
	}
	a.mu.Unlock()
	if !ok {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}
	fn(ctx)
}

func jsonBody(body string) func(ctx *fasthttp.RequestCtx) {
	return func(ctx *fasthttp.RequestCtx) {
		ctx.SetContentType("application/json")
		ctx.SetBodyString(body)
	}
}

func newTestClient(httpClient *fasthttp.Client, retries int, breaker resilience.CircuitBreakerConfig) *Client {
	return NewClient(ClientConfig{
		HTTPClient:     httpClient,
		BaseURL:        "http://fpl.test/api",
		Timeout:        2 * time.Second,
		MaxRetries:     retries,
		RetryBackoff:   time.Millisecond,
		Logger:         logging.NewNop(),
		CircuitBreaker: breaker,
	})
}

func TestClientBootstrap(t *testing.T) {
	t.Parallel()

	api, httpClient := newFakeAPI(t)
	api.handle("/api/bootstrap-static/", jsonBody(bootstrapBody))

	got, err := newTestClient(httpClient, 0, resilience.CircuitBreakerConfig{}).Bootstrap(t.Context())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if len(got.Teams) != 2 || got.Teams[0].ShortName != "ARS" {
		t.Fatalf("unexpected teams: %+v", got.Teams)
	}
	if got.Teams[0].Strength <= got.Teams[1].Strength {
		t.Fatalf("expected Arsenal stronger than Ipswich, got=%d vs %d", got.Teams[0].Strength, got.Teams[1].Strength)
	}
	if len(got.Players) != 2 || got.Skipped != 1 {
		t.Fatalf("unexpected players=%d skipped=%d", len(got.Players), got.Skipped)
	}

	saka := got.Players[0]
	if saka.Position != player.PositionMidfielder || saka.Name != "Bukayo Saka" || saka.PointsPerGame != 6.3 {
		t.Fatalf("unexpected mapped player: %+v", saka)
	}
	if saka.ChanceOfPlaying == nil || *saka.ChanceOfPlaying != 75 {
		t.Fatalf("unexpected chance of playing: %v", saka.ChanceOfPlaying)
	}
	if got.Players[1].ChanceOfPlaying != nil || got.Players[1].Position != player.PositionGoalkeeper {
		t.Fatalf("unexpected goalkeeper: %+v", got.Players[1])
	}
}

func TestClientPlayerHistoryAndFixtures(t *testing.T) {
	t.Parallel()

	api, httpClient := newFakeAPI(t)
	api.handle("/api/element-summary/10/", jsonBody(summaryBody))
	api.handle("/api/fixtures/", jsonBody(fixturesBody))
	client := newTestClient(httpClient, 0, resilience.CircuitBreakerConfig{})

	records, err := client.PlayerHistory(t.Context(), 10)
	if err != nil {
		t.Fatalf("player history: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected postponed row to be dropped, got=%d records", len(records))
	}
	rec := records[0]
	if rec.PlayerID != 10 || !rec.CleanSheet || !rec.WasHome || rec.Bonus != 3 || rec.TotalPoints != 14 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	fixtures, err := client.Fixtures(t.Context())
	if err != nil {
		t.Fatalf("fixtures: %v", err)
	}
	if len(fixtures) != 2 {
		t.Fatalf("got=%d fixtures want=2", len(fixtures))
	}
	if fixtures[0].KickoffAt == nil || fixtures[0].HomeScore == nil || *fixtures[0].HomeScore != 2 {
		t.Fatalf("unexpected played fixture: %+v", fixtures[0])
	}
	if fixtures[1].Gameweek != 0 || fixtures[1].KickoffAt != nil {
		t.Fatalf("unexpected unscheduled fixture: %+v", fixtures[1])
	}

	if _, err := client.PlayerHistory(t.Context(), 0); err == nil {
		t.Fatalf("expected error for player id 0")
	}
}

func TestClientRetriesTransientStatus(t *testing.T) {
	t.Parallel()

	api, httpClient := newFakeAPI(t)
	var calls atomic.Int32
	api.handle("/api/fixtures/", func(ctx *fasthttp.RequestCtx) {
		if calls.Add(1) < 3 {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			ctx.SetBodyString("The game is being updated.")
			return
		}
		jsonBody(fixturesBody)(ctx)
	})

	fixtures, err := newTestClient(httpClient, 3, resilience.CircuitBreakerConfig{}).Fixtures(t.Context())
	if err != nil {
		t.Fatalf("fixtures after retries: %v", err)
	}
	if len(fixtures) != 2 || api.count("/api/fixtures/") != 3 {
		t.Fatalf("unexpected result fixtures=%d hits=%d", len(fixtures), api.count("/api/fixtures/"))
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	_, httpClient := newFakeAPI(t)
	breakerCfg := resilience.CircuitBreakerConfig{Enabled: true, FailureThreshold: 1, OpenTimeout: time.Minute}
	client := newTestClient(httpClient, 3, breakerCfg)

	_, err := client.PlayerHistory(t.Context(), 404)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != fasthttp.StatusNotFound {
		t.Fatalf("expected 404 status error, got=%v", err)
	}
	if state := client.BreakerState(); state != resilience.CircuitStateClosed {
		t.Fatalf("404 must not open the breaker, state=%s", state)
	}
}

func TestClientBreakerOpensOnServerErrors(t *testing.T) {
	t.Parallel()

	api, httpClient := newFakeAPI(t)
	api.handle("/api/bootstrap-static/", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusBadGateway)
	})
	breakerCfg := resilience.CircuitBreakerConfig{Enabled: true, FailureThreshold: 1, OpenTimeout: time.Minute}
	client := newTestClient(httpClient, 1, breakerCfg)

	if _, err := client.Bootstrap(t.Context()); err == nil {
		t.Fatalf("expected error from 502")
	}
	if got := api.count("/api/bootstrap-static/"); got != 2 {
		t.Fatalf("got=%d attempts want=2", got)
	}

	_, err := client.Bootstrap(t.Context())
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("got=%v want=%v", err, usecase.ErrDependencyUnavailable)
	}
	if got := api.count("/api/bootstrap-static/"); got != 2 {
		t.Fatalf("open breaker still reached the api, hits=%d", got)
	}
}

func TestClientDecodeError(t *testing.T) {
	t.Parallel()

	api, httpClient := newFakeAPI(t)
	api.handle("/api/fixtures/", jsonBody(`{"not": "a list"`))

	if _, err := newTestClient(httpClient, 0, resilience.CircuitBreakerConfig{}).Fixtures(t.Context()); err == nil {
		t.Fatalf("expected decode error")
	}
}
