package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarduel/src/app/http/dto"
	"scholarduel/src/core/domain"
	"scholarduel/src/core/ports"
	"scholarduel/src/infra/auth"
	"scholarduel/src/infra/config"
	"scholarduel/src/infra/logger"
	"scholarduel/src/infra/metrics"
	"scholarduel/src/infra/ratelimit"
	"scholarduel/src/infra/realtime"
	"scholarduel/src/infra/repo"
)

type scriptedScorer struct {
	mu     sync.Mutex
	scores []int
	err    error
}

func (s *scriptedScorer) Score(context.Context, ports.Argument) (domain.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.Assessment{}, s.err
	}
	var logic int
	if len(s.scores) > 0 {
		logic, s.scores = s.scores[0], s.scores[1:]
	}
	return domain.Assessment{Scores: domain.Scores{Logic: logic}}, nil
}

type echoJudge struct{}

func (echoJudge) Name() string { return "echo" }

func (echoJudge) StreamAnalysis(_ context.Context, arg ports.Argument, w io.Writer) error {
	for _, part := range []string{`{"totalScore":`, ` 42, "topic": "`, arg.Topic, `"}`} {
		if _, err := io.WriteString(w, part); err != nil {
			return err
		}
	}
	return nil
}

type testEnv struct {
	srv    *Server
	tokens *auth.Tokens
	scorer *scriptedScorer
	hub    *realtime.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil)
}

func newTestEnvWith(t *testing.T, tweak func(*config.Config)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server:    config.ServerConfig{Host: "127.0.0.1", Port: 0, ShutdownTimeout: time.Second},
		Log:       config.LogConfig{Level: "info", Format: "json"},
		Auth:      config.AuthConfig{JWTSecret: "server-test", Issuer: "scholarduel", TTL: time.Hour},
		Scoring:   config.ScoringConfig{Mode: config.ScoringLocal, Timeout: time.Second},
		RateLimit: config.RateLimitConfig{SubmissionsPerMinute: 100, AnalyzePerMinute: 2},
		Realtime:  config.RealtimeConfig{PingInterval: time.Second, WriteTimeout: time.Second, SendBuffer: 16},
		CORS:      config.CORSConfig{Origins: []string{"*"}},
	}
	if tweak != nil {
		tweak(cfg)
	}
	log := logger.Discard()

	store := repo.NewMemoryRepository()
	bus := realtime.NewBus(log)
	hub := realtime.NewHub(cfg.Realtime.SendBuffer, metrics.NewNoop(), log)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Run(ctx, bus) }()
	t.Cleanup(func() {
		cancel()
		_ = bus.Close()
	})

	env := &testEnv{
		tokens: auth.NewTokens(cfg.Auth),
		scorer: &scriptedScorer{},
		hub:    hub,
	}
	prom := metrics.NewPrometheus()
	env.srv = New(cfg, log, Deps{
		Repo:      store,
		Scorer:    env.scorer,
		Judge:     echoJudge{},
		Events:    bus,
		Hub:       hub,
		Tokens:    env.tokens,
		Limiter:   ratelimit.NewLocal(),
		Metrics:   prom,
		MetricsUI: prom.Handler(),
		Health:    map[string]ports.ExternalService{"storage": store, "events": bus},
	})
	return env
}

func (e *testEnv) token(t *testing.T, user uuid.UUID) string {
	t.Helper()
	tok, _, err := e.tokens.Issue(user)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path string, user uuid.UUID, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if user != uuid.Nil {
		req.Header.Set("Authorization", "Bearer "+e.token(t, user))
	}
	w := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env.Data
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env.Error.Code
}

func (e *testEnv) activeDuel(t *testing.T, challenger, opponent uuid.UUID) dto.DuelResponse {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/duels", challenger, gin.H{
		"opponent_id": opponent,
		"topic":       "Should peer review be anonymous?",
		"max_rounds":  3,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.DuelWithInvitationResponse](t, w)

	w = e.do(t, http.MethodPost, "/v1/duels/"+created.Duel.ID.String()+"/accept", opponent, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[dto.DuelWithInvitationResponse](t, w).Duel
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", uuid.Nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/health/detailed", uuid.Nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"storage"`)

	w = env.do(t, http.MethodGet, "/metrics", uuid.Nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "scholarduel_")
}

func TestAPIRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/duels", uuid.Nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))

	w = env.do(t, http.MethodGet, "/v1/nope", uuid.Nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))
}

func TestSessionMe(t *testing.T) {
	env := newTestEnv(t)
	user := uuid.New()

	w := env.do(t, http.MethodGet, "/v1/session/me", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, user, decode[dto.SessionResponse](t, w).UserID)
}

func TestFullDuelOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	challenger, opponent := uuid.New(), uuid.New()
	env.scorer.scores = []int{10, 8, 12, 9, 11, 7}

	w := env.do(t, http.MethodPost, "/v1/duels", challenger, gin.H{
		"opponent_id": opponent,
		"topic":       "Is open access sustainable?",
		"max_rounds":  3,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.DuelWithInvitationResponse](t, w)
	assert.Equal(t, "pending", created.Duel.Status)
	assert.Equal(t, "undecided", created.Duel.Outcome)
	duelPath := "/v1/duels/" + created.Duel.ID.String()

	w = env.do(t, http.MethodGet, "/v1/invitations?status=pending", opponent, nil)
	require.Equal(t, http.StatusOK, w.Code)
	invs := decode[[]dto.InvitationResponse](t, w)
	require.Len(t, invs, 1)
	assert.Equal(t, created.Duel.ID, invs[0].DuelID)

	w = env.do(t, http.MethodPost, duelPath+"/accept", opponent, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	authors := []uuid.UUID{challenger, opponent, challenger, opponent, challenger, opponent}
	var last dto.SubmitRoundResponse
	for i, author := range authors {
		w = env.do(t, http.MethodPost, duelPath+"/rounds", author, gin.H{"content_text": "A sourced argument."})
		require.Equal(t, http.StatusCreated, w.Code, "submission %d: %s", i+1, w.Body.String())
		last = decode[dto.SubmitRoundResponse](t, w)
		assert.Equal(t, i/2+1, last.Round.RoundNumber)
	}

	assert.Equal(t, "completed", last.Duel.Status)
	assert.Equal(t, 33, last.Duel.ChallengerScore)
	assert.Equal(t, 24, last.Duel.OpponentScore)
	assert.Equal(t, "challenger_won", last.Duel.Outcome)
	require.NotNil(t, last.Duel.WinnerID)
	assert.Equal(t, challenger, *last.Duel.WinnerID)
	assert.Nil(t, last.Duel.CurrentTurnUserID)

	w = env.do(t, http.MethodGet, duelPath, uuid.New(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[dto.DuelDetailResponse](t, w)
	assert.Len(t, detail.Rounds, 6)
	assert.JSONEq(t, `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"A sourced argument."}]}]}`,
		string(detail.Rounds[0].Content))

	w = env.do(t, http.MethodGet, duelPath+"/rounds", challenger, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]dto.RoundResponse](t, w), 6)

	w = env.do(t, http.MethodGet, "/v1/duels?status=completed&limit=5", challenger, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"limit":5`)

	w = env.do(t, http.MethodDelete, duelPath, opponent, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", errorCode(t, w))
	w = env.do(t, http.MethodGet, duelPath, challenger, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteDuel(t *testing.T) {
	env := newTestEnv(t)
	challenger, opponent := uuid.New(), uuid.New()

	w := env.do(t, http.MethodPost, "/v1/duels", challenger, gin.H{
		"opponent_id": opponent,
		"topic":       "Is open access sustainable?",
		"max_rounds":  3,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	path := "/v1/duels/" + decode[dto.DuelWithInvitationResponse](t, w).Duel.ID.String()

	w = env.do(t, http.MethodDelete, path, challenger, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "pending duel")

	w = env.do(t, http.MethodPost, path+"/decline", opponent, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodDelete, path, uuid.New(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "outsider")

	w = env.do(t, http.MethodDelete, path, opponent, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodGet, path, challenger, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitErrors(t *testing.T) {
	env := newTestEnv(t)
	challenger, opponent := uuid.New(), uuid.New()
	duel := env.activeDuel(t, challenger, opponent)
	path := "/v1/duels/" + duel.ID.String() + "/rounds"

	tests := []struct {
		name   string
		path   string
		user   uuid.UUID
		body   any
		status int
		code   string
	}{
		{"out of turn", path, opponent, gin.H{"content_text": "me first"}, http.StatusForbidden, "FORBIDDEN"},
		{"outsider", path, uuid.New(), gin.H{"content_text": "hello"}, http.StatusForbidden, "FORBIDDEN"},
		{"empty argument", path, challenger, gin.H{"content_text": "  "}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad duel id", "/v1/duels/not-a-uuid/rounds", challenger, gin.H{"content_text": "x"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown duel", "/v1/duels/" + uuid.NewString() + "/rounds", challenger, gin.H{"content_text": "x"}, http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, errorCode(t, w))
		})
	}
}

func TestScoringFailureStillCountsRound(t *testing.T) {
	env := newTestEnv(t)
	challenger, opponent := uuid.New(), uuid.New()
	duel := env.activeDuel(t, challenger, opponent)
	env.scorer.err = assert.AnError

	w := env.do(t, http.MethodPost, "/v1/duels/"+duel.ID.String()+"/rounds", challenger, gin.H{"content_text": "argument"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode[dto.SubmitRoundResponse](t, w)
	assert.False(t, res.Round.Scored)
	assert.Zero(t, res.Round.TotalScore)
	assert.Equal(t, opponent, *res.Duel.CurrentTurnUserID)
}

func TestLifecycleConflicts(t *testing.T) {
	env := newTestEnv(t)
	challenger, opponent := uuid.New(), uuid.New()
	duel := env.activeDuel(t, challenger, opponent)
	path := "/v1/duels/" + duel.ID.String()

	w := env.do(t, http.MethodPost, path+"/accept", opponent, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodDelete, path, challenger, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/v1/duels", challenger, gin.H{"topic": "missing opponent", "max_rounds": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/v1/duels", challenger, gin.H{"opponent_id": opponent, "topic": "t", "max_rounds": 4})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

func TestAnalyzeStreamsAndLimits(t *testing.T) {
	env := newTestEnv(t)
	user := uuid.New()
	body := gin.H{"content": "Evidence suggests otherwise.", "topic": "Tenure", "position": "Against"}

	w := env.do(t, http.MethodPost, analyzePath, user, body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
	assert.JSONEq(t, `{"totalScore": 42, "topic": "Tenure"}`, w.Body.String())

	w = env.do(t, http.MethodPost, analyzePath, user, gin.H{"topic": "Tenure"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, analyzePath, user, body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", errorCode(t, w))

	w = env.do(t, http.MethodPost, analyzePath, uuid.Nil, body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRealtimeRelaysCommittedChanges(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.srv.Router())
	defer ts.Close()

	challenger, opponent := uuid.New(), uuid.New()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/realtime?token=" + env.token(t, opponent)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()
	require.Eventually(t, func() bool { return env.hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	// The opponent is in the audience of the invitation without watching the duel.
	w := env.do(t, http.MethodPost, "/v1/duels", challenger, gin.H{
		"opponent_id": opponent,
		"topic":       "Do citations measure impact?",
		"max_rounds":  3,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[dto.DuelWithInvitationResponse](t, w)

	seen := map[string]dto.EventResponse{}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for len(seen) < 2 {
		var ev dto.EventResponse
		require.NoError(t, conn.ReadJSON(&ev))
		assert.Equal(t, created.Duel.ID, ev.DuelID)
		seen[ev.Type] = ev
	}
	require.Contains(t, seen, string(domain.EventDuelCreated))
	require.Contains(t, seen, string(domain.EventInvitationUpdated))
	assert.Equal(t, "pending", seen[string(domain.EventDuelCreated)].Duel.Status)

	require.NoError(t, conn.WriteJSON(dto.ClientMessage{Type: dto.ClientSubscribe, DuelID: created.Duel.ID}))
	conn.Close()
	require.Eventually(t, func() bool { return env.hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestRealtimeRejectsBadDuelID(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/v1/realtime?duel_id=nope", uuid.New(), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOversizedBodies(t *testing.T) {
	env := newTestEnvWith(t, func(cfg *config.Config) { cfg.Server.MaxBodyBytes = 512 })
	challenger, opponent := uuid.New(), uuid.New()

	w := env.do(t, http.MethodPost, "/v1/duels", challenger, gin.H{
		"opponent_id": opponent,
		"topic":       strings.Repeat("peer review ", 100),
		"max_rounds":  3,
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
	assert.Equal(t, "PAYLOAD_TOO_LARGE", errorCode(t, w))

	w = env.do(t, http.MethodPost, "/v1/duels", challenger, gin.H{
		"opponent_id": opponent,
		"topic":       "Is peer review broken?",
		"max_rounds":  3,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	duelPath := "/v1/duels/" + decode[dto.DuelWithInvitationResponse](t, w).Duel.ID.String()

	w = env.do(t, http.MethodPost, duelPath+"/accept", opponent, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, duelPath+"/rounds", challenger, gin.H{"content_text": strings.Repeat("a", 2000)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
	assert.Equal(t, "PAYLOAD_TOO_LARGE", errorCode(t, w))

	w = env.do(t, http.MethodPost, duelPath+"/rounds", challenger, gin.H{"content_text": "A short argument."})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}
