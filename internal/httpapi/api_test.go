package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/abonos/internal/assign"
	"example.com/abonos/internal/auth"
	"example.com/abonos/internal/domain"
	"example.com/abonos/internal/ledger"
	"example.com/abonos/internal/reconcile"
)

type testEnv struct {
	srv    *httptest.Server
	auth   *auth.Service
	users  *fakeUsers
	engine *fakeEngine
	sync   *fakeSync
	hub    *Hub

	adminToken string
	opToken    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	svc := auth.NewService([]byte("test-secret"), time.Hour)
	users := &fakeUsers{users: map[string]domain.User{}}
	for _, u := range []struct {
		name string
		role domain.Role
	}{{"admin", domain.RoleAdmin}, {"maria", domain.RoleOperator}} {
		nu, err := auth.NewUser(u.name, "password1", u.role)
		require.NoError(t, err)
		require.NoError(t, users.Create(t.Context(), nu))
	}

	env := &testEnv{
		auth:   svc,
		users:  users,
		engine: &fakeEngine{},
		sync:   &fakeSync{res: reconcile.Result{Status: reconcile.StatusSynced, Changed: 2}},
		hub:    NewHub(svc, slog.Default()),
	}

	api := New(Deps{
		Auth:  svc,
		Users: users,
		Reads: &fakeReads{
			matches: []domain.MatchSummary{{Match: domain.Match{ID: 1, Opponent: "Sevilla", Home: true}, AvailableSeats: 4}},
			detail:  map[int64]domain.MatchDetail{1: {Match: domain.Match{ID: 1, Home: true}}},
		},
		Engine:    env.engine,
		Matches:   &fakeMatches{},
		Seats:     &fakeSeats{},
		Parking:   fakeParking{},
		Customers: fakeCustomers{},
		Totals:    fakeTotals{},
		Sync:      env.sync,
		Hub:       env.hub,
		Limiter:   NewIPLimiter(5, 120*time.Second),
		ClubName:  "Atleti",
		Location:  madrid,
	})
	env.srv = httptest.NewServer(api.Routes())
	t.Cleanup(env.srv.Close)

	env.adminToken, err = svc.Sign("admin", domain.RoleAdmin)
	require.NoError(t, err)
	env.opToken, err = svc.Sign("maria", domain.RoleOperator)
	require.NoError(t, err)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	return e.Code
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	code, body := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", string(body))
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "maria", Password: "password1"})
	require.Equal(t, http.StatusOK, code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, domain.RoleOperator, resp.Role)
	claims, err := env.auth.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "maria", claims.Username)

	code, body = env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "maria", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid_credentials", errorCode(t, body))

	code, _ = env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "ghost", Password: "password1"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestLogin_RateLimited(t *testing.T) {
	env := newTestEnv(t)

	for i := range 5 {
		code, _ := env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "maria", Password: "bad"})
		require.Equal(t, http.StatusUnauthorized, code, "attempt %d", i+1)
	}
	code, body := env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "maria", Password: "password1"})
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "rate_limited", errorCode(t, body))
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(t, http.MethodGet, "/api/matches", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = env.do(t, http.MethodGet, "/api/matches", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = env.do(t, http.MethodPost, "/api/sync", env.opToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = env.do(t, http.MethodPost, "/api/users", env.opToken, CreateUserRequest{Username: "x", Password: "password1"})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestMeAndPassword(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodGet, "/api/me", env.opToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"username":"maria"`)
	assert.NotContains(t, string(body), "$2a$")

	code, body = env.do(t, http.MethodPost, "/api/me/password", env.opToken,
		ChangePasswordRequest{CurrentPassword: "password1", NewPassword: "short"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", errorCode(t, body))

	code, _ = env.do(t, http.MethodPost, "/api/me/password", env.opToken,
		ChangePasswordRequest{CurrentPassword: "wrong-one", NewPassword: "new-password"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = env.do(t, http.MethodPost, "/api/me/password", env.opToken,
		ChangePasswordRequest{CurrentPassword: "password1", NewPassword: "new-password"})
	require.Equal(t, http.StatusNoContent, code)

	u, err := env.users.Get(t.Context(), "maria")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(u.PasswordHash, "new-password"))
}

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(t, http.MethodPost, "/api/users", env.adminToken,
		CreateUserRequest{Username: "pablo", Password: "password1", Role: domain.RoleOperator})
	assert.Equal(t, http.StatusCreated, code)

	code, body := env.do(t, http.MethodPost, "/api/users", env.adminToken,
		CreateUserRequest{Username: "pablo", Password: "password1"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", errorCode(t, body))

	code, _ = env.do(t, http.MethodPost, "/api/users", env.adminToken,
		CreateUserRequest{Username: "otro", Password: "password1", Role: "root"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAssignSingle_ErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"ok", nil, http.StatusCreated, ""},
		{"taken", domain.ErrAlreadyAssigned, http.StatusConflict, "conflict"},
		{"away", domain.ErrAwayMatch, http.StatusUnprocessableEntity, "invalid_state"},
		{"missing match", domain.ErrMatchNotFound, http.StatusNotFound, "not_found"},
		{"unexpected", io.ErrUnexpectedEOF, http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.engine.err = tc.err

			code, body := env.do(t, http.MethodPost, "/api/matches/3/assignments", env.opToken,
				AssignRequest{Kind: domain.KindSeat, ResourceID: 5, CustomerID: 2})
			assert.Equal(t, tc.wantCode, code)
			if tc.wantErr != "" {
				assert.Equal(t, tc.wantErr, errorCode(t, body))
			}
			require.Len(t, env.engine.calls, 1)
			assert.Equal(t, assignCall{3, domain.KindSeat, 5, 2, "maria"}, env.engine.calls[0])
		})
	}
}

func TestAssignSingle_BadInput(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(t, http.MethodPost, "/api/matches/3/assignments", env.opToken,
		AssignRequest{Kind: "box", ResourceID: 5, CustomerID: 2})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodPost, "/api/matches/abc/assignments", env.opToken,
		AssignRequest{Kind: domain.KindSeat, ResourceID: 5, CustomerID: 2})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodPost, "/api/matches/3/assignments", env.opToken, map[string]any{"unknown": 1})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Empty(t, env.engine.calls)
}

func TestAssignBulk(t *testing.T) {
	env := newTestEnv(t)
	env.engine.bulk = assign.BulkResult{Assigned: 1, AlreadyAssigned: 1}

	code, body := env.do(t, http.MethodPost, "/api/matches/1/assignments/bulk", env.opToken,
		BulkAssignRequest{SeatIDs: []int64{1, 2}, CustomerID: 4})
	require.Equal(t, http.StatusOK, code)

	var res assign.BulkResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, env.engine.bulk, res)
}

func TestRelease_Idempotent(t *testing.T) {
	env := newTestEnv(t)

	for _, want := range []string{`{"released":true}`, `{"released":false}`} {
		code, body := env.do(t, http.MethodDelete, "/api/matches/1/assignments/parking/12", env.opToken, nil)
		require.Equal(t, http.StatusOK, code)
		assert.JSONEq(t, want, string(body))
	}
}

func TestMatches(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodGet, "/api/matches", env.opToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"availableSeats":4`)

	code, _ = env.do(t, http.MethodGet, "/api/matches/99", env.opToken, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = env.do(t, http.MethodGet, "/api/matches/1/assignments/seat/3", env.opToken, nil)
	assert.Equal(t, http.StatusOK, code)

	round := 7
	code, body = env.do(t, http.MethodPost, "/api/matches", env.adminToken, MatchRequest{
		Round: &round, Opponent: " Betis ", Kickoff: "2025-10-05T18:30", Home: false,
	})
	require.Equal(t, http.StatusCreated, code)
	var m domain.Match
	require.NoError(t, json.Unmarshal(body, &m))
	assert.Equal(t, "Betis", m.Opponent)
	assert.Equal(t, "Betis", m.HomeTeam)
	assert.Equal(t, "Atleti", m.AwayTeam)
	require.NotNil(t, m.Kickoff)
	madrid, _ := time.LoadLocation("Europe/Madrid")
	assert.Equal(t, "2025-10-05 18:30:00", m.KickoffLocal(madrid))

	bad := 61
	code, body = env.do(t, http.MethodPost, "/api/matches", env.adminToken, MatchRequest{Round: &bad, Opponent: "Betis"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, string(body), `"field":"round"`)

	code, _ = env.do(t, http.MethodPut, "/api/matches/1", env.adminToken, MatchRequest{Opponent: "Betis", Home: true})
	assert.Equal(t, http.StatusOK, code)

	code, _ = env.do(t, http.MethodDelete, "/api/matches/1", env.adminToken, nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = env.do(t, http.MethodDelete, "/api/matches/1", env.adminToken, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestInventory(t *testing.T) {
	env := newTestEnv(t)

	seat := SeatRequest{Sector: 1, Gate: 2, Row: 3, Number: 4}
	code, _ := env.do(t, http.MethodPost, "/api/seats", env.opToken, seat)
	assert.Equal(t, http.StatusCreated, code)
	code, _ = env.do(t, http.MethodPost, "/api/seats", env.opToken, seat)
	assert.Equal(t, http.StatusConflict, code)
	code, _ = env.do(t, http.MethodPost, "/api/seats", env.opToken, SeatRequest{Sector: 10000, Gate: 1, Row: 1, Number: 1})
	assert.Equal(t, http.StatusBadRequest, code)

	owner := int64(1)
	code, _ = env.do(t, http.MethodPut, "/api/seats/1/owner", env.opToken, OwnerRequest{OwnerID: &owner})
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = env.do(t, http.MethodPut, "/api/parking/1/owner", env.opToken, OwnerRequest{})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = env.do(t, http.MethodPost, "/api/parking", env.opToken, ParkingRequest{ID: 7, Name: "P-7"})
	assert.Equal(t, http.StatusConflict, code)
	code, _ = env.do(t, http.MethodPost, "/api/parking", env.opToken, ParkingRequest{ID: 8, Name: "  "})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := env.do(t, http.MethodPost, "/api/customers", env.opToken, CustomerRequest{Name: " Ana "})
	require.Equal(t, http.StatusCreated, code)
	assert.Contains(t, string(body), `"name":"Ana"`)

	env.engine.err = domain.ErrCustomerExists
	code, _ = env.do(t, http.MethodPost, "/api/customers", env.opToken, CustomerRequest{Name: "ana"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = env.do(t, http.MethodDelete, "/api/customers/1", env.opToken, nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = env.do(t, http.MethodDelete, "/api/customers/2", env.opToken, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = env.do(t, http.MethodGet, "/api/customers/1/agenda", env.opToken, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestSync(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodPost, "/api/sync?force=1", env.adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"changed":2`)
	assert.Equal(t, []bool{true}, env.sync.force)

	env.sync.res = reconcile.Result{Status: reconcile.StatusFailed, Error: "upstream unavailable"}
	code, _ = env.do(t, http.MethodPost, "/api/sync", env.adminToken, nil)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, []bool{true, false}, env.sync.force)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	code, body := env.do(t, http.MethodGet, "/api/stats", env.adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"seats":3`)
	assert.Contains(t, string(body), `"match_list"`)
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestWebsocket_ReceivesInvalidations(t *testing.T) {
	env := newTestEnv(t)
	l := ledger.New()
	l.Subscribe(env.hub.Notify)

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/api/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+env.opToken, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	l.Bump(ledger.TagSeatAssign, ledger.TagAssignments)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env2 Envelope
	require.NoError(t, conn.ReadJSON(&env2))
	assert.Equal(t, "invalidate", env2.Type)

	var p InvalidatePayload
	require.NoError(t, json.Unmarshal(env2.Payload, &p))
	assert.Equal(t, []ledger.Tag{ledger.TagSeatAssign, ledger.TagAssignments}, p.Tags)

	env.hub.CloseAll()
	assert.Zero(t, env.hub.Len())
}
