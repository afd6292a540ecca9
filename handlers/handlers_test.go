package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patiponrmutl/thaimilitary/clock"
	"github.com/patiponrmutl/thaimilitary/handlers"
	"github.com/patiponrmutl/thaimilitary/identity"
	"github.com/patiponrmutl/thaimilitary/intake"
	"github.com/patiponrmutl/thaimilitary/internal/testdb"
	"github.com/patiponrmutl/thaimilitary/models"
	"github.com/patiponrmutl/thaimilitary/routes"
	"github.com/patiponrmutl/thaimilitary/store"
	"github.com/patiponrmutl/thaimilitary/triage"
)

const adminEmail = "admin@thaimilitary.online"

var bangkok = time.FixedZone("ICT", 7*3600)

type app struct {
	e     *echo.Echo
	store *store.GormStore
	clock *clock.FakeClock
}

func newApp(t *testing.T) *app {
	t.Helper()

	db := testdb.Open(t)
	clk := clock.Fake(time.Date(2025, 1, 2, 8, 0, 0, 0, bangkok))
	st := store.NewGormStore(db, store.WithClock(clk))

	accounts := identity.NewAccounts(db, "test-secret", time.Hour, identity.WithClock(clk))
	_, err := accounts.Register(context.Background(), adminEmail, "admin-pass")
	require.NoError(t, err)
	_, err = accounts.Register(context.Background(), "clerk@example.com", "clerk-pass")
	require.NoError(t, err)
	gate := identity.NewGate(accounts, adminEmail, nil)

	intents := triage.NewConfirmations(clk, 2*time.Minute)

	e := echo.New()
	routes.Register(e, routes.Deps{
		Health:   handlers.NewHealthHandler(db),
		Auth:     handlers.NewAuthHandler(gate, nil),
		Requests: handlers.NewRequestHandler(intake.NewForm(st, bangkok), nil),
		Triage:   handlers.NewTriageHandler(st, handlers.TriageOptions{Clock: clk, Location: bangkok, Intents: intents}),
		Live:     handlers.NewLiveHandler(st, st, handlers.LiveOptions{Clock: clk, Location: bangkok, Intents: intents, Refresh: time.Minute}),
		Provider: accounts,
		Gate:     gate,
	})
	return &app{e: e, store: st, clock: clk}
}

func (a *app) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var rd *strings.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = strings.NewReader(string(b))
	} else {
		rd = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 && strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func (a *app) login(t *testing.T) string {
	t.Helper()

	code, body := a.do(t, http.MethodPost, "/admin/login", "", map[string]string{"email": adminEmail, "password": "admin-pass"})
	require.Equal(t, http.StatusOK, code)
	tok, _ := body["token"].(string)
	require.NotEmpty(t, tok)
	return tok
}

func (a *app) seed(t *testing.T, name string, appt time.Time) string {
	t.Helper()

	id, err := a.store.Create(context.Background(), &models.Request{FullName: name, IDCard: "1234567890123", AppointmentDate: &appt})
	require.NoError(t, err)
	return id
}

func TestHealth(t *testing.T) {
	t.Parallel()

	a := newApp(t)
	code, body := a.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestServices(t *testing.T) {
	t.Parallel()

	a := newApp(t)
	req := httptest.NewRequest(http.MethodGet, "/services", nil)
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got []models.Service
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, models.Services, got)
}

func TestCreateRequest(t *testing.T) {
	t.Parallel()

	a := newApp(t)
	code, body := a.do(t, http.MethodPost, "/requests", "", map[string]string{
		"fullName":        "สมชาย ใจดี",
		"idCard":          "1234567890123",
		"appointmentDate": "2025-01-10T09:30",
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "pending", body["status"])
	assert.NotEmpty(t, body["id"])

	reqs, err := a.store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, reqs, 1)
}

func TestCreateRequestRejectsShortIDCard(t *testing.T) {
	t.Parallel()

	a := newApp(t)
	code, body := a.do(t, http.MethodPost, "/requests", "", map[string]string{
		"fullName":        "สมชาย ใจดี",
		"idCard":          "123456789012",
		"appointmentDate": "2025-01-10T09:30",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", body["error"])
	assert.Equal(t, "idCard", body["field"])

	reqs, err := a.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reqs)
}

func TestAdminLoginRejectsNonAdmin(t *testing.T) {
	t.Parallel()

	a := newApp(t)
	for _, creds := range []map[string]string{
		{"email": "clerk@example.com", "password": "clerk-pass"},
		{"email": adminEmail, "password": "wrong"},
	} {
		code, body := a.do(t, http.MethodPost, "/admin/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, "AUTH_FAILED", body["error"])
		assert.Equal(t, identity.AuthFailureMessage, body["message"])
	}
}

func TestAdminRoutesNeedAdminToken(t *testing.T) {
	t.Parallel()

	a := newApp(t)

	code, body := a.do(t, http.MethodGet, "/admin/requests", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "MISSING_AUTH_HEADER", body["error"])

	code, _ = a.do(t, http.MethodGet, "/admin/requests", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	req := httptest.NewRequest(http.MethodGet, "/admin/requests", nil)
	req.Header.Set(echo.HeaderAuthorization, "Token abc")
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_AUTH_HEADER")
}

func TestLogoutRevokesToken(t *testing.T) {
	t.Parallel()

	a := newApp(t)
	tok := a.login(t)

	code, _ := a.do(t, http.MethodPost, "/admin/logout", tok, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = a.do(t, http.MethodGet, "/admin/requests", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestTriageList(t *testing.T) {
	t.Parallel()

	a := newApp(t)
	tok := a.login(t)
	a.seed(t, "อนาคต", time.Date(2025, 1, 10, 9, 0, 0, 0, bangkok))
	a.seed(t, "เลยนัด", time.Date(2025, 1, 1, 9, 0, 0, 0, bangkok))

	code, body := a.do(t, http.MethodGet, "/admin/requests?tab=overdue", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "overdue", body["tab"])
	assert.Equal(t, map[string]any{"new": 1.0, "accepted": 0.0, "overdue": 1.0}, body["counts"])
	rows, _ := body["rows"].([]any)
	require.Len(t, rows, 1)
	assert.Equal(t, "เลยนัด", rows[0].(map[string]any)["fullName"])

	code, body = a.do(t, http.MethodGet, "/admin/requests?tab=later", tok, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_TAB", body["error"])
}

func TestTriageDetail(t *testing.T) {
	t.Parallel()

	a := newApp(t)
	tok := a.login(t)
	id := a.seed(t, "เลยนัด", time.Date(2025, 1, 1, 9, 0, 0, 0, bangkok))

	code, body := a.do(t, http.MethodGet, "/admin/requests/"+id, tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "overdue", body["banner"])
	assert.Equal(t, true, body["canAccept"])

	code, body = a.do(t, http.MethodGet, "/admin/requests/missing", tok, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", body["error"])
}

func TestTriageAcceptNeedsConfirm(t *testing.T) {
	t.Parallel()

	a := newApp(t)
	tok := a.login(t)
	id := a.seed(t, "สมหญิง", time.Date(2025, 1, 10, 9, 0, 0, 0, bangkok))

	code, intent := a.do(t, http.MethodPost, "/admin/requests/"+id+"/accept", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, `ต้องการรับเรื่องของ "สมหญิง" ใช่หรือไม่?`, intent["prompt"])

	r, err := a.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, r.Status, "nothing written before confirm")

	token := intent["token"].(string)
	code, _ = a.do(t, http.MethodPost, "/admin/intents/"+token+"/confirm", tok, nil)
	require.Equal(t, http.StatusOK, code)

	r, err = a.store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, r.Status)

	code, body := a.do(t, http.MethodPost, "/admin/intents/"+token+"/confirm", tok, nil)
	assert.Equal(t, http.StatusGone, code)
	assert.Equal(t, "INTENT_EXPIRED", body["error"])

	code, body = a.do(t, http.MethodPost, "/admin/requests/"+id+"/accept", tok, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ALREADY_ACCEPTED", body["error"])
}

func TestTriageDeleteCancel(t *testing.T) {
	t.Parallel()

	a := newApp(t)
	tok := a.login(t)
	id := a.seed(t, "สมปอง", time.Date(2025, 1, 10, 9, 0, 0, 0, bangkok))

	code, intent := a.do(t, http.MethodPost, "/admin/requests/"+id+"/delete", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ยืนยันที่จะลบข้อมูลนี้ถาวร?", intent["prompt"])
	token := intent["token"].(string)

	code, _ = a.do(t, http.MethodDelete, "/admin/intents/"+token, tok, nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = a.do(t, http.MethodDelete, "/admin/intents/"+token, tok, nil)
	assert.Equal(t, http.StatusNotFound, code)

	_, err := a.store.Get(context.Background(), id)
	require.NoError(t, err, "cancelled delete leaves the request")
}

type wsMsg struct {
	Type   string         `json:"type"`
	View   *triage.View   `json:"view"`
	Intent *triage.Intent `json:"intent"`
	Error  string         `json:"error"`
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(wsMsg) bool) wsMsg {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var m wsMsg
		require.NoError(t, conn.ReadJSON(&m))
		if match(m) {
			return m
		}
	}
}

func TestLiveDashboard(t *testing.T) {
	t.Parallel()

	a := newApp(t)
	tok := a.login(t)
	id := a.seed(t, "สมชาย", time.Date(2025, 1, 10, 9, 0, 0, 0, bangkok))

	srv := httptest.NewServer(a.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/live?token=" + tok
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	m := readUntil(t, conn, func(m wsMsg) bool { return m.Type == "view" && m.View.State.String() == "live" })
	assert.Equal(t, triage.Counts{New: 1}, m.View.Counts)

	// a new submission shows up without polling
	a.seed(t, "เลยนัด", time.Date(2025, 1, 1, 9, 0, 0, 0, bangkok))
	readUntil(t, conn, func(m wsMsg) bool { return m.Type == "view" && m.View.Counts.Overdue == 1 })

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "select", "id": id}))
	m = readUntil(t, conn, func(m wsMsg) bool { return m.Type == "view" && m.View.Selected != nil })
	assert.Equal(t, id, m.View.Selected.Request.ID)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "accept", "id": id}))
	m = readUntil(t, conn, func(m wsMsg) bool { return m.Type == "intent" })
	require.NotNil(t, m.Intent)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "confirm", "token": m.Intent.Token}))
	m = readUntil(t, conn, func(m wsMsg) bool { return m.Type == "view" && m.View.Counts.Accepted == 1 })
	assert.Nil(t, m.View.Selected)
	assert.Equal(t, 0, m.View.Counts.New)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "tab", "tab": "nope"}))
	m = readUntil(t, conn, func(m wsMsg) bool { return m.Type == "error" })
	assert.Equal(t, "INVALID_TAB", m.Error)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "confirm", "token": "used"}))
	m = readUntil(t, conn, func(m wsMsg) bool { return m.Type == "error" })
	assert.Equal(t, "INTENT_EXPIRED", m.Error)
}

func TestLiveRejectsMissingToken(t *testing.T) {
	t.Parallel()

	a := newApp(t)
	srv := httptest.NewServer(a.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/live"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLiveDashboardTurnsOverdueOnRefresh(t *testing.T) {
	t.Parallel()

	a := newApp(t)
	tok := a.login(t)
	// 08:00 now; appointment five minutes from now
	a.seed(t, "ใกล้เวลา", time.Date(2025, 1, 2, 8, 5, 0, 0, bangkok))

	srv := httptest.NewServer(a.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/live?token=" + tok
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	m := readUntil(t, conn, func(m wsMsg) bool { return m.Type == "view" && m.View.State.String() == "live" })
	require.Equal(t, triage.Counts{New: 1}, m.View.Counts)
	require.Len(t, m.View.Rows, 1)

	// past the appointment and past one refresh interval; nothing is written
	a.clock.Advance(10 * time.Minute)

	m = readUntil(t, conn, func(m wsMsg) bool { return m.Type == "view" && m.View.Counts.Overdue == 1 })
	assert.Equal(t, triage.Counts{Overdue: 1}, m.View.Counts)
	assert.Empty(t, m.View.Rows, "new tab is empty once the request is overdue")

	r, err := a.store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, r[0].Status)
}
