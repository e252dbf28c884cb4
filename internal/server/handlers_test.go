package server_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlor-chat/parlor/internal/hub"
	"github.com/parlor-chat/parlor/internal/room"
	"github.com/parlor-chat/parlor/internal/server"
	"github.com/parlor-chat/parlor/internal/session"
)

type testApp struct {
	store *room.Store
	hub   *hub.Hub
	srv   *httptest.Server
}

func newTestApp(t *testing.T, persist room.Snapshotter) *testApp {
	return newTestAppWithOrigins(t, persist, []string{"*"})
}

func newTestAppWithOrigins(t *testing.T, persist room.Snapshotter, origins []string) *testApp {
	t.Helper()

	log := zerolog.Nop()
	store := room.NewStore(4, persist, log)
	broadcaster := hub.NewHub(store, hub.Limits{
		MaxMessageSize: 512,
		RateBurst:      100,
		RateRefill:     time.Second,
	}, log)
	go broadcaster.Run()

	sessions := session.NewManager("test-secret", time.Hour)
	handler := server.NewHandler(store, broadcaster, sessions, origins, log)
	srv := httptest.NewServer(server.NewRouter(handler, log, origins))

	t.Cleanup(func() {
		srv.Close()
		_ = broadcaster.Shutdown(2 * time.Second)
	})
	return &testApp{store: store, hub: broadcaster, srv: srv}
}

// noRedirect returns a client that surfaces redirects instead of following
// them, so tests can assert on Location and Set-Cookie.
func noRedirect() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postEntry(t *testing.T, app *testApp, name, code, action string) *http.Response {
	t.Helper()
	form := url.Values{"name": {name}, "code": {code}, "action": {action}}
	resp, err := noRedirect().PostForm(app.srv.URL+"/", form)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie on response")
	return nil
}

func TestHomePage(t *testing.T) {
	app := newTestApp(t, nil)

	resp, err := http.Get(app.srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	page := body(t, resp)
	assert.Contains(t, page, `name="name"`)
	assert.Contains(t, page, `name="code"`)
}

func TestEntryRejectsBlankName(t *testing.T) {
	app := newTestApp(t, nil)

	resp := postEntry(t, app, "   ", "ABCD", "join")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), "Please enter a name.")
	assert.Equal(t, 0, app.store.Count(), "room table must stay unchanged")
}

func TestEntryRejectsMissingCode(t *testing.T) {
	app := newTestApp(t, nil)

	resp := postEntry(t, app, "Alice", "", "join")
	assert.Contains(t, body(t, resp), "Please enter a room code.")
	assert.Equal(t, 0, app.store.Count())
}

func TestEntryRejectsUnknownRoom(t *testing.T) {
	app := newTestApp(t, nil)

	resp := postEntry(t, app, "Alice", "NOPE", "join")
	page := body(t, resp)
	assert.Contains(t, page, "Room does not exist.")
	// Submitted values are preserved for re-display.
	assert.Contains(t, page, `value="Alice"`)
	assert.Contains(t, page, `value="NOPE"`)
	assert.Equal(t, 0, app.store.Count(), "join must never create a room")
}

func TestEntryCreatesRoom(t *testing.T) {
	app := newTestApp(t, nil)

	resp := postEntry(t, app, "Alice", "", "create")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/room", resp.Header.Get("Location"))
	sessionCookie(t, resp)
	assert.Equal(t, 1, app.store.Count())
}

func TestEntryFailsWhenCodeSpaceExhausted(t *testing.T) {
	app := newTestApp(t, nil)
	app.store.SetCodeSource(func(int) string { return "AAAA" })

	first := postEntry(t, app, "Alice", "", "create")
	assert.Equal(t, http.StatusSeeOther, first.StatusCode)

	second := postEntry(t, app, "Bob", "", "create")
	assert.Equal(t, http.StatusServiceUnavailable, second.StatusCode)
	assert.Equal(t, 1, app.store.Count(), "the exhausted create must not add a room")
}

func TestEntryJoinNormalizesCase(t *testing.T) {
	app := newTestApp(t, nil)
	app.store.SetCodeSource(func(int) string { return "ABCD" })
	_, err := app.store.Create()
	require.NoError(t, err)

	resp := postEntry(t, app, "Alice", "abcd", "join")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestRoomPageWithoutSessionRedirects(t *testing.T) {
	app := newTestApp(t, nil)

	resp, err := noRedirect().Get(app.srv.URL + "/room")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestRoomPageShowsHistory(t *testing.T) {
	app := newTestApp(t, nil)
	app.store.SetCodeSource(func(int) string { return "ABCD" })
	_, err := app.store.Create()
	require.NoError(t, err)
	require.NoError(t, app.store.Append("ABCD", room.Message{Sender: "Alice", Body: "hi there", Kind: room.KindChat}))

	entry := postEntry(t, app, "Bob", "ABCD", "join")
	cookie := sessionCookie(t, entry)

	req, err := http.NewRequest(http.MethodGet, app.srv.URL+"/room", nil)
	require.NoError(t, err)
	req.AddCookie(cookie)
	resp, err := noRedirect().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	page := body(t, resp)
	assert.Contains(t, page, "ABCD")
	assert.Contains(t, page, "hi there")
}

func TestRoomPageForDeadRoomRedirects(t *testing.T) {
	app := newTestApp(t, nil)
	app.store.SetCodeSource(func(int) string { return "ABCD" })
	_, err := app.store.Create()
	require.NoError(t, err)

	entry := postEntry(t, app, "Alice", "ABCD", "join")
	cookie := sessionCookie(t, entry)

	// Tear the room down behind the session's back.
	require.NoError(t, app.store.Join("ABCD"))
	app.store.Leave("ABCD")

	req, err := http.NewRequest(http.MethodGet, app.srv.URL+"/room", nil)
	require.NoError(t, err)
	req.AddCookie(cookie)
	resp, err := noRedirect().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

func TestHomePageClearsSession(t *testing.T) {
	app := newTestApp(t, nil)

	resp, err := noRedirect().Get(app.srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	var cleared bool
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "entry page should expire the session cookie")
}

func TestHealthEndpoint(t *testing.T) {
	app := newTestApp(t, nil)

	resp, err := http.Get(app.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, nil)

	resp, err := http.Get(app.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body(t, resp), "parlor_rooms_active")
}
