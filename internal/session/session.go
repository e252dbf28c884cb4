// Package session binds a browser to the room code and display name chosen
// on the entry page, using a signed cookie so the websocket upgrade can
// recover the binding without server-side state.
package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the cookie the session token travels in.
const CookieName = "parlor_session"

// ErrNoSession reports a missing, expired, or tampered session cookie.
var ErrNoSession = errors.New("no valid session")

// Binding is the association between a connection and the room it selected.
// Both fields must be set before any room operation is permitted.
type Binding struct {
	Room string
	Name string
}

// Manager issues and verifies session cookies.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager creates a manager signing with the given secret.
func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl}
}

// Issue signs a binding and sets it as an HttpOnly cookie on the response.
func (m *Manager) Issue(w http.ResponseWriter, b Binding) error {
	if b.Room == "" || b.Name == "" {
		return ErrNoSession
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"room": b.Room,
		"name": b.Name,
		"iat":  now.Unix(),
		"exp":  now.Add(m.ttl).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Bind recovers the binding from the request's cookie. Any parse or
// verification failure collapses into ErrNoSession; callers redirect to the
// entry page rather than distinguishing the causes.
func (m *Manager) Bind(r *http.Request) (Binding, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return Binding{}, ErrNoSession
	}

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return Binding{}, ErrNoSession
	}

	b := Binding{}
	b.Room, _ = claims["room"].(string)
	b.Name, _ = claims["name"].(string)
	if b.Room == "" || b.Name == "" {
		return Binding{}, ErrNoSession
	}
	return b, nil
}

// Clear expires the session cookie. The entry page does this on every visit,
// so stale bindings never leak into a new room selection.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
