// Package session holds the signed-in user for the client side.
//
// A Manager is an explicit object passed to whoever needs the current user,
// rather than a process-wide global. Interested parties Subscribe to hear
// about sign-in, sign-out and expiry.
//
// The Manager is also an oauth2.TokenSource, so the remote gateway can attach
// the access token to requests without knowing where it comes from.
package session

import (
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/eventhub/internal/apperror"
	"github.com/sakif/eventhub/internal/model"
)

// UserIDExtra is the token extra field that carries the session's user ID.
// It matches remote.UserIDExtra.
const UserIDExtra = "user_id"

var (
	errNoSession = apperror.Unauthenticated("sign in required")
	errExpired   = apperror.Unauthenticated("session expired, sign in again")
)

// Listener receives the new session, or nil after sign-out or expiry.
type Listener func(*model.Session)

type subscription struct {
	id int
	fn Listener
}

// Manager is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	current *model.Session
	subs    []subscription
	nextID  int
	now     func() time.Time
}

var _ oauth2.TokenSource = (*Manager)(nil)

func NewManager() *Manager {
	return &Manager{now: time.Now}
}

// Current returns a copy of the live session, or nil. A session found to be
// expired is cleared and subscribers are told.
func (m *Manager) Current() *model.Session {
	s, _ := m.live()
	return s
}

// UserID returns the signed-in user's ID or an ErrUnauthenticated error.
func (m *Manager) UserID() (string, error) {
	s, err := m.live()
	if err != nil {
		return "", err
	}
	return s.UserID, nil
}

// Token implements oauth2.TokenSource. The user ID rides along as the
// "user_id" extra.
func (m *Manager) Token() (*oauth2.Token, error) {
	s, err := m.live()
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{
		AccessToken: s.AccessToken,
		TokenType:   "Bearer",
		Expiry:      s.ExpiresAt,
	}
	return tok.WithExtra(map[string]any{UserIDExtra: s.UserID}), nil
}

// Set installs s as the current session (sign-in) and notifies subscribers.
func (m *Manager) Set(s *model.Session) {
	cp := *s
	m.mu.Lock()
	m.current = &cp
	subs := m.snapshotLocked()
	m.mu.Unlock()

	notify(subs, &cp)
}

// Clear drops the session (sign-out). Subscribers are notified only if there
// was a session to drop.
func (m *Manager) Clear() {
	m.mu.Lock()
	had := m.current != nil
	m.current = nil
	subs := m.snapshotLocked()
	m.mu.Unlock()

	if had {
		notify(subs, nil)
	}
}

// Subscribe registers fn and returns a function that removes it. Listeners
// run on the goroutine that changed the session, after the Manager's lock is
// released, in subscription order.
func (m *Manager) Subscribe(fn Listener) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs = append(m.subs, subscription{id: id, fn: fn})
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, s := range m.subs {
				if s.id == id {
					m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// live returns a copy of the live session, expiring it if needed.
func (m *Manager) live() (*model.Session, error) {
	m.mu.Lock()
	if m.current == nil {
		m.mu.Unlock()
		return nil, errNoSession
	}
	if m.current.Expired(m.now()) {
		m.current = nil
		subs := m.snapshotLocked()
		m.mu.Unlock()
		notify(subs, nil)
		return nil, errExpired
	}
	cp := *m.current
	m.mu.Unlock()
	return &cp, nil
}

func (m *Manager) snapshotLocked() []subscription {
	return append([]subscription(nil), m.subs...)
}

func notify(subs []subscription, s *model.Session) {
	for _, sub := range subs {
		if s == nil {
			sub.fn(nil)
			continue
		}
		cp := *s
		sub.fn(&cp)
	}
}
