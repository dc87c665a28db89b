// Package sessionclient mirrors the server's session state for Go
// clients the way the browser app mirrors it: a cached session with
// expiry awareness, an inactivity clock, and a background health
// check.
package sessionclient

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is the client's view of the signed-in identity.
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Username      string `json:"username,omitempty"`
	Role          string `json:"role"`
	PrivilegeRole string `json:"privilege_role"`
}

// Session is the client-side session mirror.
type Session struct {
	AccessToken string `json:"access_token"`
	CSRFToken   string `json:"csrf_token,omitempty"`
	User        User   `json:"user"`
}

// Revalidator asks the server whether the session is still good.
type Revalidator interface {
	CheckSession(ctx context.Context) (bool, error)
}

const (
	// expiryLead treats a token with less than this much life left as
	// already expired, so a request never departs with a token that
	// dies in flight.
	expiryLead = 5 * time.Minute

	defaultCheckInterval   = time.Minute
	defaultInactivityLimit = 30 * time.Minute

	csrfHeader = "x-csrf-token"
)

type Options struct {
	// Revalidator is consulted by the health check; nil skips the
	// server round-trip.
	Revalidator Revalidator
	// CheckInterval is the health-check cadence.
	CheckInterval time.Duration
	// InactivityLimit clears the session after this much idle time.
	InactivityLimit time.Duration
}

// Store holds the mirrored session. All methods are safe for
// concurrent use.
type Store struct {
	opts Options
	http *http.Client
	now  func() time.Time

	mu           sync.Mutex
	session      *Session
	lastActivity time.Time
	stop         chan struct{}
}

func New(opts Options) *Store {
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = defaultCheckInterval
	}
	if opts.InactivityLimit <= 0 {
		opts.InactivityLimit = defaultInactivityLimit
	}

	jar, _ := cookiejar.New(nil)
	return &Store{
		opts: opts,
		http: &http.Client{Jar: jar},
		now:  time.Now,
	}
}

// Set replaces the mirrored session. A non-nil session starts the
// health check; nil is equivalent to Clear.
func (s *Store) Set(session *Session) {
	if session == nil {
		s.Clear()
		return
	}

	s.mu.Lock()
	s.session = session
	s.lastActivity = s.now()
	if s.stop == nil {
		s.stop = make(chan struct{})
		go s.healthLoop(s.stop)
	}
	s.mu.Unlock()
}

// Current returns the mirrored session, nil when signed out.
func (s *Store) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// IsExpired reports whether the held access token is unusable: absent,
// undecodable, or within the expiry lead of its exp claim.
func (s *Store) IsExpired() bool {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()

	if session == nil {
		return true
	}
	remaining, ok := tokenRemaining(session.AccessToken, s.now())
	if !ok {
		return true
	}
	return remaining < expiryLead
}

// UpdateActivity records user activity, deferring the inactivity
// clear.
func (s *Store) UpdateActivity() {
	s.mu.Lock()
	s.lastActivity = s.now()
	s.mu.Unlock()
}

// Clear drops the session, stops the health check and empties the
// cookie jar.
func (s *Store) Clear() {
	s.mu.Lock()
	s.session = nil
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	jar, _ := cookiejar.New(nil)
	s.http.Jar = jar
	s.mu.Unlock()
}

// Refresh revalidates the session with the server; a definitive "no"
// clears the store. Transport errors leave the session alone.
func (s *Store) Refresh(ctx context.Context) error {
	if s.opts.Revalidator == nil {
		return nil
	}

	ok, err := s.opts.Revalidator.CheckSession(ctx)
	if err != nil {
		return err
	}
	if !ok {
		s.Clear()
	}
	return nil
}

// Do sends a request through the store's cookie-jar client, attaching
// the CSRF header for mutating methods and recording activity.
func (s *Store) Do(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()

	if session != nil && session.CSRFToken != "" {
		switch req.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
		default:
			req.Header.Set(csrfHeader, session.CSRFToken)
		}
	}

	s.UpdateActivity()
	return s.http.Do(req)
}

func (s *Store) healthLoop(stop chan struct{}) {
	ticker := time.NewTicker(s.opts.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.healthCheck()
		}
	}
}

func (s *Store) healthCheck() {
	s.mu.Lock()
	session := s.session
	idle := s.now().Sub(s.lastActivity)
	s.mu.Unlock()

	if session == nil {
		return
	}

	if s.IsExpired() || idle > s.opts.InactivityLimit {
		s.Clear()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = s.Refresh(ctx)
}

// tokenRemaining decodes the exp claim without verifying the
// signature; the client holds no key, the server re-checks everything
// anyway.
func tokenRemaining(token string, now time.Time) (time.Duration, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0, false
	}
	return exp.Sub(now), true
}
