// Package ratelimit implements fixed-window request counting. Windows
// reset at fixed intervals rather than sliding; counting is
// check-and-increment on every call, so an over-limit caller keeps
// growing its count until the window naturally resets. The trade is
// deliberate: no allocation beyond the window record, slight
// over-restriction near window boundaries.
package ratelimit

import (
	"sync"
	"time"
)

const (
	sweepInterval     = 10 * time.Minute
	staleAfter        = 10 * time.Minute
	endpointSeparator = ":"
)

// Defaults per dimension, requests per window.
const (
	DefaultIPLimit       = 60
	DefaultUserLimit     = 100
	DefaultEndpointLimit = 30
	DefaultWindow        = time.Minute
)

type window struct {
	count   int
	start   time.Time
	touched time.Time
}

// Options configures a Limiter.
type Options struct {
	IPLimit        int
	IPWindow       time.Duration
	UserLimit      int
	UserWindow     time.Duration
	EndpointLimit  int
	EndpointWindow time.Duration
	// ExemptUserIDs bypass the user dimension entirely.
	ExemptUserIDs []string
}

// Limiter owns three independent fixed-window dimensions (IP, user,
// endpoint+IP) and the sweep goroutine that bounds their memory.
type Limiter struct {
	mu        sync.Mutex
	ip        map[string]*window
	user      map[string]*window
	endpoint  map[string]*window
	exempt    map[string]struct{}
	opts      Options
	now       func() time.Time
	stop      chan struct{}
	stopOnce  sync.Once
	sweepDone chan struct{}
}

// New builds a limiter and starts its background sweep.
func New(opts Options) *Limiter {
	if opts.IPLimit <= 0 {
		opts.IPLimit = DefaultIPLimit
	}
	if opts.UserLimit <= 0 {
		opts.UserLimit = DefaultUserLimit
	}
	if opts.EndpointLimit <= 0 {
		opts.EndpointLimit = DefaultEndpointLimit
	}
	if opts.IPWindow <= 0 {
		opts.IPWindow = DefaultWindow
	}
	if opts.UserWindow <= 0 {
		opts.UserWindow = DefaultWindow
	}
	if opts.EndpointWindow <= 0 {
		opts.EndpointWindow = DefaultWindow
	}

	exempt := make(map[string]struct{}, len(opts.ExemptUserIDs))
	for _, id := range opts.ExemptUserIDs {
		exempt[id] = struct{}{}
	}

	l := &Limiter{
		ip:        make(map[string]*window),
		user:      make(map[string]*window),
		endpoint:  make(map[string]*window),
		exempt:    exempt,
		opts:      opts,
		now:       time.Now,
		stop:      make(chan struct{}),
		sweepDone: make(chan struct{}),
	}

	go l.sweepLoop()

	return l
}

// Stop terminates the sweep goroutine.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
	<-l.sweepDone
}

// AllowIP counts a request against the IP dimension and reports whether
// it stays within the limit.
func (l *Limiter) AllowIP(ip string) bool {
	return !l.check(l.ip, ip, l.opts.IPLimit, l.opts.IPWindow)
}

// AllowUser counts a request against the user dimension. Empty user ids
// and exempt users always pass without counting.
func (l *Limiter) AllowUser(userID string) bool {
	if userID == "" {
		return true
	}
	if _, ok := l.exempt[userID]; ok {
		return true
	}
	return !l.check(l.user, userID, l.opts.UserLimit, l.opts.UserWindow)
}

// AllowEndpoint counts a request against the endpoint+IP composite
// dimension.
func (l *Limiter) AllowEndpoint(endpoint, ip string) bool {
	return !l.check(l.endpoint, endpoint+endpointSeparator+ip, l.opts.EndpointLimit, l.opts.EndpointWindow)
}

// check is the fixed-window algorithm: fetch-or-create, reset if the
// window elapsed, increment, compare. It returns true when the count
// exceeds the limit.
func (l *Limiter) check(dimension map[string]*window, key string, limit int, windowDur time.Duration) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := dimension[key]
	if !ok {
		w = &window{start: now}
		dimension[key] = w
	}

	if now.Sub(w.start) > windowDur {
		w.count = 0
		w.start = now
	}

	w.count++
	w.touched = now

	return w.count > limit
}

func (l *Limiter) sweepLoop() {
	defer close(l.sweepDone)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep removes windows untouched for longer than the retention
// threshold, regardless of whether they are mid-window.
func (l *Limiter) sweep() {
	cutoff := l.now().Add(-staleAfter)

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, dimension := range []map[string]*window{l.ip, l.user, l.endpoint} {
		for key, w := range dimension {
			if w.touched.Before(cutoff) {
				delete(dimension, key)
			}
		}
	}
}
