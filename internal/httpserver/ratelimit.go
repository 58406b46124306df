// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package httpserver

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cardinalhq/bootkit/config"
	"github.com/cardinalhq/bootkit/internal/webutil"
)

const HeaderRateLimitRemaining = "X-Rate-Limit-Remaining"

// RateLimiter allows Limit requests per client in each fixed window.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int64
	window  time.Duration
	clients map[string]*clientWindow
	now     func() time.Time
}

type clientWindow struct {
	start time.Time
	count int64
}

func NewRateLimiter(cfg config.RateLimitingConfig) *RateLimiter {
	window := time.Duration(cfg.DurationInSeconds) * time.Second
	if window <= 0 {
		window = time.Duration(config.DefaultRateLimitingDurationSeconds) * time.Second
	}
	return &RateLimiter{
		limit:   cfg.Limit,
		window:  window,
		clients: map[string]*clientWindow{},
		now:     time.Now,
	}
}

// Allow counts one request for key. reset is when the current window ends.
func (rl *RateLimiter) Allow(key string) (allowed bool, remaining int64, reset time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cw, ok := rl.clients[key]
	if !ok || now.Sub(cw.start) >= rl.window {
		cw = &clientWindow{start: now}
		rl.clients[key] = cw
	}
	reset = cw.start.Add(rl.window)
	if cw.count >= rl.limit {
		return false, 0, reset
	}
	cw.count++
	return true, rl.limit - cw.count, reset
}

// Sweep forgets clients whose window has ended.
func (rl *RateLimiter) Sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, cw := range rl.clients {
		if now.Sub(cw.start) >= rl.window {
			delete(rl.clients, key)
		}
	}
}

func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Run sweeps once per window until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Sweep()
		}
	}
}

// Middleware keys on the client IP. onReject may be nil.
func (rl *RateLimiter) Middleware(onReject func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, remaining, reset := rl.Allow(clientIP(r))
			w.Header().Set(HeaderRateLimitRemaining, strconv.FormatInt(remaining, 10))
			if !allowed {
				if onReject != nil {
					onReject()
				}
				retry := max(int64(reset.Sub(rl.now()).Seconds()), 1)
				w.Header().Set("Retry-After", strconv.FormatInt(retry, 10))
				webutil.WriteAPIError(w, http.StatusTooManyRequests, webutil.CodeRateLimited, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
