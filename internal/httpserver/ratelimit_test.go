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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cardinalhq/bootkit/config"
)

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(config.RateLimitingConfig{Limit: 2, DurationInSeconds: 10})
	rl.now = func() time.Time { return now }

	ok, remaining, reset := rl.Allow("a")
	assert.True(t, ok)
	assert.Equal(t, int64(1), remaining)
	assert.Equal(t, now.Add(10*time.Second), reset)

	ok, _, _ = rl.Allow("a")
	assert.True(t, ok)
	ok, remaining, _ = rl.Allow("a")
	assert.False(t, ok)
	assert.Equal(t, int64(0), remaining)

	ok, _, _ = rl.Allow("b")
	assert.True(t, ok, "clients are limited independently")

	now = now.Add(10 * time.Second)
	ok, _, _ = rl.Allow("a")
	assert.True(t, ok, "a new window starts")
}

func TestRateLimiterSweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(config.RateLimitingConfig{Limit: 1, DurationInSeconds: 10})
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(5 * time.Second)
	rl.Allow("b")
	assert.Equal(t, 2, rl.Len())

	now = now.Add(6 * time.Second)
	rl.Sweep()
	assert.Equal(t, 1, rl.Len())
}

func TestRateLimiterDefaultWindow(t *testing.T) {
	rl := NewRateLimiter(config.RateLimitingConfig{Limit: 1})
	assert.Equal(t, time.Duration(config.DefaultRateLimitingDurationSeconds)*time.Second, rl.window)
}
