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

package migrations

import (
	"context"
	"sync/atomic"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVersions struct {
	versions []uint
	dirty    bool
	calls    atomic.Int32
}

func (f *fakeVersions) Version(context.Context) (uint, bool, error) {
	i := int(f.calls.Add(1)) - 1
	if i >= len(f.versions) {
		i = len(f.versions) - 1
	}
	return f.versions[i], f.dirty, nil
}

func TestLatestVersion(t *testing.T) {
	v, err := LatestVersion(Files())
	require.NoError(t, err)
	assert.Equal(t, uint(1760100000), v)

	_, err = LatestVersion(fstest.MapFS{"README.md": {}})
	assert.Error(t, err)

	v, err = LatestVersion(fstest.MapFS{
		"2_b.up.sql":    {},
		"10_c.down.sql": {},
		"3_a.up.sql":    {},
		"x_bad.up.sql":  {},
	})
	require.NoError(t, err)
	assert.Equal(t, uint(3), v)
}

func TestCheckExpectedVersion(t *testing.T) {
	captureLogs(t)
	latest, err := LatestVersion(Files())
	require.NoError(t, err)

	t.Run("current", func(t *testing.T) {
		assert.NoError(t, CheckExpectedVersion(t.Context(), &fakeVersions{versions: []uint{latest}}))
	})

	t.Run("catches up", func(t *testing.T) {
		db := &fakeVersions{versions: []uint{0, latest - 1, latest}}
		err := CheckExpectedVersion(t.Context(), db, WithRetryInterval(time.Millisecond), WithTimeout(time.Second))
		require.NoError(t, err)
		assert.Equal(t, int32(3), db.calls.Load())
	})

	t.Run("timeout", func(t *testing.T) {
		db := &fakeVersions{versions: []uint{0}}
		err := CheckExpectedVersion(t.Context(), db, WithRetryInterval(time.Millisecond), WithTimeout(5*time.Millisecond))
		assert.ErrorContains(t, err, "timeout waiting for migrations")
	})

	t.Run("warn", func(t *testing.T) {
		db := &fakeVersions{versions: []uint{0}}
		assert.NoError(t, CheckExpectedVersion(t.Context(), db, WithCheckMode(CheckModeWarn)))
		assert.Equal(t, int32(1), db.calls.Load())
	})

	t.Run("skip", func(t *testing.T) {
		db := &fakeVersions{versions: []uint{0}}
		assert.NoError(t, CheckExpectedVersion(t.Context(), db, WithCheckMode(CheckModeSkip)))
		assert.Equal(t, int32(0), db.calls.Load())
	})

	t.Run("newer", func(t *testing.T) {
		assert.ErrorContains(t, CheckExpectedVersion(t.Context(), &fakeVersions{versions: []uint{latest + 1}}), "newer")
	})

	t.Run("dirty", func(t *testing.T) {
		db := &fakeVersions{versions: []uint{latest}, dirty: true}
		assert.ErrorIs(t, CheckExpectedVersion(t.Context(), db), ErrDirty)
		assert.NoError(t, CheckExpectedVersion(t.Context(), db, WithAllowDirty(true)))
	})
}
