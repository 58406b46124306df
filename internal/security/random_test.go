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

package security

import (
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

var alnum20 = regexp.MustCompile(`^[A-Za-z0-9]{20}$`)

func TestGeneratedKeys(t *testing.T) {
	s := NewRandomSource()

	assert.Regexp(t, alnum20, s.GeneratePassword())
	assert.Regexp(t, alnum20, s.GenerateActivationKey())
	assert.Regexp(t, alnum20, s.GenerateResetKey())
	assert.NotEqual(t, s.GenerateResetKey(), s.GenerateResetKey())
}

func TestAlphanumericLength(t *testing.T) {
	s := NewRandomSource()
	assert.Equal(t, "", s.Alphanumeric(0))
	assert.Len(t, s.Alphanumeric(1), 1)
	assert.Len(t, s.Alphanumeric(100), 100)
}

func TestSourcesAreIndependent(t *testing.T) {
	a, b := NewRandomSource(), NewRandomSource()
	assert.NotEqual(t, a.Alphanumeric(32), b.Alphanumeric(32))
}

func TestRandomSourceConcurrentUse(t *testing.T) {
	s := NewRandomSource()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				assert.Regexp(t, alnum20, s.GeneratePassword())
			}
		}()
	}
	wg.Wait()
}
