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
	crand "crypto/rand"
	"math/rand/v2"
	"sync"
)

const (
	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// KeyLength is the length of generated passwords and one-time keys.
	KeyLength = 20

	stirBytes = 64
)

// RandomSource generates random strings from a ChaCha8 stream seeded by the
// operating system. Each component that needs randomness owns its own
// source; there is no package-level generator.
type RandomSource struct {
	once sync.Once
	mu   sync.Mutex
	rng  *rand.Rand
}

func NewRandomSource() *RandomSource {
	return &RandomSource{}
}

func (s *RandomSource) init() {
	var seed [32]byte
	_, _ = crand.Read(seed[:]) // crypto/rand.Read does not fail on supported platforms
	chacha := rand.NewChaCha8(seed)
	// discard the first block of output
	var stir [stirBytes]byte
	_, _ = chacha.Read(stir[:])
	s.rng = rand.New(chacha)
}

// Alphanumeric returns n characters drawn uniformly from [A-Za-z0-9].
func (s *RandomSource) Alphanumeric(n int) string {
	s.once.Do(s.init)
	s.mu.Lock()
	defer s.mu.Unlock()

	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[s.rng.IntN(len(alphanumeric))]
	}
	return string(b)
}

func (s *RandomSource) GeneratePassword() string {
	return s.Alphanumeric(KeyLength)
}

func (s *RandomSource) GenerateActivationKey() string {
	return s.Alphanumeric(KeyLength)
}

func (s *RandomSource) GenerateResetKey() string {
	return s.Alphanumeric(KeyLength)
}
