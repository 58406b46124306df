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

package cachekey

import (
	"log/slog"
	"time"

	"github.com/cardinalhq/bootkit/config"
)

// RandomPrefixLength is the length of the prefix used when the binary
// carries no build metadata.
const RandomPrefixLength = 12

// RandomSource produces random alphanumeric strings.
type RandomSource interface {
	Alphanumeric(n int) string
}

// Generator builds cache keys that are stable for the life of the process
// and change whenever a new build is deployed. Without any build metadata
// the prefix is random, so every restart invalidates externally persisted
// entries.
type Generator struct {
	prefix string
}

func NewGenerator(info config.BuildInfo, rnd RandomSource) *Generator {
	prefix := Prefix(info, rnd)
	slog.Debug("Cache key prefix selected", slog.String("prefix", prefix))
	return &Generator{prefix: prefix}
}

// Prefix picks the first available of the short commit id, the build time
// (as an ISO-8601 instant) and the build version, falling back to a random
// alphanumeric string.
func Prefix(info config.BuildInfo, rnd RandomSource) string {
	switch {
	case info.ShortCommitID != "":
		return info.ShortCommitID
	case info.Time != nil:
		return info.Time.UTC().Format(time.RFC3339Nano)
	case info.Version != "":
		return info.Version
	default:
		return rnd.Alphanumeric(RandomPrefixLength)
	}
}

func (g *Generator) Prefix() string {
	return g.prefix
}

// Generate returns the key for a call of method with args.
func (g *Generator) Generate(method string, args ...any) Key {
	return NewKey(g.prefix, method, args...)
}
