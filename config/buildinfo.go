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

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/magiconair/properties"
)

const (
	GitPropertiesFile       = "git.properties"
	BuildInfoPropertiesFile = "META-INF/build-info.properties"

	shortCommitLength = 7
)

// BuildInfo is the optional build metadata of the running binary. Every
// field may be empty.
type BuildInfo struct {
	ShortCommitID string     `json:"commit,omitempty" yaml:"commit,omitempty"`
	Time          *time.Time `json:"time,omitempty" yaml:"time,omitempty"`
	Version       string     `json:"version,omitempty" yaml:"version,omitempty"`
}

// IsZero reports whether no metadata was found.
func (b BuildInfo) IsZero() bool {
	return b.ShortCommitID == "" && b.Time == nil && b.Version == ""
}

// ReadBuildInfo looks for git.properties and META-INF/build-info.properties
// in each directory, in order, and merges what it finds. Missing files are
// not an error; malformed ones are.
func ReadBuildInfo(dirs ...string) (BuildInfo, error) {
	var info BuildInfo
	for _, dir := range dirs {
		git, err := readProperties(filepath.Join(dir, GitPropertiesFile))
		if err != nil {
			return info, err
		}
		if git != nil && info.ShortCommitID == "" {
			info.ShortCommitID = shortCommitID(git)
		}

		build, err := readProperties(filepath.Join(dir, BuildInfoPropertiesFile))
		if err != nil {
			return info, err
		}
		if build == nil {
			continue
		}
		if info.Version == "" {
			info.Version = build.GetString("build.version", "")
		}
		if info.Time == nil {
			if raw := build.GetString("build.time", ""); raw != "" {
				t, err := time.Parse(time.RFC3339Nano, raw)
				if err != nil {
					return info, fmt.Errorf("invalid build.time %q: %w", raw, err)
				}
				t = t.UTC()
				info.Time = &t
			}
		}
	}
	return info, nil
}

// BinaryBuildInfo extracts VCS metadata stamped into the binary by the Go
// toolchain. It is used when no properties files are shipped.
func BinaryBuildInfo() BuildInfo {
	var info BuildInfo
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.ShortCommitID = truncate(s.Value, shortCommitLength)
		case "vcs.time":
			if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
				t = t.UTC()
				info.Time = &t
			}
		}
	}
	return info
}

// Or fills empty fields of b from other.
func (b BuildInfo) Or(other BuildInfo) BuildInfo {
	if b.ShortCommitID == "" {
		b.ShortCommitID = other.ShortCommitID
	}
	if b.Time == nil {
		b.Time = other.Time
	}
	if b.Version == "" {
		b.Version = other.Version
	}
	return b
}

// readProperties returns nil, nil when the file does not exist. Expansion of
// ${...} is disabled since commit messages may contain it.
func readProperties(path string) (*properties.Properties, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	loader := properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := loader.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	slog.Debug("Loaded build metadata", slog.String("path", path))
	return p, nil
}

func shortCommitID(git *properties.Properties) string {
	if abbrev := git.GetString("git.commit.id.abbrev", ""); abbrev != "" {
		return abbrev
	}
	return truncate(git.GetString("git.commit.id", ""), shortCommitLength)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
