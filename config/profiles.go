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
	"slices"
	"strings"
)

// Runtime profiles. See https://www.jhipster.tech/profiles/ for the origin
// of the names.
const (
	ProfileDevelopment = "dev"
	ProfileTest        = "test"
	ProfileProduction  = "prod"
	ProfileCloud       = "cloud"
	ProfileHeroku      = "heroku"
	ProfileAWSECS      = "aws-ecs"
	ProfileSwagger     = "swagger"
	ProfileNoMigration = "no-liquibase"
	ProfileK8s         = "k8s"
)

// Profiles is the set of active runtime profiles.
type Profiles []string

// ParseProfiles splits a comma separated profile list, dropping blanks.
func ParseProfiles(s string) Profiles {
	var out Profiles
	for p := range strings.SplitSeq(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Accepts reports whether any of the named profiles is active.
func (p Profiles) Accepts(names ...string) bool {
	for _, name := range names {
		if slices.Contains(p, name) {
			return true
		}
	}
	return false
}

// ActiveProfiles returns the active profiles of the tree. Entries may
// themselves be comma separated, as they are when set from the environment.
func (p *Properties) ActiveProfiles() Profiles {
	var out Profiles
	for _, entry := range p.Profiles.Active {
		for _, name := range ParseProfiles(entry) {
			if !slices.Contains(out, name) {
				out = append(out, name)
			}
		}
	}
	return out
}
