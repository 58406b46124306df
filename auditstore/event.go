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

// Package auditstore persists audit events in PostgreSQL.
package auditstore

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
)

// Column limits of jhi_persistent_audit_event and jhi_persistent_audit_evt_data.
const (
	MaxPrincipalLen = 50
	MaxTypeLen      = 255
	MaxDataNameLen  = 150
	MaxDataValueLen = 255
)

var ErrInvalidEvent = errors.New("invalid audit event")

type Event struct {
	ID        int64             `json:"id"`
	Principal string            `json:"principal"`
	Timestamp time.Time         `json:"timestamp"`
	Type      string            `json:"type"`
	Data      map[string]string `json:"data,omitempty"`
}

// Validate reports every column limit the event violates. Data values longer
// than MaxDataValueLen are not an error; Insert truncates them.
func (e Event) Validate() error {
	var errs *multierror.Error
	if strings.TrimSpace(e.Principal) == "" {
		errs = multierror.Append(errs, fmt.Errorf("%w: principal is required", ErrInvalidEvent))
	}
	if len(e.Principal) > MaxPrincipalLen {
		errs = multierror.Append(errs, fmt.Errorf("%w: principal longer than %d", ErrInvalidEvent, MaxPrincipalLen))
	}
	if len(e.Type) > MaxTypeLen {
		errs = multierror.Append(errs, fmt.Errorf("%w: type longer than %d", ErrInvalidEvent, MaxTypeLen))
	}
	for name := range e.Data {
		if name == "" || len(name) > MaxDataNameLen {
			errs = multierror.Append(errs, fmt.Errorf("%w: data name %q must be 1 to %d bytes", ErrInvalidEvent, name, MaxDataNameLen))
		}
	}
	return errs.ErrorOrNil()
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
