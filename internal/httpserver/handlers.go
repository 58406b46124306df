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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cardinalhq/bootkit/auditstore"
	"github.com/cardinalhq/bootkit/config"
	"github.com/cardinalhq/bootkit/internal/idgen"
	"github.com/cardinalhq/bootkit/internal/webutil"
)

const (
	anonymousPrincipal       = "anonymousUser"
	eventAuthorizationFailed = "AUTHORIZATION_FAILURE"
)

func (s *Server) handleListAudits(w http.ResponseWriter, r *http.Request) {
	page, err := s.opts.Audits.List(r.Context(), webutil.ParsePageable(r, webutil.DefaultPageSize))
	if err != nil {
		webutil.WriteError(w, err)
		return
	}
	webutil.WriteJSON(w, http.StatusOK, page.Content, webutil.PaginationHeaders(r.URL, page))
}

func (s *Server) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		webutil.WriteAPIError(w, http.StatusBadRequest, webutil.CodeBadRequest, "invalid audit event id")
		return
	}

	key := s.opts.Keys.Generate("findAuditEvent", id)
	event, err := s.auditCache.GetOrLoad(r.Context(), key, func(ctx context.Context) (auditstore.Event, error) {
		e, ok, err := s.opts.Audits.Get(ctx, id)
		if err == nil && !ok {
			err = fmt.Errorf("audit event %d: %w", id, webutil.ErrNotFound)
		}
		return e, err
	})
	if err != nil && !errors.Is(err, webutil.ErrNotFound) {
		webutil.WriteError(w, err)
		return
	}
	webutil.WrapOrNotFound(w, event, err == nil, nil)
}

type localeBody struct {
	Locale   string `json:"locale"`
	TimeZone string `json:"timeZone,omitempty"`
}

func (s *Server) handleGetLocale(w http.ResponseWriter, r *http.Request) {
	lc := s.locale.ResolveLocaleContext(r)
	webutil.WriteJSON(w, http.StatusOK, localeBody{Locale: lc.LocaleID(), TimeZone: lc.TimeZoneID()}, nil)
}

// handlePutLocale stores the requested locale and time zone in the cookie.
// Values that do not parse are rejected rather than silently dropped.
func (s *Server) handlePutLocale(w http.ResponseWriter, r *http.Request) {
	var body localeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		webutil.WriteAPIError(w, http.StatusBadRequest, webutil.CodeBadRequest, "invalid request body")
		return
	}
	body.Locale = strings.TrimSpace(body.Locale)
	body.TimeZone = strings.TrimSpace(body.TimeZone)

	raw := body.Locale
	if raw == "" {
		raw = "-"
	}
	if body.TimeZone != "" {
		raw += " " + body.TimeZone
	}
	lc := webutil.ParseLocaleCookie(raw)
	if body.Locale != "" && !lc.HasLocale() {
		webutil.WriteAPIError(w, http.StatusBadRequest, webutil.CodeBadRequest, "invalid locale")
		return
	}
	if body.TimeZone != "" && lc.TimeZone == nil {
		webutil.WriteAPIError(w, http.StatusBadRequest, webutil.CodeBadRequest, "invalid time zone")
		return
	}

	s.locale.SetLocaleCookie(w, lc.CookieValue())
	webutil.WriteJSON(w, http.StatusOK, localeBody{Locale: lc.LocaleID(), TimeZone: lc.TimeZoneID()}, nil)
}

type infoResponse struct {
	App            string           `json:"app"`
	Build          config.BuildInfo `json:"build"`
	ActiveProfiles []string         `json:"activeProfiles"`
	InstanceID     int64            `json:"instanceId"`
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	profiles := s.opts.Properties.ActiveProfiles()
	if profiles == nil {
		profiles = config.Profiles{}
	}
	webutil.WriteJSON(w, http.StatusOK, infoResponse{
		App:            s.opts.Properties.ClientApp.Name,
		Build:          s.opts.BuildInfo,
		ActiveProfiles: profiles,
		InstanceID:     idgen.InstanceID(),
	}, nil)
}

func (s *Server) recordAuthorizationFailure(r *http.Request, cause error) {
	if s.opts.AuditLog == nil || s.opts.Executor == nil {
		return
	}
	event := auditstore.Event{
		Principal: anonymousPrincipal,
		Timestamp: time.Now(),
		Type:      eventAuthorizationFailed,
		Data: map[string]string{
			"message":       cause.Error(),
			"remoteAddress": clientIP(r),
			"path":          r.URL.Path,
		},
	}
	ctx := context.WithoutCancel(r.Context())
	err := s.opts.Executor.Execute(func() error {
		_, err := s.opts.AuditLog.Insert(ctx, event)
		return err
	})
	if err != nil {
		slog.Warn("Dropped authorization failure audit event", slog.Any("error", err))
	}
}
