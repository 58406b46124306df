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

package webutil

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/cardinalhq/bootkit/config"
)

// cookieQuote wraps locale cookie values so the browser client can read them.
const cookieQuote = "%22"

// LocaleContext is the locale and time zone a request asked for. A zero
// Locale (language.Und) or nil TimeZone means unset.
type LocaleContext struct {
	Locale   language.Tag
	TimeZone *time.Location
}

func (c LocaleContext) HasLocale() bool {
	return c.Locale != language.Und
}

// LocaleID returns the locale with '_' separators, e.g. "en_US", or "" when
// unset.
func (c LocaleContext) LocaleID() string {
	if !c.HasLocale() {
		return ""
	}
	return strings.ReplaceAll(c.Locale.String(), "-", "_")
}

// TimeZoneID returns the IANA zone name, or "" when unset.
func (c LocaleContext) TimeZoneID() string {
	if c.TimeZone == nil {
		return ""
	}
	return c.TimeZone.String()
}

// CookieValue renders c in the unquoted cookie format "<locale> <zone>",
// with "-" standing for an unset locale.
func (c LocaleContext) CookieValue() string {
	locale := "-"
	if c.HasLocale() {
		locale = c.Locale.String()
	}
	if c.TimeZone == nil {
		return locale
	}
	return locale + " " + c.TimeZone.String()
}

// ParseLocaleCookie parses a raw cookie value. Quote markers are removed,
// the value is split on the first space into locale and time zone, and "-"
// as the locale means unset. Unparseable parts are treated as unset.
func ParseLocaleCookie(value string) LocaleContext {
	value = strings.ReplaceAll(value, cookieQuote, "")
	localePart, zonePart, _ := strings.Cut(value, " ")

	var lc LocaleContext
	if localePart != "-" && localePart != "" {
		tag, err := language.Parse(strings.ReplaceAll(localePart, "_", "-"))
		if err != nil {
			slog.Debug("Ignoring invalid locale in cookie", slog.String("locale", localePart), slog.Any("error", err))
		} else {
			lc.Locale = tag
		}
	}
	if zonePart = strings.TrimSpace(zonePart); zonePart != "" {
		loc, err := time.LoadLocation(zonePart)
		if err != nil {
			slog.Debug("Ignoring invalid time zone in cookie", slog.String("timeZone", zonePart), slog.Any("error", err))
		} else {
			lc.TimeZone = loc
		}
	}
	return lc
}

// LocaleResolver reads the locale cookie, falling back to the configured
// defaults and then to Accept-Language.
type LocaleResolver struct {
	CookieName      string
	DefaultLocale   language.Tag
	DefaultTimeZone *time.Location
}

func NewLocaleResolver(cfg config.LocaleConfig) *LocaleResolver {
	lr := &LocaleResolver{CookieName: cfg.CookieName}
	if lr.CookieName == "" {
		lr.CookieName = config.DefaultLocaleCookieName
	}
	if cfg.DefaultLocale != "" {
		if tag, err := language.Parse(strings.ReplaceAll(cfg.DefaultLocale, "_", "-")); err == nil {
			lr.DefaultLocale = tag
		} else {
			slog.Warn("Invalid default locale", slog.String("locale", cfg.DefaultLocale), slog.Any("error", err))
		}
	}
	if cfg.DefaultTimeZone != "" {
		if loc, err := time.LoadLocation(cfg.DefaultTimeZone); err == nil {
			lr.DefaultTimeZone = loc
		} else {
			slog.Warn("Invalid default time zone", slog.String("timeZone", cfg.DefaultTimeZone), slog.Any("error", err))
		}
	}
	return lr
}

type localeState struct {
	once sync.Once
	lc   LocaleContext
}

type localeStateKey struct{}

// Middleware gives each request a slot so the cookie is parsed at most once.
func (lr *LocaleResolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), localeStateKey{}, &localeState{})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ResolveLocaleContext returns the request's locale context with defaults
// applied. Behind Middleware the cookie is parsed on first call only.
func (lr *LocaleResolver) ResolveLocaleContext(r *http.Request) LocaleContext {
	st, ok := r.Context().Value(localeStateKey{}).(*localeState)
	if !ok {
		return lr.parse(r)
	}
	st.once.Do(func() { st.lc = lr.parse(r) })
	return st.lc
}

func (lr *LocaleResolver) ResolveLocale(r *http.Request) language.Tag {
	return lr.ResolveLocaleContext(r).Locale
}

func (lr *LocaleResolver) parse(r *http.Request) LocaleContext {
	var lc LocaleContext
	if c, err := r.Cookie(lr.CookieName); err == nil {
		lc = ParseLocaleCookie(c.Value)
		slog.Debug("Parsed locale cookie",
			slog.String("value", c.Value),
			slog.String("locale", lc.LocaleID()),
			slog.String("timeZone", lc.TimeZoneID()))
	}
	if !lc.HasLocale() {
		lc.Locale = lr.defaultLocale(r)
	}
	if lc.TimeZone == nil {
		lc.TimeZone = lr.DefaultTimeZone
	}
	return lc
}

func (lr *LocaleResolver) defaultLocale(r *http.Request) language.Tag {
	if lr.DefaultLocale != language.Und {
		return lr.DefaultLocale
	}
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err != nil || len(tags) == 0 {
		return language.Und
	}
	return tags[0]
}

// SetLocaleCookie writes the cookie, wrapping value in quote markers. The
// header is written by hand: http.SetCookie would put double quotes around a
// value containing a space, and the browser client expects the raw form.
func (lr *LocaleResolver) SetLocaleCookie(w http.ResponseWriter, value string) {
	w.Header().Add("Set-Cookie",
		lr.CookieName+"="+cookieQuote+sanitizeCookieValue(value)+cookieQuote+"; Path=/")
}

// sanitizeCookieValue drops bytes that may not appear in a cookie value,
// keeping the space that separates locale and time zone.
func sanitizeCookieValue(v string) string {
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c < 0x20 || c >= 0x7f || c == '"' || c == ';' || c == '\\' {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
