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
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/bootkit/auditstore"
	"github.com/cardinalhq/bootkit/config"
	"github.com/cardinalhq/bootkit/internal/asyncexec"
	"github.com/cardinalhq/bootkit/internal/security"
	"github.com/cardinalhq/bootkit/internal/webutil"
)

type fakeAudits struct {
	mu       sync.Mutex
	events   []auditstore.Event
	gets     int
	inserted []auditstore.Event
}

func (f *fakeAudits) Get(_ context.Context, id int64) (auditstore.Event, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	for _, e := range f.events {
		if e.ID == id {
			return e, true, nil
		}
	}
	return auditstore.Event{}, false, nil
}

func (f *fakeAudits) List(_ context.Context, p webutil.Pageable) (webutil.Page[auditstore.Event], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return webutil.PageFromList(f.events, p), nil
}

func (f *fakeAudits) Insert(_ context.Context, e auditstore.Event) (auditstore.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, e)
	return e, nil
}

type inlineExecutor struct{}

func (inlineExecutor) Execute(task func()) error {
	task()
	return nil
}

func testAudits(n int) *fakeAudits {
	f := &fakeAudits{}
	for i := range n {
		f.events = append(f.events, auditstore.Event{
			ID:        int64(i + 1),
			Principal: "admin",
			Type:      "AUTHENTICATION_SUCCESS",
			Timestamp: time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC),
		})
	}
	return f
}

func newTestServer(t *testing.T, props *config.Properties, audits *fakeAudits, tokens *security.TokenProvider) *Server {
	t.Helper()
	s, err := New(Options{
		Properties: props,
		Audits:     audits,
		AuditLog:   audits,
		Executor:   asyncexec.NewExceptionHandling(inlineExecutor{}),
		Tokens:     tokens,
		Registry:   prometheus.NewRegistry(),
		BuildInfo:  config.BuildInfo{Version: "1.2.3"},
	})
	require.NoError(t, err)
	return s
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
	_, err = New(Options{Properties: config.DefaultProperties()})
	assert.Error(t, err)
	_, err = New(Options{Properties: config.DefaultProperties(), Audits: &fakeAudits{}})
	assert.Error(t, err)
}

func TestListAuditsPaginates(t *testing.T) {
	s := newTestServer(t, config.DefaultProperties(), testAudits(5), nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/audits?page=1&size=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", rec.Header().Get(webutil.HeaderTotalCount))

	link := rec.Header().Get("Link")
	assert.Contains(t, link, `rel="next"`)
	assert.Contains(t, link, `rel="prev"`)
	assert.Contains(t, link, "page=2&size=2")

	var events []auditstore.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 2)
	assert.Equal(t, int64(3), events[0].ID)
}

func TestListAuditsLargePage(t *testing.T) {
	s := newTestServer(t, config.DefaultProperties(), testAudits(3), nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/audits?page=576460752303423488&size=16", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", rec.Header().Get(webutil.HeaderTotalCount))
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGetAuditIsCached(t *testing.T) {
	audits := testAudits(2)
	s := newTestServer(t, config.DefaultProperties(), audits, nil)

	for range 3 {
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/audits/2", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var e auditstore.Event
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
		assert.Equal(t, int64(2), e.ID)
	}
	assert.Equal(t, 1, audits.gets)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/audits/99", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/audits/99", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 3, audits.gets, "misses are not cached")

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/audits/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPIRequiresToken(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 64)))
	tokens, err := security.NewTokenProvider(config.JWTConfig{Base64Secret: &secret, TokenValidityInSeconds: 60})
	require.NoError(t, err)

	audits := testAudits(1)
	s := newTestServer(t, config.DefaultProperties(), audits, tokens)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/audits", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Len(t, audits.inserted, 1)
	assert.Equal(t, "AUTHORIZATION_FAILURE", audits.inserted[0].Type)
	assert.Equal(t, "/api/audits", audits.inserted[0].Data["path"])

	token, err := tokens.CreateToken("admin", []string{"ROLE_ADMIN"}, false)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/audits", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, serve(s, req).Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/management/info", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAccountLocale(t *testing.T) {
	s := newTestServer(t, config.DefaultProperties(), testAudits(0), nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/account/locale", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"locale":"en"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodPut, "/api/account/locale", strings.NewReader(`{"locale":"fr_FR","timeZone":"UTC"}`))
	rec = serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"locale":"fr_FR","timeZone":"UTC"}`, rec.Body.String())

	assert.Equal(t, config.DefaultLocaleCookieName+"=%22fr-FR UTC%22; Path=/", rec.Header().Get("Set-Cookie"))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, config.DefaultLocaleCookieName, cookies[0].Name)
	assert.Equal(t, "%22fr-FR UTC%22", cookies[0].Value)

	req = httptest.NewRequest(http.MethodGet, "/api/account/locale", nil)
	req.AddCookie(&http.Cookie{Name: cookies[0].Name, Value: cookies[0].Value})
	rec = serve(s, req)
	assert.JSONEq(t, `{"locale":"fr_FR","timeZone":"UTC"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodPut, "/api/account/locale", strings.NewReader(`{"locale":"en","timeZone":"Not/AZone"}`))
	assert.Equal(t, http.StatusBadRequest, serve(s, req).Code)
}

func TestRateLimiting(t *testing.T) {
	props := config.DefaultProperties()
	props.Gateway.RateLimiting = config.RateLimitingConfig{Enabled: true, Limit: 2, DurationInSeconds: 60}
	s := newTestServer(t, props, testAudits(1), nil)

	for i := range 2 {
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/audits", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"1", "0"}[i], rec.Header().Get(HeaderRateLimitRemaining))
	}
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/audits", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// management endpoints are not limited
	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/management/info", nil)).Code)
}

func TestInfoAndPrometheus(t *testing.T) {
	props := config.DefaultProperties()
	props.Profiles.Active = []string{"prod,swagger"}
	props.Metrics.Prometheus.Enabled = true
	s := newTestServer(t, props, testAudits(1), nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/management/info", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var info infoResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, config.DefaultClientAppName, info.App)
	assert.Equal(t, "1.2.3", info.Build.Version)
	assert.Equal(t, []string{"prod", "swagger"}, info.ActiveProfiles)
	assert.NotZero(t, info.InstanceID)

	serve(s, httptest.NewRequest(http.MethodGet, "/api/audits/1", nil))
	rec = serve(s, httptest.NewRequest(http.MethodGet, config.DefaultMetricsPrometheusEndpoint, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `bootkit_http_requests_total{method="GET",route="/api/audits/{id}",status="200"} 1`)
}

func TestCORS(t *testing.T) {
	props := config.DefaultProperties()
	props.CORS.AllowedOrigins = []string{"https://app.example.com"}
	s := newTestServer(t, props, testAudits(0), nil)

	req := httptest.NewRequest(http.MethodGet, "/management/info", nil)
	req.Header.Set("Origin", "https://app.example.com")
	assert.Equal(t, "https://app.example.com", serve(s, req).Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/management/info", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	assert.Empty(t, serve(s, req).Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, config.DefaultProperties(), testAudits(0), nil)

	supplied := "01ARZ3NDEKTSV4RRFFQ69G5FAV"
	req := httptest.NewRequest(http.MethodGet, "/management/info", nil)
	req.Header.Set(HeaderRequestID, supplied)
	assert.Equal(t, supplied, serve(s, req).Header().Get(HeaderRequestID))

	req = httptest.NewRequest(http.MethodGet, "/management/info", nil)
	req.Header.Set(HeaderRequestID, "<script>")
	got := serve(s, req).Header().Get(HeaderRequestID)
	assert.Len(t, got, 26)
	assert.NotEqual(t, "<script>", got)
}

func TestRecoverer(t *testing.T) {
	h := recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
