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

// Package httpserver exposes the REST API and management endpoints.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cardinalhq/bootkit/auditstore"
	"github.com/cardinalhq/bootkit/config"
	"github.com/cardinalhq/bootkit/internal/asyncexec"
	"github.com/cardinalhq/bootkit/internal/cachekey"
	"github.com/cardinalhq/bootkit/internal/idgen"
	"github.com/cardinalhq/bootkit/internal/security"
	"github.com/cardinalhq/bootkit/internal/webutil"
)

type AuditReader interface {
	Get(ctx context.Context, id int64) (auditstore.Event, bool, error)
	List(ctx context.Context, p webutil.Pageable) (webutil.Page[auditstore.Event], error)
}

type AuditWriter interface {
	Insert(ctx context.Context, e auditstore.Event) (auditstore.Event, error)
}

// Options wires the server's collaborators. Properties, Audits and Registry
// are required. Without Tokens the /api routes are not authenticated.
// Authorization failures are recorded only when both AuditLog and Executor
// are set.
type Options struct {
	Properties *config.Properties
	Audits     AuditReader
	AuditLog   AuditWriter
	Executor   *asyncexec.ExceptionHandling
	Tokens     *security.TokenProvider
	Registry   *prometheus.Registry
	Keys       *cachekey.Generator
	BuildInfo  config.BuildInfo
}

type Server struct {
	opts       Options
	handler    http.Handler
	limiter    *RateLimiter
	metrics    *Metrics
	locale     *webutil.LocaleResolver
	auditCache *cachekey.Cache[auditstore.Event]
	ids        *idgen.ULIDGenerator
	server     *http.Server
}

func New(opts Options) (*Server, error) {
	if opts.Properties == nil {
		return nil, errors.New("httpserver: properties are required")
	}
	if opts.Audits == nil {
		return nil, errors.New("httpserver: audit reader is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("httpserver: prometheus registry is required")
	}
	if opts.Keys == nil {
		opts.Keys = cachekey.NewGenerator(opts.BuildInfo, nil)
	}
	if opts.Tokens == nil {
		slog.Warn("No JWT secret configured, /api routes are not authenticated")
	}

	props := opts.Properties
	s := &Server{
		opts:       opts,
		metrics:    NewMetrics(opts.Registry),
		locale:     webutil.NewLocaleResolver(props.Locale),
		auditCache: cachekey.NewCache[auditstore.Event]("audits", props.Cache.Caffeine),
		ids:        idgen.NewULIDGenerator(),
	}
	if props.Gateway.RateLimiting.Enabled {
		s.limiter = NewRateLimiter(props.Gateway.RateLimiting)
	}
	s.handler = otelhttp.NewHandler(s.routes(), "bootkit")
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() chi.Router {
	props := s.opts.Properties
	r := chi.NewRouter()

	r.Use(
		middleware.RealIP,
		requestID(s.ids),
		requestLogger,
		recoverer,
		s.metrics.Middleware,
	)
	if props.CORS.Enabled() {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   props.CORS.AllowedOrigins,
			AllowedMethods:   props.CORS.AllowedMethods,
			AllowedHeaders:   props.CORS.AllowedHeaders,
			ExposedHeaders:   props.CORS.ExposedHeaders,
			AllowCredentials: props.CORS.AllowCredentials,
			MaxAge:           props.CORS.MaxAge,
		}))
	}
	r.Use(s.locale.Middleware)

	r.Route("/api", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware(s.metrics.rateLimited.Inc))
		}
		if s.opts.Tokens != nil {
			r.Use(s.opts.Tokens.Authenticate(s.recordAuthorizationFailure))
		}
		r.Get("/audits", s.handleListAudits)
		r.Get("/audits/{id}", s.handleGetAudit)
		r.Get("/account/locale", s.handleGetLocale)
		r.Put("/account/locale", s.handlePutLocale)
	})

	r.Get("/management/info", s.handleInfo)
	if props.Metrics.Prometheus.Enabled {
		endpoint := props.Metrics.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = config.DefaultMetricsPrometheusEndpoint
		}
		r.Handle(endpoint, promhttp.HandlerFor(s.opts.Registry, promhttp.HandlerOpts{}))
	}
	return r
}

// Run serves on server.port until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	port := s.opts.Properties.Server.Port
	if port == 0 {
		port = config.DefaultServerPort
	}
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("start HTTP server: %w", err)
	}
	return s.Serve(ctx, l)
}

func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	slog.Info("Starting HTTP server", slog.String("addr", l.Addr().String()))

	go s.auditCache.Start()
	defer s.auditCache.Stop()
	if s.limiter != nil {
		go s.limiter.Run(ctx)
	}

	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 2 * time.Second,
	}
	go func() {
		if err := s.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Failed to start HTTP server", slog.Any("error", err))
		}
	}()

	<-ctx.Done()

	slog.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}
