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

package dbopen

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgx-contrib/pgxotel"

	"github.com/cardinalhq/bootkit/config"
)

var ErrDatabaseNotConfigured = errors.New("database connection configuration is unavailable")

// DatasourceURL returns the connection URL of the application database.
// An explicit url wins; otherwise one is assembled from host, port, dbname,
// user, password and sslmode.
func DatasourceURL(ds config.DatasourceConfig) (string, error) {
	if ds.URL != nil && *ds.URL != "" {
		return *ds.URL, nil
	}

	var missing []string
	if ds.Host == "" {
		missing = append(missing, config.Prefix+".datasource.host")
	}
	if ds.DBName == "" {
		missing = append(missing, config.Prefix+".datasource.dbname")
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: missing %s", ErrDatabaseNotConfigured, strings.Join(missing, ", "))
	}

	port := ds.Port
	if port == 0 {
		port = config.DefaultDatasourcePort
	}
	u := &url.URL{
		Scheme: "postgresql",
		Host:   ds.Host + ":" + strconv.Itoa(port),
		Path:   "/" + ds.DBName,
	}
	setUser(u, deref(ds.User), deref(ds.Password))

	q := u.Query()
	if ds.SSLMode != "" {
		q.Set("sslmode", ds.SSLMode)
	}
	if appName := applicationName(); appName != "" {
		q.Set("application_name", appName)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// MigrationURL returns the URL used to apply schema migrations. The
// migration group may replace the whole URL or only the credentials.
func MigrationURL(p *config.Properties) (string, error) {
	base := deref(p.Migration.URL)
	if base == "" {
		var err error
		if base, err = DatasourceURL(p.Datasource); err != nil {
			return "", err
		}
	}

	user, password := deref(p.Migration.User), deref(p.Migration.Password)
	if user == "" {
		return base, nil
	}

	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" {
		return "", fmt.Errorf("migration credentials need a URL datasource, got %q", redact(base))
	}
	setUser(u, user, password)
	return u.String(), nil
}

// NewPool opens a traced connection pool. name labels the query spans.
func NewPool(ctx context.Context, url, name string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}

	cfg.ConnConfig.Tracer = &pgxotel.QueryTracer{
		Name: name,
	}

	return pgxpool.NewWithConfig(ctx, cfg)
}

func setUser(u *url.URL, user, password string) {
	switch {
	case user == "":
	case password != "":
		u.User = url.UserPassword(user, password)
	default:
		u.User = url.User(user)
	}
}

// applicationName derives application_name from OTEL_SERVICE_NAME, limited
// to alphanumerics, - and _ and to Postgres' 63 byte identifier length.
func applicationName() string {
	appName := os.Getenv("OTEL_SERVICE_NAME")
	if appName == "" {
		return ""
	}
	appName = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') ||
			(r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') ||
			r == '-' || r == '_' {
			return r
		}
		return '_'
	}, appName)
	if len(appName) > 63 {
		appName = appName[:63]
	}
	return appName
}

func redact(s string) string {
	if u, err := url.Parse(s); err == nil {
		return u.Redacted()
	}
	return "<unparseable>"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
