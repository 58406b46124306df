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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(WithSearchPaths(t.TempDir()))
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Async.CorePoolSize)
	assert.Equal(t, 50, cfg.Async.MaxPoolSize)
	assert.Equal(t, 10000, cfg.Async.QueueCapacity)
	assert.Equal(t, 1461, cfg.HTTP.Cache.TimeToLiveInDays)
	assert.Equal(t, 3600, cfg.Cache.Caffeine.TimeToLiveSeconds)
	assert.Equal(t, int64(100), cfg.Cache.Caffeine.MaxEntries)
	assert.Equal(t, "redis://localhost:6379", cfg.Cache.Redis.Server)
	assert.Equal(t, "localhost:11211", cfg.Cache.Memcached.Servers)
	assert.True(t, cfg.Cache.Memcached.UseBinaryProtocol)
	assert.Equal(t, "default-configs/default-jgroups-tcp.xml", cfg.Cache.Infinispan.ConfigFile)
	assert.Equal(t, int64(1800), cfg.Security.Authentication.JWT.TokenValidityInSeconds)
	assert.Equal(t, int64(2592000), cfg.Security.Authentication.JWT.TokenValidityInSecondsForRememberMe)
	assert.Nil(t, cfg.Security.Authentication.JWT.Secret)
	assert.Nil(t, cfg.Registry.Password)
	assert.Equal(t, "Application API", cfg.Swagger.Title)
	assert.Equal(t, "/api/.*", cfg.Swagger.DefaultIncludePattern)
	assert.Equal(t, "localhost", cfg.Logging.Logstash.Host)
	assert.Equal(t, 5000, cfg.Logging.Logstash.Port)
	assert.Equal(t, 512, cfg.Logging.Logstash.QueueSize)
	assert.Equal(t, "/#/home", cfg.Social.RedirectAfterSignIn)
	assert.Equal(t, int64(100000), cfg.Gateway.RateLimiting.Limit)
	assert.Equal(t, 3600, cfg.Gateway.RateLimiting.DurationInSeconds)
	assert.Equal(t, "jhipsterApp", cfg.ClientApp.Name)
	assert.Equal(t, 30, cfg.AuditEvents.RetentionPeriod)
	assert.Equal(t, 30*24*time.Hour, cfg.AuditEvents.Retention())
	assert.Equal(t, time.Hour, cfg.Cache.Caffeine.TTL())
	assert.Empty(t, cfg.ActiveProfiles())
}

func TestLoadFileOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "application.yaml", `
server:
  port: 9999
bootkit:
  async:
    corePoolSize: 4
  clientApp:
    name: portal
  security:
    authentication:
      jwt:
        base64Secret: c2VjcmV0
  swagger:
    protocols: [http, https]
  gateway:
    authorizedMicroservicesEndpoints:
      billing: [/api, /management/health]
`)

	cfg, err := Load(WithSearchPaths(dir))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Async.CorePoolSize)
	assert.Equal(t, 50, cfg.Async.MaxPoolSize, "unset leaves keep their default")
	assert.Equal(t, "portal", cfg.ClientApp.Name)
	require.NotNil(t, cfg.Security.Authentication.JWT.Base64Secret)
	assert.Equal(t, "c2VjcmV0", *cfg.Security.Authentication.JWT.Base64Secret)
	assert.Equal(t, []string{"http", "https"}, cfg.Swagger.Protocols)
	assert.Equal(t, []string{"/api", "/management/health"}, cfg.Gateway.AuthorizedMicroservicesEndpoints["billing"])
	assert.Equal(t, DefaultServerPort, cfg.Server.Port, "keys outside the prefix are ignored")
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "custom.yaml", `
bootkit:
  async:
    corePoolSize: 4
    coreSize: 8
`)

	_, err := Load(WithFile(path))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coresize")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(WithFile(filepath.Join(t.TempDir(), "nope.yaml")))
	require.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BOOTKIT_ASYNC_MAXPOOLSIZE", "12")
	t.Setenv("BOOTKIT_LOGGING_LOGSTASH_ENABLED", "true")
	t.Setenv("BOOTKIT_REGISTRY_PASSWORD", "hunter2")
	t.Setenv("BOOTKIT_PROFILES_ACTIVE", "dev,swagger")

	cfg, err := Load(WithSearchPaths(t.TempDir()), WithProfiles("no-liquibase"))
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Async.MaxPoolSize)
	assert.True(t, cfg.Logging.Logstash.Enabled)
	require.NotNil(t, cfg.Registry.Password)
	assert.Equal(t, "hunter2", *cfg.Registry.Password)

	profiles := cfg.ActiveProfiles()
	assert.True(t, profiles.Accepts(ProfileDevelopment))
	assert.True(t, profiles.Accepts(ProfileSwagger))
	assert.True(t, profiles.Accepts(ProfileNoMigration))
	assert.False(t, profiles.Accepts(ProfileProduction))
}

func TestProfilesAccepts(t *testing.T) {
	p := ParseProfiles(" prod , ,k8s")
	assert.Equal(t, Profiles{"prod", "k8s"}, p)
	assert.True(t, p.Accepts(ProfileDevelopment, ProfileK8s))
	assert.False(t, p.Accepts(ProfileDevelopment, ProfileHeroku))
	assert.False(t, Profiles(nil).Accepts(ProfileProduction))
}

func TestDefaultPropertiesAreIndependent(t *testing.T) {
	a := DefaultProperties()
	b := DefaultProperties()
	a.Gateway.AuthorizedMicroservicesEndpoints["x"] = []string{"/api"}
	assert.Empty(t, b.Gateway.AuthorizedMicroservicesEndpoints)
}
