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

// Async task executor defaults.
const (
	DefaultAsyncCorePoolSize   = 2
	DefaultAsyncMaxPoolSize    = 50
	DefaultAsyncQueueCapacity  = 10000
	DefaultHTTPCacheTTLInDays  = 1461 // 4 years (including leap day)
	DefaultAuditRetentionDays  = 30
	DefaultClientAppName       = "jhipsterApp"
	DefaultSocialRedirectAfter = "/#/home"
)

// Cache provider defaults.
const (
	DefaultHazelcastTTLSeconds          = 3600 // 1 hour
	DefaultHazelcastBackupCount         = 1
	DefaultHazelcastMgmtCenterEnabled   = false
	DefaultHazelcastMgmtCenterInterval  = 3
	DefaultHazelcastMgmtCenterURL       = ""
	DefaultCaffeineTTLSeconds           = 3600 // 1 hour
	DefaultCaffeineMaxEntries           = int64(100)
	DefaultEhcacheTTLSeconds            = 3600 // 1 hour
	DefaultEhcacheMaxEntries            = int64(100)
	DefaultInfinispanConfigFile         = "default-configs/default-jgroups-tcp.xml"
	DefaultInfinispanStatsEnabled       = false
	DefaultInfinispanLocalTTLSeconds    = int64(60) // 1 minute
	DefaultInfinispanLocalMaxEntries    = int64(100)
	DefaultInfinispanDistTTLSeconds     = int64(60) // 1 minute
	DefaultInfinispanDistMaxEntries     = int64(100)
	DefaultInfinispanDistInstanceCount  = 1
	DefaultInfinispanReplTTLSeconds     = int64(60) // 1 minute
	DefaultInfinispanReplMaxEntries     = int64(100)
	DefaultMemcachedEnabled             = false
	DefaultMemcachedServers             = "localhost:11211"
	DefaultMemcachedExpiration          = 300 // 5 minutes
	DefaultMemcachedUseBinaryProtocol   = true
	DefaultRedisServer                  = "redis://localhost:6379"
	DefaultRedisExpiration              = 300 // 5 minutes
	DefaultRedisCluster                 = false
	DefaultMailEnabled                  = false
	DefaultMailFrom                     = ""
	DefaultMailBaseURL                  = ""
	DefaultJWTTokenValiditySeconds      = int64(1800)    // 30 minutes
	DefaultJWTRememberMeValiditySeconds = int64(2592000) // 30 days
)

// Swagger defaults.
const (
	DefaultSwaggerTitle                 = "Application API"
	DefaultSwaggerDescription           = "API documentation"
	DefaultSwaggerVersion               = "0.0.1"
	DefaultSwaggerIncludePattern        = "/api/.*"
	DefaultSwaggerUseDefaultRespMessage = true
)

// Metrics and logging defaults.
const (
	DefaultMetricsJMXEnabled         = false
	DefaultMetricsLogsEnabled        = false
	DefaultMetricsLogsReportSeconds  = int64(60)
	DefaultMetricsPrometheusEnabled  = false
	DefaultMetricsPrometheusEndpoint = "/prometheusMetrics"
	DefaultLoggingUseJSONFormat      = false
	DefaultLogstashEnabled           = false
	DefaultLogstashHost              = "localhost"
	DefaultLogstashPort              = 5000
	DefaultLogstashQueueSize         = 512
)

// Gateway defaults.
const (
	DefaultRateLimitingEnabled         = false
	DefaultRateLimitingLimit           = int64(100000)
	DefaultRateLimitingDurationSeconds = 3600
)

// Process-level defaults that sit beside the application tree.
const (
	DefaultServerPort       = 8080
	DefaultHealthCheckPort  = 8090
	DefaultDatasourcePort   = 5432
	DefaultLocaleCookieName = "NG_TRANSLATE_LANG_KEY"
	DefaultLocale           = "en"
)
