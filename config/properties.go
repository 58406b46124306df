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

import "time"

// Properties is the application configuration tree. It is populated once by
// Load and must be treated as read-only afterwards.
//
// Leaves typed as *string are nullable (secrets, URIs); every other leaf
// carries a default from DefaultProperties.
type Properties struct {
	Profiles    ProfilesConfig    `mapstructure:"profiles" yaml:"profiles"`
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	Datasource  DatasourceConfig  `mapstructure:"datasource" yaml:"datasource"`
	Migration   MigrationConfig   `mapstructure:"migration" yaml:"migration"`
	Async       AsyncConfig       `mapstructure:"async" yaml:"async"`
	HTTP        HTTPConfig        `mapstructure:"http" yaml:"http"`
	Cache       CacheConfig       `mapstructure:"cache" yaml:"cache"`
	Mail        MailConfig        `mapstructure:"mail" yaml:"mail"`
	Security    SecurityConfig    `mapstructure:"security" yaml:"security"`
	Swagger     SwaggerConfig     `mapstructure:"swagger" yaml:"swagger"`
	Metrics     MetricsConfig     `mapstructure:"metrics" yaml:"metrics"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	CORS        CORSConfig        `mapstructure:"cors" yaml:"cors"`
	Social      SocialConfig      `mapstructure:"social" yaml:"social"`
	Gateway     GatewayConfig     `mapstructure:"gateway" yaml:"gateway"`
	Registry    RegistryConfig    `mapstructure:"registry" yaml:"registry"`
	ClientApp   ClientAppConfig   `mapstructure:"clientApp" yaml:"clientApp"`
	AuditEvents AuditEventsConfig `mapstructure:"auditEvents" yaml:"auditEvents"`
	Locale      LocaleConfig      `mapstructure:"locale" yaml:"locale"`
}

type ProfilesConfig struct {
	Active []string `mapstructure:"active" yaml:"active"`
}

type ServerConfig struct {
	Port            int `mapstructure:"port" yaml:"port"`
	HealthCheckPort int `mapstructure:"healthCheckPort" yaml:"healthCheckPort"`
	// PprofPort enables the profiling listener when positive.
	PprofPort int `mapstructure:"pprofPort" yaml:"pprofPort"`
}

// DatasourceConfig describes the main application database. URL wins over the
// individual parts when set.
type DatasourceConfig struct {
	URL      *string `mapstructure:"url" yaml:"url"`
	Host     string  `mapstructure:"host" yaml:"host"`
	Port     int     `mapstructure:"port" yaml:"port"`
	DBName   string  `mapstructure:"dbname" yaml:"dbname"`
	User     *string `mapstructure:"user" yaml:"user"`
	Password *string `mapstructure:"password" yaml:"password"`
	SSLMode  string  `mapstructure:"sslmode" yaml:"sslmode"`
}

// MigrationConfig optionally points schema migrations at a different
// database or role than the application uses.
type MigrationConfig struct {
	URL      *string `mapstructure:"url" yaml:"url"`
	User     *string `mapstructure:"user" yaml:"user"`
	Password *string `mapstructure:"password" yaml:"password"`
}

type AsyncConfig struct {
	CorePoolSize  int `mapstructure:"corePoolSize" yaml:"corePoolSize"`
	MaxPoolSize   int `mapstructure:"maxPoolSize" yaml:"maxPoolSize"`
	QueueCapacity int `mapstructure:"queueCapacity" yaml:"queueCapacity"`
}

type HTTPConfig struct {
	Cache HTTPCacheConfig `mapstructure:"cache" yaml:"cache"`
}

type HTTPCacheConfig struct {
	TimeToLiveInDays int `mapstructure:"timeToLiveInDays" yaml:"timeToLiveInDays"`
}

type CacheConfig struct {
	Hazelcast  HazelcastConfig  `mapstructure:"hazelcast" yaml:"hazelcast"`
	Caffeine   LocalCacheConfig `mapstructure:"caffeine" yaml:"caffeine"`
	Ehcache    LocalCacheConfig `mapstructure:"ehcache" yaml:"ehcache"`
	Infinispan InfinispanConfig `mapstructure:"infinispan" yaml:"infinispan"`
	Memcached  MemcachedConfig  `mapstructure:"memcached" yaml:"memcached"`
	Redis      RedisConfig      `mapstructure:"redis" yaml:"redis"`
}

type HazelcastConfig struct {
	TimeToLiveSeconds int                       `mapstructure:"timeToLiveSeconds" yaml:"timeToLiveSeconds"`
	BackupCount       int                       `mapstructure:"backupCount" yaml:"backupCount"`
	ManagementCenter  HazelcastManagementCenter `mapstructure:"managementCenter" yaml:"managementCenter"`
}

type HazelcastManagementCenter struct {
	Enabled        bool   `mapstructure:"enabled" yaml:"enabled"`
	UpdateInterval int    `mapstructure:"updateInterval" yaml:"updateInterval"`
	URL            string `mapstructure:"url" yaml:"url"`
}

// LocalCacheConfig covers the in-process caches.
type LocalCacheConfig struct {
	TimeToLiveSeconds int   `mapstructure:"timeToLiveSeconds" yaml:"timeToLiveSeconds"`
	MaxEntries        int64 `mapstructure:"maxEntries" yaml:"maxEntries"`
}

// TTL returns TimeToLiveSeconds as a duration.
func (c LocalCacheConfig) TTL() time.Duration {
	return time.Duration(c.TimeToLiveSeconds) * time.Second
}

type InfinispanConfig struct {
	ConfigFile   string                      `mapstructure:"configFile" yaml:"configFile"`
	StatsEnabled bool                        `mapstructure:"statsEnabled" yaml:"statsEnabled"`
	Local        InfinispanCacheConfig       `mapstructure:"local" yaml:"local"`
	Distributed  InfinispanDistributedConfig `mapstructure:"distributed" yaml:"distributed"`
	Replicated   InfinispanCacheConfig       `mapstructure:"replicated" yaml:"replicated"`
}

type InfinispanCacheConfig struct {
	TimeToLiveSeconds int64 `mapstructure:"timeToLiveSeconds" yaml:"timeToLiveSeconds"`
	MaxEntries        int64 `mapstructure:"maxEntries" yaml:"maxEntries"`
}

type InfinispanDistributedConfig struct {
	TimeToLiveSeconds int64 `mapstructure:"timeToLiveSeconds" yaml:"timeToLiveSeconds"`
	MaxEntries        int64 `mapstructure:"maxEntries" yaml:"maxEntries"`
	InstanceCount     int   `mapstructure:"instanceCount" yaml:"instanceCount"`
}

type MemcachedConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Servers is a comma or whitespace separated list of addresses.
	Servers           string `mapstructure:"servers" yaml:"servers"`
	Expiration        int    `mapstructure:"expiration" yaml:"expiration"`
	UseBinaryProtocol bool   `mapstructure:"useBinaryProtocol" yaml:"useBinaryProtocol"`
}

type RedisConfig struct {
	Server     string `mapstructure:"server" yaml:"server"`
	Expiration int    `mapstructure:"expiration" yaml:"expiration"`
	Cluster    bool   `mapstructure:"cluster" yaml:"cluster"`
}

type MailConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	From    string `mapstructure:"from" yaml:"from"`
	BaseURL string `mapstructure:"baseUrl" yaml:"baseUrl"`
}

type SecurityConfig struct {
	ClientAuthorization ClientAuthorizationConfig `mapstructure:"clientAuthorization" yaml:"clientAuthorization"`
	Authentication      AuthenticationConfig      `mapstructure:"authentication" yaml:"authentication"`
	RememberMe          RememberMeConfig          `mapstructure:"rememberMe" yaml:"rememberMe"`
	OAuth2              OAuth2Config              `mapstructure:"oauth2" yaml:"oauth2"`
}

type ClientAuthorizationConfig struct {
	AccessTokenURI *string `mapstructure:"accessTokenUri" yaml:"accessTokenUri"`
	TokenServiceID *string `mapstructure:"tokenServiceId" yaml:"tokenServiceId"`
	ClientID       *string `mapstructure:"clientId" yaml:"clientId"`
	ClientSecret   *string `mapstructure:"clientSecret" yaml:"clientSecret"`
}

type AuthenticationConfig struct {
	JWT JWTConfig `mapstructure:"jwt" yaml:"jwt"`
}

type JWTConfig struct {
	Secret                              *string `mapstructure:"secret" yaml:"secret"`
	Base64Secret                        *string `mapstructure:"base64Secret" yaml:"base64Secret"`
	TokenValidityInSeconds              int64   `mapstructure:"tokenValidityInSeconds" yaml:"tokenValidityInSeconds"`
	TokenValidityInSecondsForRememberMe int64   `mapstructure:"tokenValidityInSecondsForRememberMe" yaml:"tokenValidityInSecondsForRememberMe"`
}

type RememberMeConfig struct {
	Key *string `mapstructure:"key" yaml:"key"`
}

type OAuth2Config struct {
	Audience []string `mapstructure:"audience" yaml:"audience"`
}

type SwaggerConfig struct {
	Title                      string   `mapstructure:"title" yaml:"title"`
	Description                string   `mapstructure:"description" yaml:"description"`
	Version                    string   `mapstructure:"version" yaml:"version"`
	TermsOfServiceURL          *string  `mapstructure:"termsOfServiceUrl" yaml:"termsOfServiceUrl"`
	ContactName                *string  `mapstructure:"contactName" yaml:"contactName"`
	ContactURL                 *string  `mapstructure:"contactUrl" yaml:"contactUrl"`
	ContactEmail               *string  `mapstructure:"contactEmail" yaml:"contactEmail"`
	License                    *string  `mapstructure:"license" yaml:"license"`
	LicenseURL                 *string  `mapstructure:"licenseUrl" yaml:"licenseUrl"`
	DefaultIncludePattern      string   `mapstructure:"defaultIncludePattern" yaml:"defaultIncludePattern"`
	Host                       *string  `mapstructure:"host" yaml:"host"`
	Protocols                  []string `mapstructure:"protocols" yaml:"protocols"`
	UseDefaultResponseMessages bool     `mapstructure:"useDefaultResponseMessages" yaml:"useDefaultResponseMessages"`
}

type MetricsConfig struct {
	JMX        MetricsToggle           `mapstructure:"jmx" yaml:"jmx"`
	Logs       MetricsLogsConfig       `mapstructure:"logs" yaml:"logs"`
	Prometheus MetricsPrometheusConfig `mapstructure:"prometheus" yaml:"prometheus"`
}

type MetricsToggle struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

type MetricsLogsConfig struct {
	Enabled         bool  `mapstructure:"enabled" yaml:"enabled"`
	ReportFrequency int64 `mapstructure:"reportFrequency" yaml:"reportFrequency"`
}

type MetricsPrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

type LoggingConfig struct {
	UseJSONFormat bool `mapstructure:"useJsonFormat" yaml:"useJsonFormat"`
	// CustomFields is a JSON object whose members are added to every JSON
	// record, e.g. {"app_name":"bootkit"}.
	CustomFields string         `mapstructure:"customFields" yaml:"customFields"`
	Logstash     LogstashConfig `mapstructure:"logstash" yaml:"logstash"`
}

type LogstashConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Host      string `mapstructure:"host" yaml:"host"`
	Port      int    `mapstructure:"port" yaml:"port"`
	QueueSize int    `mapstructure:"queueSize" yaml:"queueSize"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowedOrigins" yaml:"allowedOrigins"`
	AllowedMethods   []string `mapstructure:"allowedMethods" yaml:"allowedMethods"`
	AllowedHeaders   []string `mapstructure:"allowedHeaders" yaml:"allowedHeaders"`
	ExposedHeaders   []string `mapstructure:"exposedHeaders" yaml:"exposedHeaders"`
	AllowCredentials bool     `mapstructure:"allowCredentials" yaml:"allowCredentials"`
	MaxAge           int      `mapstructure:"maxAge" yaml:"maxAge"`
}

// Enabled reports whether any origin has been configured.
func (c CORSConfig) Enabled() bool {
	return len(c.AllowedOrigins) > 0
}

type SocialConfig struct {
	RedirectAfterSignIn string `mapstructure:"redirectAfterSignIn" yaml:"redirectAfterSignIn"`
}

type GatewayConfig struct {
	RateLimiting                     RateLimitingConfig  `mapstructure:"rateLimiting" yaml:"rateLimiting"`
	AuthorizedMicroservicesEndpoints map[string][]string `mapstructure:"authorizedMicroservicesEndpoints" yaml:"authorizedMicroservicesEndpoints"`
}

type RateLimitingConfig struct {
	Enabled           bool  `mapstructure:"enabled" yaml:"enabled"`
	Limit             int64 `mapstructure:"limit" yaml:"limit"`
	DurationInSeconds int   `mapstructure:"durationInSeconds" yaml:"durationInSeconds"`
}

type RegistryConfig struct {
	Password *string `mapstructure:"password" yaml:"password"`
}

type ClientAppConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
}

type AuditEventsConfig struct {
	RetentionPeriod int `mapstructure:"retentionPeriod" yaml:"retentionPeriod"`
}

// Retention returns the retention period in days as a duration.
func (c AuditEventsConfig) Retention() time.Duration {
	return time.Duration(c.RetentionPeriod) * 24 * time.Hour
}

type LocaleConfig struct {
	CookieName      string `mapstructure:"cookieName" yaml:"cookieName"`
	DefaultLocale   string `mapstructure:"defaultLocale" yaml:"defaultLocale"`
	DefaultTimeZone string `mapstructure:"defaultTimeZone" yaml:"defaultTimeZone"`
}

// DefaultProperties returns a tree with every leaf set to its default.
func DefaultProperties() *Properties {
	return &Properties{
		Server: ServerConfig{
			Port:            DefaultServerPort,
			HealthCheckPort: DefaultHealthCheckPort,
		},
		Datasource: DatasourceConfig{
			Port: DefaultDatasourcePort,
		},
		Async: AsyncConfig{
			CorePoolSize:  DefaultAsyncCorePoolSize,
			MaxPoolSize:   DefaultAsyncMaxPoolSize,
			QueueCapacity: DefaultAsyncQueueCapacity,
		},
		HTTP: HTTPConfig{
			Cache: HTTPCacheConfig{TimeToLiveInDays: DefaultHTTPCacheTTLInDays},
		},
		Cache: CacheConfig{
			Hazelcast: HazelcastConfig{
				TimeToLiveSeconds: DefaultHazelcastTTLSeconds,
				BackupCount:       DefaultHazelcastBackupCount,
				ManagementCenter: HazelcastManagementCenter{
					Enabled:        DefaultHazelcastMgmtCenterEnabled,
					UpdateInterval: DefaultHazelcastMgmtCenterInterval,
					URL:            DefaultHazelcastMgmtCenterURL,
				},
			},
			Caffeine: LocalCacheConfig{
				TimeToLiveSeconds: DefaultCaffeineTTLSeconds,
				MaxEntries:        DefaultCaffeineMaxEntries,
			},
			Ehcache: LocalCacheConfig{
				TimeToLiveSeconds: DefaultEhcacheTTLSeconds,
				MaxEntries:        DefaultEhcacheMaxEntries,
			},
			Infinispan: InfinispanConfig{
				ConfigFile:   DefaultInfinispanConfigFile,
				StatsEnabled: DefaultInfinispanStatsEnabled,
				Local: InfinispanCacheConfig{
					TimeToLiveSeconds: DefaultInfinispanLocalTTLSeconds,
					MaxEntries:        DefaultInfinispanLocalMaxEntries,
				},
				Distributed: InfinispanDistributedConfig{
					TimeToLiveSeconds: DefaultInfinispanDistTTLSeconds,
					MaxEntries:        DefaultInfinispanDistMaxEntries,
					InstanceCount:     DefaultInfinispanDistInstanceCount,
				},
				Replicated: InfinispanCacheConfig{
					TimeToLiveSeconds: DefaultInfinispanReplTTLSeconds,
					MaxEntries:        DefaultInfinispanReplMaxEntries,
				},
			},
			Memcached: MemcachedConfig{
				Enabled:           DefaultMemcachedEnabled,
				Servers:           DefaultMemcachedServers,
				Expiration:        DefaultMemcachedExpiration,
				UseBinaryProtocol: DefaultMemcachedUseBinaryProtocol,
			},
			Redis: RedisConfig{
				Server:     DefaultRedisServer,
				Expiration: DefaultRedisExpiration,
				Cluster:    DefaultRedisCluster,
			},
		},
		Mail: MailConfig{
			Enabled: DefaultMailEnabled,
			From:    DefaultMailFrom,
			BaseURL: DefaultMailBaseURL,
		},
		Security: SecurityConfig{
			Authentication: AuthenticationConfig{
				JWT: JWTConfig{
					TokenValidityInSeconds:              DefaultJWTTokenValiditySeconds,
					TokenValidityInSecondsForRememberMe: DefaultJWTRememberMeValiditySeconds,
				},
			},
			OAuth2: OAuth2Config{Audience: []string{}},
		},
		Swagger: SwaggerConfig{
			Title:                      DefaultSwaggerTitle,
			Description:                DefaultSwaggerDescription,
			Version:                    DefaultSwaggerVersion,
			DefaultIncludePattern:      DefaultSwaggerIncludePattern,
			Protocols:                  []string{},
			UseDefaultResponseMessages: DefaultSwaggerUseDefaultRespMessage,
		},
		Metrics: MetricsConfig{
			JMX: MetricsToggle{Enabled: DefaultMetricsJMXEnabled},
			Logs: MetricsLogsConfig{
				Enabled:         DefaultMetricsLogsEnabled,
				ReportFrequency: DefaultMetricsLogsReportSeconds,
			},
			Prometheus: MetricsPrometheusConfig{
				Enabled:  DefaultMetricsPrometheusEnabled,
				Endpoint: DefaultMetricsPrometheusEndpoint,
			},
		},
		Logging: LoggingConfig{
			UseJSONFormat: DefaultLoggingUseJSONFormat,
			Logstash: LogstashConfig{
				Enabled:   DefaultLogstashEnabled,
				Host:      DefaultLogstashHost,
				Port:      DefaultLogstashPort,
				QueueSize: DefaultLogstashQueueSize,
			},
		},
		Social: SocialConfig{RedirectAfterSignIn: DefaultSocialRedirectAfter},
		Gateway: GatewayConfig{
			RateLimiting: RateLimitingConfig{
				Enabled:           DefaultRateLimitingEnabled,
				Limit:             DefaultRateLimitingLimit,
				DurationInSeconds: DefaultRateLimitingDurationSeconds,
			},
			AuthorizedMicroservicesEndpoints: map[string][]string{},
		},
		ClientApp:   ClientAppConfig{Name: DefaultClientAppName},
		AuditEvents: AuditEventsConfig{RetentionPeriod: DefaultAuditRetentionDays},
		Locale: LocaleConfig{
			CookieName:    DefaultLocaleCookieName,
			DefaultLocale: DefaultLocale,
		},
	}
}
