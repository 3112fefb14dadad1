package config

import (
	"strconv"
	"time"

	"github.com/af-corp/aegis-modelplan/internal/types"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Install     InstallConfig     `yaml:"install"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	Signals     SignalsConfig     `yaml:"signals"`
	Policy      PolicyConfig      `yaml:"policy"`
	Preferences PreferencesConfig `yaml:"preferences"`
	Routing     RoutingConfig     `yaml:"routing"`
	Auth        AuthConfig        `yaml:"auth"`
	RateLimit   RateLimitConfig   `yaml:"ratelimit"`
}

type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
}

type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

func (d DatabaseConfig) DSN() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + strconv.Itoa(d.Port) + "/" + d.Name + "?sslmode=disable"
}

type RedisConfig struct {
	Addresses []string `yaml:"addresses"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	PoolSize  int      `yaml:"pool_size"`
}

// Enabled reports whether a Redis address is configured. Without one the
// service falls back to in-process locks and skips rate limiting.
func (r RedisConfig) Enabled() bool {
	return len(r.Addresses) > 0 && r.Addresses[0] != ""
}

type TelemetryConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Scoring engine selectors.
const (
	ScoringV1 = "v1"
	ScoringV2 = "v2"
)

// InstallConfig carries the provider flags and explicit picks made at
// install time plus the scoring engine used for automatic selection.
type InstallConfig struct {
	types.InstallConfig `yaml:",inline"`
	ScoringEngine       string `yaml:"scoring_engine"`
}

type CatalogConfig struct {
	// Binary runs the opencode catalog command. Disable it to plan from
	// File alone.
	Binary           bool          `yaml:"binary"`
	BinaryCandidates []string      `yaml:"binary_candidates"`
	Args             []string      `yaml:"args"`
	Timeout          time.Duration `yaml:"timeout"`
	File             string        `yaml:"file"`
}

type SignalsConfig struct {
	File     string `yaml:"file"`
	Database bool   `yaml:"database"`
}

type PolicyConfig struct {
	Enabled           bool          `yaml:"enabled"`
	BundlePath        string        `yaml:"bundle_path"`
	EvaluationTimeout time.Duration `yaml:"evaluation_timeout"`
}

type PreferencesConfig struct {
	// ConfigPath overrides discovery of oh-my-opencode-slim.json(c).
	ConfigPath string        `yaml:"config_path"`
	LockTTL    time.Duration `yaml:"lock_ttl"`
}

type RoutingConfig struct {
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	FailureThreshold      int           `yaml:"failure_threshold"`
	RecoveryProbeInterval time.Duration `yaml:"recovery_probe_interval"`
}

type AuthConfig struct {
	RequireAdminKey bool `yaml:"require_admin_key"`
}

type RateLimitConfig struct {
	AdminRPM int `yaml:"admin_rpm"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8080,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     60 * time.Second,
			IdleTimeout:      120 * time.Second,
			GracefulShutdown: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "modelplan",
			User:            "modelplan",
			MaxOpenConns:    10,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			DB:       0,
			PoolSize: 20,
		},
		Telemetry: TelemetryConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
		Install: InstallConfig{
			InstallConfig: types.InstallConfig{UseOpenCodeFreeModels: true},
			ScoringEngine: ScoringV1,
		},
		Catalog: CatalogConfig{
			Binary:  true,
			Args:    []string{"models", "--json"},
			Timeout: 20 * time.Second,
		},
		Policy: PolicyConfig{
			Enabled:           false,
			BundlePath:        "/etc/modelplan/policies",
			EvaluationTimeout: 100 * time.Millisecond,
		},
		Preferences: PreferencesConfig{
			LockTTL: 10 * time.Second,
		},
		Routing: RoutingConfig{
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold:      5,
				RecoveryProbeInterval: 15 * time.Second,
			},
		},
		Auth: AuthConfig{
			RequireAdminKey: true,
		},
		RateLimit: RateLimitConfig{
			AdminRPM: 60,
		},
	}
}
