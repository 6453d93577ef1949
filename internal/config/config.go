package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultUnit is the persistence unit used when none is selected.
const DefaultUnit = "erythu"

// Config is the root configuration for the portal.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	BasePath        string        `mapstructure:"base_path"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
	ServiceName  string `mapstructure:"service_name"`
	LogLevel     string `mapstructure:"log_level"`
}

// PersistenceConfig holds every named persistence unit plus the one the
// startup routine opens.
type PersistenceConfig struct {
	Unit    string                `mapstructure:"unit"`
	Timeout time.Duration         `mapstructure:"timeout"`
	Units   map[string]UnitConfig `mapstructure:"units"`
}

// UnitConfig describes how to reach the database behind one persistence unit.
// Driver is "pgx" (pgxpool) or "postgres" (database/sql via lib/pq).
type UnitConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// DSN renders the unit as a postgres:// connection URL. Credentials are
// percent-encoded, so reserved characters in passwords survive parsing.
func (u UnitConfig) DSN() string {
	dsn := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(u.User, u.Password),
		Host:     net.JoinHostPort(u.Host, strconv.Itoa(u.Port)),
		Path:     "/" + u.DB,
		RawQuery: "sslmode=" + url.QueryEscape(u.SSLMode),
	}
	return dsn.String()
}

// Load reads config from the optional YAML file at path, then overlays
// environment variables with the PORTAL_ prefix (e.g. PORTAL_SERVER_PORT,
// PORTAL_PERSISTENCE_UNITS_ERYTHU_HOST).
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_path", "/")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	// Empty endpoint disables OTEL export.
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.otlp_insecure", true)
	v.SetDefault("telemetry.service_name", "erythu-portal")
	v.SetDefault("telemetry.log_level", "info")

	v.SetDefault("persistence.unit", DefaultUnit)
	v.SetDefault("persistence.timeout", 30*time.Second)

	prefix := "persistence.units." + DefaultUnit
	v.SetDefault(prefix+".driver", "pgx")
	v.SetDefault(prefix+".host", "localhost")
	v.SetDefault(prefix+".port", 5432)
	v.SetDefault(prefix+".user", "erythu")
	v.SetDefault(prefix+".db", "erythu")
	v.SetDefault(prefix+".ssl_mode", "disable")
	v.SetDefault(prefix+".max_conns", 4)
}
