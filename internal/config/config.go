package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is loaded from defaults, then an optional YAML file, then the
// environment (a .env file included). Later sources win.
//
// Leaf fields named after common variables (USER, HOST, PORT, PATH) carry no
// envconfig tag: a tag is also looked up unprefixed, so DB_USER would fall
// back to $USER.
type Config struct {
	Env        string     `yaml:"env" envconfig:"ENV"`
	Version    string     `yaml:"version" envconfig:"VERSION"`
	LogLevel   string     `yaml:"log_level" envconfig:"LOG_LEVEL"`
	HTTPServer HTTPServer `yaml:"http_server" envconfig:"SERVER"`
	Storage    Storage    `yaml:"storage" envconfig:"STORAGE"`
	Postgres   Postgres   `yaml:"postgres" envconfig:"DB"`
	SQLite     SQLite     `yaml:"sqlite" envconfig:"SQLITE"`
	Dashboard  Dashboard  `yaml:"dashboard" envconfig:"DASHBOARD"`
	CORS       CORS       `yaml:"cors" envconfig:"CORS"`
}

type HTTPServer struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	CertFile        string        `yaml:"cert_file" envconfig:"CERT_FILE"`
	KeyFile         string        `yaml:"key_file" envconfig:"KEY_FILE"`
}

var defaultHTTPServer = HTTPServer{
	Port:            8080,
	ReadTimeout:     5 * time.Second,
	WriteTimeout:    10 * time.Second,
	IdleTimeout:     time.Minute,
	ShutdownTimeout: 10 * time.Second,
	MaxHeaderBytes:  1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type Storage struct {
	Driver string `yaml:"driver"`
}

type Postgres struct {
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	SSLMode         string        `yaml:"sslmode" envconfig:"SSLMODE"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" envconfig:"CONN_MAX_IDLE_TIME"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" envconfig:"CONN_MAX_LIFETIME"`
	MaxIdleConns    int           `yaml:"max_idle_conns" envconfig:"MAX_IDLE_CONNS"`
	MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"MAX_OPEN_CONNS"`
}

var defaultPostgres = Postgres{
	Host:            "localhost",
	Port:            5432,
	SSLMode:         "disable",
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
}

func (p *Postgres) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:     "/" + p.Name,
		RawQuery: url.Values{"sslmode": {p.SSLMode}}.Encode(),
	}
	return u.String()
}

type SQLite struct {
	Path string `yaml:"path"`
}

type Dashboard struct {
	Port         int           `yaml:"port"`
	APIBaseURL   string        `yaml:"api_base_url" envconfig:"API_BASE_URL"`
	SessionTTL   time.Duration `yaml:"session_ttl" envconfig:"SESSION_TTL"`
	SecureCookie bool          `yaml:"secure_cookie" envconfig:"SECURE_COOKIE"`
}

var defaultDashboard = Dashboard{
	Port:       3000,
	APIBaseURL: "http://localhost:8080",
	SessionTTL: 24 * time.Hour,
}

func (d *Dashboard) Addr() string {
	return fmt.Sprintf(":%d", d.Port)
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
}

// Load reads the YAML file at path, skipped when path is empty, and applies
// environment overrides. Variables from dotenvFiles (".env" by default) never
// replace ones already set; missing dotenv files are ignored.
func Load(path string, dotenvFiles ...string) (*Config, error) {
	const op = "config.Load"

	var cfg Config
	setDefaults(&cfg)

	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: failed to load dotenv file: %w", op, err)
		}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to process environment: %w", op, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode config file: %w", err)
	}

	return nil
}

// Validate checks the settings shared by every process. Process-specific
// settings are checked by ValidateAPI and ValidateDashboard.
func (c *Config) Validate() error {
	switch c.Env {
	case EnvDev, EnvStage, EnvProd:
	default:
		return fmt.Errorf("unknown env %q", c.Env)
	}

	return nil
}

// ValidateAPI checks the storage settings the link API depends on.
func (c *Config) ValidateAPI() error {
	const op = "config.Config.ValidateAPI"

	switch c.Storage.Driver {
	case DriverPostgres:
	case DriverSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("%s: sqlite path is required", op)
		}
	default:
		return fmt.Errorf("%s: unknown storage driver %q", op, c.Storage.Driver)
	}

	return nil
}

// ValidateDashboard checks the settings the dashboard depends on.
func (c *Config) ValidateDashboard() error {
	const op = "config.Config.ValidateDashboard"

	u, err := url.Parse(c.Dashboard.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s: invalid dashboard api base url %q", op, c.Dashboard.APIBaseURL)
	}

	if c.Dashboard.SessionTTL <= 0 {
		return fmt.Errorf("%s: dashboard session ttl must be positive", op)
	}

	return nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.Version = "1.0"
	cfg.LogLevel = "info"
	cfg.HTTPServer = defaultHTTPServer
	cfg.Storage = Storage{Driver: DriverPostgres}
	cfg.Postgres = defaultPostgres
	cfg.SQLite = SQLite{Path: "linkly.db"}
	cfg.Dashboard = defaultDashboard
	cfg.CORS = CORS{AllowedOrigins: []string{"*"}}
}
