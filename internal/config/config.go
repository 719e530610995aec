package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/socialconnect/internal/platform"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env         string `yaml:"env"`
		LogLevel    string `yaml:"log_level"`
		ServiceName string `yaml:"service_name"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// PublicBaseURL es la base de los redirect_uri: {base}/oauth/{platform}/callback
		PublicBaseURL   string        `yaml:"public_base_url"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		// ServiceToken protege /credentials (entrega tokens en claro). Vacío
		// => sin auth, sólo para red interna; obligatorio con env=prod.
		ServiceToken string `yaml:"service_token"`
	} `yaml:"server"`

	Storage struct {
		// DSN vacío => store en memoria (dev/tests).
		DSN string `yaml:"dsn"`
		// SecretboxKey (base64, 32 bytes) sella los tokens en reposo. Opcional.
		SecretboxKey string `yaml:"secretbox_key"`
		AutoMigrate  bool   `yaml:"auto_migrate"`
		Postgres     struct {
			MaxConns        int32         `yaml:"max_conns"`
			MinConns        int32         `yaml:"min_conns"`
			ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	OAuth struct {
		StateTTL          time.Duration `yaml:"state_ttl"`
		RefreshWindow     time.Duration `yaml:"refresh_window"`
		RefreshTimeout    time.Duration `yaml:"refresh_timeout"`
		HTTPTimeout       time.Duration `yaml:"http_timeout"`
		ValidateCacheTTL  time.Duration `yaml:"validate_cache_ttl"`
		ValidateCacheSize int           `yaml:"validate_cache_size"`
		RetryAttempts     int           `yaml:"retry_attempts"`
		RetryBase         time.Duration `yaml:"retry_base"`
	} `yaml:"oauth"`

	Rate struct {
		// Con cache redis el límite se comparte entre réplicas; si no, es por proceso.
		Enabled bool          `yaml:"enabled"`
		Limit   int           `yaml:"limit"`
		Window  time.Duration `yaml:"window"`
	} `yaml:"rate"`

	// Platforms por nombre (linkedin, facebook, ...). Sin client_id la
	// plataforma queda fuera del registry.
	Platforms map[string]PlatformConfig `yaml:"platforms"`
}

// PlatformConfig es la fila configurable de una plataforma. Las URLs y
// scopes vacíos toman el valor del catálogo.
type PlatformConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	AuthorizeURL string   `yaml:"authorize_url"`
	TokenURL     string   `yaml:"token_url"`
	ValidateURL  string   `yaml:"validate_url"`
	Scopes       []string `yaml:"scopes"`
}

// Load lee el YAML en path (vacío => sólo defaults), aplica defaults y
// luego variables de entorno.
func Load(path string) (*Config, error) {
	var c Config
	c.Rate.Enabled = true
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	c.applyDefaults()
	c.applyEnvOverrides()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.ServiceName == "" {
		c.App.ServiceName = "socialconnect"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.PublicBaseURL == "" {
		c.Server.PublicBaseURL = "http://localhost:8080"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Storage.Postgres.MaxConns == 0 {
		c.Storage.Postgres.MaxConns = 10
	}
	if c.Storage.Postgres.ConnMaxLifetime == 0 {
		c.Storage.Postgres.ConnMaxLifetime = 30 * time.Minute
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "socialconnect"
	}
	if c.OAuth.StateTTL == 0 {
		c.OAuth.StateTTL = 10 * time.Minute
	}
	if c.OAuth.RefreshWindow == 0 {
		c.OAuth.RefreshWindow = 5 * time.Minute
	}
	if c.OAuth.RefreshTimeout == 0 {
		c.OAuth.RefreshTimeout = 5 * time.Second
	}
	if c.OAuth.HTTPTimeout == 0 {
		c.OAuth.HTTPTimeout = 10 * time.Second
	}
	if c.OAuth.ValidateCacheTTL == 0 {
		c.OAuth.ValidateCacheTTL = 30 * time.Second
	}
	if c.OAuth.ValidateCacheSize == 0 {
		c.OAuth.ValidateCacheSize = 1024
	}
	if c.OAuth.RetryAttempts == 0 {
		c.OAuth.RetryAttempts = 3
	}
	if c.OAuth.RetryBase == 0 {
		c.OAuth.RetryBase = 200 * time.Millisecond
	}
	if c.Rate.Limit == 0 {
		c.Rate.Limit = 30
	}
	if c.Rate.Window == 0 {
		c.Rate.Window = time.Minute
	}
	if c.Platforms == nil {
		c.Platforms = map[string]PlatformConfig{}
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("PUBLIC_BASE_URL"); ok {
		c.Server.PublicBaseURL = v
	}
	if v, ok := getEnvStr("SERVICE_TOKEN"); ok {
		c.Server.ServiceToken = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("SECRETBOX_KEY"); ok {
		c.Storage.SecretboxKey = v
	}
	if v, ok := getEnvBool("STORAGE_AUTO_MIGRATE"); ok {
		c.Storage.AutoMigrate = v
	}

	// CACHE: REDIS_ADDR implica kind=redis
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
		c.Cache.Kind = "redis"
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}

	// OAUTH
	if v, ok := getEnvDur("OAUTH_STATE_TTL"); ok {
		c.OAuth.StateTTL = v
	}
	if v, ok := getEnvDur("OAUTH_REFRESH_WINDOW"); ok {
		c.OAuth.RefreshWindow = v
	}
	if v, ok := getEnvDur("OAUTH_REFRESH_TIMEOUT"); ok {
		c.OAuth.RefreshTimeout = v
	}
	if v, ok := getEnvDur("OAUTH_HTTP_TIMEOUT"); ok {
		c.OAuth.HTTPTimeout = v
	}
	if v, ok := getEnvInt("OAUTH_RETRY_ATTEMPTS"); ok {
		c.OAuth.RetryAttempts = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_LIMIT"); ok {
		c.Rate.Limit = v
	}
	if v, ok := getEnvDur("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}

	// PLATFORMS: LINKEDIN_CLIENT_ID, LINKEDIN_CLIENT_SECRET, LINKEDIN_SCOPES, ...
	for _, p := range platform.All {
		name := string(p)
		prefix := strings.ToUpper(name) + "_"
		pc := c.Platforms[name]
		if v, ok := getEnvStr(prefix + "CLIENT_ID"); ok {
			pc.ClientID = v
		}
		if v, ok := getEnvStr(prefix + "CLIENT_SECRET"); ok {
			pc.ClientSecret = v
		}
		if v, ok := getEnvCSV(prefix + "SCOPES"); ok && len(v) > 0 {
			pc.Scopes = v
		}
		if pc.ClientID != "" || pc.ClientSecret != "" || len(pc.Scopes) > 0 {
			c.Platforms[name] = pc
		}
	}
}

// Validate chequea los valores críticos.
func (c *Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.Server.PublicBaseURL)
	if err != nil || !u.IsAbs() {
		errs = append(errs, fmt.Errorf("server.public_base_url must be an absolute URL, got %q", c.Server.PublicBaseURL))
	}
	if c.App.Env == "prod" && c.Server.ServiceToken == "" {
		errs = append(errs, errors.New("server.service_token required when app.env=prod"))
	}
	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("cache.redis.addr required when cache.kind=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.kind must be memory or redis, got %q", c.Cache.Kind))
	}
	if c.OAuth.RefreshTimeout <= 0 || c.OAuth.StateTTL <= 0 || c.OAuth.RefreshWindow < 0 {
		errs = append(errs, errors.New("oauth durations must be positive"))
	}
	for name := range c.Platforms {
		if _, err := platform.Parse(name); err != nil {
			errs = append(errs, fmt.Errorf("platforms.%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// BuildRegistry arma el registry con las plataformas que tienen client_id.
func (c *Config) BuildRegistry() (*platform.Registry, error) {
	rows := make([]platform.Config, 0, len(platform.All))
	for _, p := range platform.All {
		pc, ok := c.Platforms[string(p)]
		if !ok || strings.TrimSpace(pc.ClientID) == "" {
			continue
		}
		row := platform.FromCatalog(p, c.Server.PublicBaseURL,
			platform.Credentials{ClientID: pc.ClientID, ClientSecret: pc.ClientSecret},
			platform.Overrides{
				AuthorizeURL: pc.AuthorizeURL,
				TokenURL:     pc.TokenURL,
				ValidateURL:  pc.ValidateURL,
				Scopes:       pc.Scopes,
			})
		if err := row.Validate(); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return platform.NewRegistry(rows...)
}
