package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
		// Nivel de log: debug | info | warn | error
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
		ReadTimeout        string   `yaml:"read_timeout"`
		WriteTimeout       string   `yaml:"write_timeout"`
	} `yaml:"server"`

	Storage struct {
		Driver   string `yaml:"driver"` // postgres | memory
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MaxIdleConns    int    `yaml:"max_idle_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
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
		// ScopeTTL cachea el scope efectivo por agente.
		ScopeTTL string `yaml:"scope_ttl"`
	} `yaml:"cache"`

	Auth struct {
		// JWTSecret firma los tokens de servicio HS256 del API admin.
		JWTSecret string `yaml:"jwt_secret"`
		Issuer    string `yaml:"issuer"`
	} `yaml:"auth"`

	Resilience struct {
		MaxRetries int    `yaml:"max_retries"`
		BaseDelay  string `yaml:"base_delay"`
		MaxDelay   string `yaml:"max_delay"`
		// FailureThreshold: porcentaje de fallos en la ventana que abre el breaker.
		FailureThreshold int    `yaml:"failure_threshold"`
		OpenFor          string `yaml:"open_for"`
	} `yaml:"resilience"`

	Override struct {
		// DefaultTTL de overrides de autoridad cuando el request no lo indica.
		DefaultTTL string `yaml:"default_ttl"`
		// EmergencyTTL de overrides de emergencia.
		EmergencyTTL string `yaml:"emergency_ttl"`
	} `yaml:"override"`

	LLM struct {
		APIKey      string  `yaml:"api_key"`
		Model       string  `yaml:"model"`
		Temperature float32 `yaml:"temperature"`
		MaxTokens   int     `yaml:"max_tokens"`
	} `yaml:"llm"`

	SMTP struct {
		Host      string `yaml:"host"`
		Port      int    `yaml:"port"`
		Username  string `yaml:"username"`
		Password  string `yaml:"password"`
		FromEmail string `yaml:"from_email"`
		TLSMode   string `yaml:"tls_mode"` // auto | starttls | ssl | none
		// EscalationTo recibe las notificaciones de escalamiento.
		EscalationTo string `yaml:"escalation_to"`
	} `yaml:"smtp"`
}

// Load lee el YAML indicado (o el default) y aplica overrides de entorno.
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		path = envOr("COGMESH_CONFIG", filepath.Join("config", "cogmesh.yaml"))
	}
	b, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	}
	// Un config file ausente no es error: todo puede venir por env.
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.App.Env = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.App.LogLevel = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("CACHE_KIND"); v != "" {
		cfg.Cache.Kind = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.Redis.DB = n
		}
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.SMTP.Password = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Env == "" {
		cfg.App.Env = "dev"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Cache.Kind == "" {
		cfg.Cache.Kind = "memory"
	}
	if cfg.Cache.ScopeTTL == "" {
		cfg.Cache.ScopeTTL = "30s"
	}
	if cfg.Resilience.MaxRetries == 0 {
		cfg.Resilience.MaxRetries = 3
	}
	if cfg.Resilience.BaseDelay == "" {
		cfg.Resilience.BaseDelay = "250ms"
	}
	if cfg.Resilience.MaxDelay == "" {
		cfg.Resilience.MaxDelay = "1s"
	}
	if cfg.Resilience.FailureThreshold == 0 {
		cfg.Resilience.FailureThreshold = 50
	}
	if cfg.Resilience.OpenFor == "" {
		cfg.Resilience.OpenFor = "30s"
	}
	if cfg.Override.DefaultTTL == "" {
		cfg.Override.DefaultTTL = "1h"
	}
	if cfg.Override.EmergencyTTL == "" {
		cfg.Override.EmergencyTTL = "15m"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "gpt-4o-mini"
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
	}
	if cfg.SMTP.TLSMode == "" {
		cfg.SMTP.TLSMode = "auto"
	}
}

// ------- Helpers de duración -------

// Dur parsea una duración estilo "250ms"/"1h"; devuelve def si falla.
func Dur(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return d
}

func (c *Config) ServerReadTimeout() time.Duration  { return Dur(c.Server.ReadTimeout, 10*time.Second) }
func (c *Config) ServerWriteTimeout() time.Duration { return Dur(c.Server.WriteTimeout, 30*time.Second) }
func (c *Config) ScopeCacheTTL() time.Duration      { return Dur(c.Cache.ScopeTTL, 30*time.Second) }
func (c *Config) OverrideDefaultTTL() time.Duration { return Dur(c.Override.DefaultTTL, time.Hour) }
func (c *Config) EmergencyTTL() time.Duration       { return Dur(c.Override.EmergencyTTL, 15*time.Minute) }
func (c *Config) ResilienceBaseDelay() time.Duration {
	return Dur(c.Resilience.BaseDelay, 250*time.Millisecond)
}
func (c *Config) ResilienceMaxDelay() time.Duration { return Dur(c.Resilience.MaxDelay, time.Second) }
func (c *Config) ResilienceOpenFor() time.Duration  { return Dur(c.Resilience.OpenFor, 30*time.Second) }

// PostgresConnMaxLifetime expone el lifetime del pool como duración.
func (c *Config) PostgresConnMaxLifetime() time.Duration {
	return Dur(c.Storage.Postgres.ConnMaxLifetime, 30*time.Minute)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
