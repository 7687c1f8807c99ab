package config

import "time"

// Config is the root configuration shared by the broker and keapctl.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Keap    KeapConfig    `yaml:"keap"`
	Backend BackendConfig `yaml:"backend"`
	Store   StoreConfig   `yaml:"store"`
	Auth    AuthConfig    `yaml:"auth"`
	Session SessionConfig `yaml:"session"`
	CORS    CORSConfig    `yaml:"cors"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds HTTP server settings for the broker.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"PORT"                    env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// KeapConfig holds the Keap API and OAuth client registration.
type KeapConfig struct {
	APIBaseURL   string        `yaml:"api_base_url"  env:"KEAP_API_BASE_URL"  env-default:"https://api.infusionsoft.com/crm/rest/v1"`
	ClientID     string        `yaml:"client_id"     env:"KEAP_CLIENT_ID"`
	ClientSecret string        `yaml:"client_secret" env:"KEAP_CLIENT_SECRET"`
	RedirectURI  string        `yaml:"redirect_uri"  env:"KEAP_REDIRECT_URI"  env-default:"http://localhost:8080/api/auth/keap/callback"`
	Scope        string        `yaml:"scope"         env:"KEAP_SCOPE"         env-default:"full"`
	AuthorizeURL string        `yaml:"authorize_url" env:"KEAP_AUTHORIZE_URL" env-default:"https://accounts.infusionsoft.com/app/oauth/authorize"`
	TokenURL     string        `yaml:"token_url"     env:"KEAP_TOKEN_URL"     env-default:"https://api.infusionsoft.com/token"`
	HTTPTimeout  time.Duration `yaml:"http_timeout"  env:"KEAP_HTTP_TIMEOUT"  env-default:"30s"`
}

// BackendConfig is where keapctl finds the broker.
type BackendConfig struct {
	URL         string        `yaml:"url"          env:"BACKEND_URL"          env-default:"http://localhost:8080"`
	HTTPTimeout time.Duration `yaml:"http_timeout" env:"BACKEND_HTTP_TIMEOUT" env-default:"15s"`
}

// StoreConfig selects the token slot backend.
type StoreConfig struct {
	Driver        string `yaml:"driver"         env:"TOKEN_STORE"          env-default:"file"`
	FilePath      string `yaml:"file_path"      env:"TOKEN_FILE"`
	Slot          string `yaml:"slot"           env:"TOKEN_SLOT"           env-default:"keap_tokens"`
	DatabaseDSN   string `yaml:"database_dsn"   env:"DATABASE_URL"`
	RedisAddr     string `yaml:"redis_addr"     env:"REDIS_ADDR"           env-default:"localhost:6379"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db"       env:"REDIS_DB"             env-default:"0"`
}

// AuthConfig holds the OAuth state signing settings.
type AuthConfig struct {
	StateSecret string        `yaml:"state_secret" env:"AUTH_STATE_SECRET"`
	StateTTL    time.Duration `yaml:"state_ttl"    env:"AUTH_STATE_TTL"    env-default:"10m"`
}

// SessionConfig controls what a failed token refresh does to the session.
// "always" logs out on any failure, "rejected" only when the refresh token was refused.
type SessionConfig struct {
	RefreshFailurePolicy string `yaml:"refresh_failure_policy" env:"SESSION_REFRESH_FAILURE_POLICY" env-default:"always"`
}

// CORSConfig holds CORS settings for the browser console origin.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"http://localhost:5173"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Authorization,Content-Type"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"false"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}
