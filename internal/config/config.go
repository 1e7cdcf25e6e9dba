package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the root configuration tree for the session engine. Values are
// loaded from a YAML file (if present) and then overridden by environment
// variables, so a bare container with only env vars set still boots.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Engine   EngineConfig   `yaml:"engine"`
	Coach    CoachConfig    `yaml:"coach"`
	Session  SessionConfig  `yaml:"session"`
	Auth     AuthConfig     `yaml:"auth"`
}

type ServerConfig struct {
	Port            string   `yaml:"port"`
	APIPrefix       string   `yaml:"api_prefix"`
	ProjectName     string   `yaml:"project_name"`
	WebsocketURL    string   `yaml:"websocket_url"`
	AllowOrigins    []string `yaml:"allow_origins"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	IdleTimeoutSec  int      `yaml:"idle_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig carries the relational connection string; the scheme
// (postgres:// vs sqlite://) selects the driver at the sessionstore layer.
type DatabaseConfig struct {
	URL string `yaml:"database_url"`
}

type RedisConfig struct {
	URL string `yaml:"redis_url"`
}

type EngineConfig struct {
	StockfishPath   string  `yaml:"stockfish_path"`
	DefaultDepth    int     `yaml:"default_depth"`
	MoveTimeLimit   float64 `yaml:"move_time_limit_sec"`
	MinElo          int     `yaml:"min_elo"`
	MaxElo          int     `yaml:"max_elo"`
	RespawnAttempts int     `yaml:"respawn_attempts"`
}

type CoachConfig struct {
	LLMURL           string `yaml:"llm_url"`
	LLMAPIKey        string `yaml:"llm_api_key"`
	LLMModel         string `yaml:"llm_model"`
	TimeoutSec       int    `yaml:"timeout_sec"`
	RateWindowSec    int    `yaml:"rate_limit_window_sec"`
	RateMaxCalls     int    `yaml:"rate_limit_max_calls"`
}

type SessionConfig struct {
	CacheTTLSec            int `yaml:"cache_ttl_sec"`
	QueueEntryTTLSec        int `yaml:"queue_entry_ttl_sec"`
	MatchNotificationTTLSec int `yaml:"match_notification_ttl_sec"`
}

type AuthConfig struct {
	FeatureEnabled bool `yaml:"feature_enabled"`
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the process-wide configuration singleton, loading it on first
// use from CONFIG_PATH (default "config.yaml") plus environment overrides.
func Get() *Config {
	once.Do(func() {
		cfg, err := LoadConfig(getEnv("CONFIG_PATH", "config.yaml"))
		if err != nil {
			slog.Warn("config: no config file loaded, using env/defaults", "error", err)
		}
		if cfg == nil {
			cfg = &Config{}
		}
		cfg.applyEnvOverrides()
		instance = cfg
	})
	return instance
}

func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.APIPrefix = getEnv("API_PREFIX", c.Server.APIPrefix)
	c.Server.ProjectName = getEnv("PROJECT_NAME", c.Server.ProjectName)
	c.Server.WebsocketURL = getEnv("WEBSOCKET_URL", c.Server.WebsocketURL)
	if origins := getEnv("ALLOW_ORIGINS", ""); origins != "" {
		c.Server.AllowOrigins = splitCSV(origins)
	}
	if v := getEnvInt("SERVER_READ_TIMEOUT_SEC", 0); v > 0 {
		c.Server.ReadTimeoutSec = v
	}
	if v := getEnvInt("SERVER_WRITE_TIMEOUT_SEC", 0); v > 0 {
		c.Server.WriteTimeoutSec = v
	}
	if v := getEnvInt("SERVER_IDLE_TIMEOUT_SEC", 0); v > 0 {
		c.Server.IdleTimeoutSec = v
	}
	if v := getEnvInt("SERVER_SHUTDOWN_TIMEOUT_SEC", 0); v > 0 {
		c.Server.ShutdownSec = v
	}

	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Redis.URL = getEnv("REDIS_URL", c.Redis.URL)

	c.Engine.StockfishPath = getEnv("STOCKFISH_PATH", c.Engine.StockfishPath)
	if v := getEnvInt("ENGINE_DEFAULT_DEPTH", 0); v > 0 {
		c.Engine.DefaultDepth = v
	}
	if v := getEnvFloat("ENGINE_MOVE_TIME_LIMIT", 0); v > 0 {
		c.Engine.MoveTimeLimit = v
	}
	if v := getEnvInt("ENGINE_MIN_ELO", 0); v > 0 {
		c.Engine.MinElo = v
	}
	if v := getEnvInt("ENGINE_MAX_ELO", 0); v > 0 {
		c.Engine.MaxElo = v
	}
	if v := getEnvInt("ENGINE_RESPAWN_ATTEMPTS", 0); v > 0 {
		c.Engine.RespawnAttempts = v
	}

	c.Coach.LLMURL = getEnv("COACH_LLM_URL", c.Coach.LLMURL)
	c.Coach.LLMAPIKey = getEnv("COACH_LLM_API_KEY", c.Coach.LLMAPIKey)
	c.Coach.LLMModel = getEnv("COACH_LLM_MODEL", c.Coach.LLMModel)
	if v := getEnvInt("COACH_TIMEOUT_SEC", 0); v > 0 {
		c.Coach.TimeoutSec = v
	}
	if v := getEnvInt("COACH_RATE_LIMIT_WINDOW_SEC", 0); v > 0 {
		c.Coach.RateWindowSec = v
	}
	if v := getEnvInt("COACH_RATE_LIMIT_MAX_CALLS", 0); v > 0 {
		c.Coach.RateMaxCalls = v
	}

	if v := getEnvInt("SESSION_CACHE_TTL_SEC", 0); v > 0 {
		c.Session.CacheTTLSec = v
	}
	if v := getEnvInt("QUEUE_ENTRY_TTL_SEC", 0); v > 0 {
		c.Session.QueueEntryTTLSec = v
	}
	if v := getEnvInt("MATCH_NOTIFICATION_TTL_SEC", 0); v > 0 {
		c.Session.MatchNotificationTTLSec = v
	}

	c.Auth.FeatureEnabled = getEnvBool("AUTH_FEATURE_ENABLED", c.Auth.FeatureEnabled)

	c.applyDefaults()
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.APIPrefix == "" {
		c.Server.APIPrefix = "/api/v1"
	}
	if c.Server.ProjectName == "" {
		c.Server.ProjectName = "chessica"
	}
	if c.Server.ReadTimeoutSec == 0 {
		c.Server.ReadTimeoutSec = 15
	}
	if c.Server.WriteTimeoutSec == 0 {
		c.Server.WriteTimeoutSec = 15
	}
	if c.Server.IdleTimeoutSec == 0 {
		c.Server.IdleTimeoutSec = 60
	}
	if c.Server.ShutdownSec == 0 {
		c.Server.ShutdownSec = 15
	}
	if len(c.Server.AllowOrigins) == 0 {
		c.Server.AllowOrigins = []string{"*"}
	}
	if c.Database.URL == "" {
		c.Database.URL = "sqlite://./chessica.db"
	}
	if c.Engine.StockfishPath == "" {
		c.Engine.StockfishPath = defaultStockfishPath()
	}
	if c.Engine.DefaultDepth == 0 {
		c.Engine.DefaultDepth = 3
	}
	if c.Engine.MoveTimeLimit == 0 {
		c.Engine.MoveTimeLimit = 0.6
	}
	if c.Engine.MinElo == 0 {
		c.Engine.MinElo = 1320
	}
	if c.Engine.MaxElo == 0 {
		c.Engine.MaxElo = 2850
	}
	if c.Engine.RespawnAttempts == 0 {
		c.Engine.RespawnAttempts = 1
	}
	if c.Coach.LLMModel == "" {
		c.Coach.LLMModel = "mistral:instruct"
	}
	if c.Coach.TimeoutSec == 0 {
		c.Coach.TimeoutSec = 8
	}
	if c.Coach.RateWindowSec == 0 {
		c.Coach.RateWindowSec = 60
	}
	if c.Coach.RateMaxCalls == 0 {
		c.Coach.RateMaxCalls = 5
	}
	if c.Session.CacheTTLSec == 0 {
		c.Session.CacheTTLSec = 60
	}
	if c.Session.QueueEntryTTLSec == 0 {
		c.Session.QueueEntryTTLSec = 3600
	}
	if c.Session.MatchNotificationTTLSec == 0 {
		c.Session.MatchNotificationTTLSec = 3600
	}
}

func defaultStockfishPath() string {
	if p := os.Getenv("STOCKFISH_PATH"); p != "" {
		return p
	}
	return "stockfish"
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1"
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func splitCSV(s string) []string {
	parts := make([]string, 0)
	for _, p := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

func (c *Config) IsProduction() bool { return os.Getenv("CHESSICA_ENV") == "production" }

func (c *Config) GetPort() string {
	if c.Server.Port == "" {
		return "8080"
	}
	return c.Server.Port
}

func (c *Config) MoveTimeLimit() time.Duration {
	return time.Duration(c.Engine.MoveTimeLimit * float64(time.Second))
}

func (c *Config) CoachTimeout() time.Duration {
	return time.Duration(c.Coach.TimeoutSec) * time.Second
}
