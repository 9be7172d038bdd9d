package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	ServerConfig       ServerConfig       `json:"server"`
	BridgeConfig       BridgeConfig       `json:"bridge"`
	FeedConfig         FeedConfig         `json:"feed"`
	ExecutionConfig    ExecutionConfig    `json:"execution"`
	AnalysisConfig     AnalysisConfig     `json:"analysis"`
	RiskConfig         RiskConfig         `json:"risk"`
	ScheduleConfig     ScheduleConfig     `json:"schedule"`
	DatabaseConfig     DatabaseConfig     `json:"database"`
	RedisConfig        RedisConfig        `json:"redis"`
	NotificationConfig NotificationConfig `json:"notification"`
	AIConfig           AIConfig           `json:"ai"`
	LoggingConfig      LoggingConfig      `json:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	ProductionMode bool   `json:"production_mode"`
}

// BridgeConfig holds the MT5 terminal bridge connection settings,
// shared by the data feed and the order executor.
type BridgeConfig struct {
	BaseURL            string `json:"base_url"`
	RequestTimeoutSecs int    `json:"request_timeout_secs"`
	RequestsPerSec     int    `json:"requests_per_sec"`
}

// FeedConfig selects where candles come from
type FeedConfig struct {
	Provider string `json:"provider"` // "mock" or "bridge"
	BarCount int    `json:"bar_count"`
}

// ExecutionConfig selects where approved orders go
type ExecutionConfig struct {
	Mode   string  `json:"mode"`   // "paper" or "bridge"
	Equity float64 `json:"equity"` // fallback when the broker account is unreachable
	Magic  int     `json:"magic"`
}

// AnalysisConfig holds the detection pipeline parameters
type AnalysisConfig struct {
	SwingWindow             int     `json:"swing_window"`
	SweepMinPoints          float64 `json:"sweep_min_points"`
	TwoCandleRejection      bool    `json:"two_candle_rejection"`
	ShiftLookahead          int     `json:"shift_lookahead"`
	MinDisplacementPoints   float64 `json:"min_displacement_points"`
	DisplacementRangeFactor float64 `json:"displacement_range_factor"`
	ZoneMode                string  `json:"zone_mode"` // "range" or "imbalance"
	MinGapPercent           float64 `json:"min_gap_percent"`
	TrendFilter             bool    `json:"trend_filter"`
	TrendTimeframe          string  `json:"trend_timeframe"`
}

// RiskConfig holds position sizing parameters
type RiskConfig struct {
	RiskPercent      float64   `json:"risk_percent"`
	StopBufferPoints float64   `json:"stop_buffer_points"`
	RewardMultiples  []float64 `json:"reward_multiples"`
}

// InstrumentSpec describes a symbol when the feed has no metadata
type InstrumentSpec struct {
	PointSize float64 `json:"point_size"`
	Digits    int     `json:"digits"`
	MinLot    float64 `json:"min_lot"`
	LotStep   float64 `json:"lot_step"`
}

// ScheduleConfig drives the scheduled analysis loop. Timeframes maps a
// timeframe code to a six field cron spec.
type ScheduleConfig struct {
	Instruments     []string                  `json:"instruments"`
	Timeframes      map[string]string         `json:"timeframes"`
	InstrumentSpecs map[string]InstrumentSpec `json:"instrument_specs"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslmode"`
}

// RedisConfig holds Redis settings for the proposal cache
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type NotificationConfig struct {
	Enabled  bool           `json:"enabled"`
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

type DiscordConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

// AIConfig holds LLM narration configuration
type AIConfig struct {
	Enabled        bool    `json:"enabled"`
	LLMProvider    string  `json:"llm_provider"` // "claude", "openai", or "deepseek"
	ClaudeAPIKey   string  `json:"claude_api_key"`
	OpenAIAPIKey   string  `json:"openai_api_key"`
	DeepSeekAPIKey string  `json:"deepseek_api_key"`
	LLMModel       string  `json:"llm_model"`
	MaxTokens      int     `json:"max_tokens"`
	Temperature    float64 `json:"temperature"`
}

type LoggingConfig struct {
	Level  string `json:"level"`  // trace, debug, info, warn, error
	Pretty bool   `json:"pretty"` // console writer instead of JSON
}

var validTimeframes = map[string]bool{
	"1M": true, "15M": true, "1H": true, "4H": true, "D1": true,
}

// DefaultConfig returns a runnable paper-trading configuration
func DefaultConfig() *Config {
	return &Config{
		ServerConfig: ServerConfig{
			Host: "0.0.0.0",
			Port: 8090,
		},
		BridgeConfig: BridgeConfig{
			BaseURL:            "http://127.0.0.1:8787",
			RequestTimeoutSecs: 30,
			RequestsPerSec:     4,
		},
		FeedConfig: FeedConfig{
			Provider: "mock",
			BarCount: 500,
		},
		ExecutionConfig: ExecutionConfig{
			Mode:   "paper",
			Equity: 10000,
			Magic:  7777,
		},
		AnalysisConfig: AnalysisConfig{
			SwingWindow:             2,
			SweepMinPoints:          10,
			ShiftLookahead:          10,
			DisplacementRangeFactor: 1.2,
			ZoneMode:                "range",
			MinGapPercent:           0.05,
			TrendTimeframe:          "4H",
		},
		RiskConfig: RiskConfig{
			RiskPercent:      1.0,
			StopBufferPoints: 20,
			RewardMultiples:  []float64{2, 3},
		},
		ScheduleConfig: ScheduleConfig{
			Instruments: []string{"XAUUSD"},
			Timeframes: map[string]string{
				"15M": "5 0,15,30,45 * * * *",
				"1H":  "10 0 * * * *",
			},
			InstrumentSpecs: map[string]InstrumentSpec{
				"XAUUSD": {PointSize: 0.01, Digits: 2, MinLot: 0.01, LotStep: 0.01},
			},
		},
		DatabaseConfig: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "sevenms",
			Database: "sevenms",
			SSLMode:  "disable",
		},
		RedisConfig: RedisConfig{
			Address: "localhost:6379",
		},
		AIConfig: AIConfig{
			LLMProvider: "claude",
			LLMModel:    "claude-sonnet-4-20250514",
			MaxTokens:   1024,
			Temperature: 0.3,
		},
		LoggingConfig: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file, falls back to defaults when it does not
// exist, and applies environment overrides on top.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	cfg := DefaultConfig()
	if err := loadFromFile(path, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile merges the file into cfg. A missing file is not an
// error; a malformed one is.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Strategy parameters stay file-only; deployment settings and secrets
// can come from the environment.
func applyEnvOverrides(cfg *Config) {
	// Server config
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.ProductionMode = getEnvBoolOrDefault("PRODUCTION_MODE", cfg.ServerConfig.ProductionMode)

	// Bridge config
	cfg.BridgeConfig.BaseURL = getEnvOrDefault("BRIDGE_BASE_URL", cfg.BridgeConfig.BaseURL)
	cfg.BridgeConfig.RequestTimeoutSecs = getEnvIntOrDefault("BRIDGE_REQUEST_TIMEOUT", cfg.BridgeConfig.RequestTimeoutSecs)

	// Feed and execution modes
	cfg.FeedConfig.Provider = getEnvOrDefault("FEED_PROVIDER", cfg.FeedConfig.Provider)
	cfg.FeedConfig.BarCount = getEnvIntOrDefault("FEED_BAR_COUNT", cfg.FeedConfig.BarCount)
	cfg.ExecutionConfig.Mode = getEnvOrDefault("EXECUTION_MODE", cfg.ExecutionConfig.Mode)
	cfg.ExecutionConfig.Equity = getEnvFloatOrDefault("EXECUTION_EQUITY", cfg.ExecutionConfig.Equity)
	cfg.ExecutionConfig.Magic = getEnvIntOrDefault("EXECUTION_MAGIC", cfg.ExecutionConfig.Magic)

	// Database config
	cfg.DatabaseConfig.Enabled = getEnvBoolOrDefault("DB_ENABLED", cfg.DatabaseConfig.Enabled)
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", cfg.DatabaseConfig.Database)
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", cfg.DatabaseConfig.SSLMode)

	// Redis config
	cfg.RedisConfig.Enabled = getEnvBoolOrDefault("REDIS_ENABLED", cfg.RedisConfig.Enabled)
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)

	// Notification config
	cfg.NotificationConfig.Enabled = getEnvBoolOrDefault("NOTIFICATIONS_ENABLED", cfg.NotificationConfig.Enabled)
	cfg.NotificationConfig.Telegram.Enabled = getEnvBoolOrDefault("TELEGRAM_ENABLED", cfg.NotificationConfig.Telegram.Enabled)
	cfg.NotificationConfig.Telegram.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.NotificationConfig.Telegram.BotToken)
	cfg.NotificationConfig.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.NotificationConfig.Telegram.ChatID)
	cfg.NotificationConfig.Discord.Enabled = getEnvBoolOrDefault("DISCORD_ENABLED", cfg.NotificationConfig.Discord.Enabled)
	cfg.NotificationConfig.Discord.WebhookURL = getEnvOrDefault("DISCORD_WEBHOOK_URL", cfg.NotificationConfig.Discord.WebhookURL)

	// AI config
	cfg.AIConfig.Enabled = getEnvBoolOrDefault("AI_ENABLED", cfg.AIConfig.Enabled)
	cfg.AIConfig.LLMProvider = getEnvOrDefault("AI_LLM_PROVIDER", cfg.AIConfig.LLMProvider)
	cfg.AIConfig.ClaudeAPIKey = getEnvOrDefault("AI_CLAUDE_API_KEY", cfg.AIConfig.ClaudeAPIKey)
	cfg.AIConfig.OpenAIAPIKey = getEnvOrDefault("AI_OPENAI_API_KEY", cfg.AIConfig.OpenAIAPIKey)
	cfg.AIConfig.DeepSeekAPIKey = getEnvOrDefault("AI_DEEPSEEK_API_KEY", cfg.AIConfig.DeepSeekAPIKey)
	cfg.AIConfig.LLMModel = getEnvOrDefault("AI_LLM_MODEL", cfg.AIConfig.LLMModel)

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Pretty = getEnvBoolOrDefault("LOG_PRETTY", cfg.LoggingConfig.Pretty)
}

// Validate rejects configurations the engine cannot run with
func (c *Config) Validate() error {
	if c.ServerConfig.Port <= 0 || c.ServerConfig.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.ServerConfig.Port)
	}

	switch c.FeedConfig.Provider {
	case "mock", "bridge":
	default:
		return fmt.Errorf("feed provider must be mock or bridge, got %q", c.FeedConfig.Provider)
	}

	switch c.ExecutionConfig.Mode {
	case "paper", "bridge":
	default:
		return fmt.Errorf("execution mode must be paper or bridge, got %q", c.ExecutionConfig.Mode)
	}

	switch c.AnalysisConfig.ZoneMode {
	case "range", "imbalance":
	default:
		return fmt.Errorf("zone mode must be range or imbalance, got %q", c.AnalysisConfig.ZoneMode)
	}

	if c.AnalysisConfig.SwingWindow < 1 {
		return fmt.Errorf("swing window must be at least 1, got %d", c.AnalysisConfig.SwingWindow)
	}
	if c.AnalysisConfig.ShiftLookahead < 1 {
		return fmt.Errorf("shift lookahead must be at least 1, got %d", c.AnalysisConfig.ShiftLookahead)
	}
	if c.AnalysisConfig.TrendFilter && !validTimeframes[c.AnalysisConfig.TrendTimeframe] {
		return fmt.Errorf("unknown trend timeframe %q", c.AnalysisConfig.TrendTimeframe)
	}

	if c.RiskConfig.RiskPercent <= 0 || c.RiskConfig.RiskPercent > 100 {
		return fmt.Errorf("risk percent must be in (0, 100], got %v", c.RiskConfig.RiskPercent)
	}
	for _, m := range c.RiskConfig.RewardMultiples {
		if m <= 0 {
			return fmt.Errorf("reward multiples must be positive, got %v", m)
		}
	}

	for tf := range c.ScheduleConfig.Timeframes {
		if !validTimeframes[tf] {
			return fmt.Errorf("unknown schedule timeframe %q", tf)
		}
	}

	switch c.AIConfig.LLMProvider {
	case "claude", "openai", "deepseek":
	default:
		return fmt.Errorf("llm provider must be claude, openai or deepseek, got %q", c.AIConfig.LLMProvider)
	}

	return nil
}

// LLMAPIKey returns the API key matching the configured provider
func (c *AIConfig) LLMAPIKey() string {
	switch c.LLMProvider {
	case "openai":
		return c.OpenAIAPIKey
	case "deepseek":
		return c.DeepSeekAPIKey
	default:
		return c.ClaudeAPIKey
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

// GenerateSampleConfig writes a starter configuration file
func GenerateSampleConfig(filename string) error {
	cfg := DefaultConfig()
	cfg.NotificationConfig.Telegram.BotToken = "your_bot_token_here"
	cfg.NotificationConfig.Telegram.ChatID = "your_chat_id_here"
	cfg.NotificationConfig.Discord.WebhookURL = "https://discord.com/api/webhooks/..."
	cfg.AIConfig.ClaudeAPIKey = "your_api_key_here"
	cfg.DatabaseConfig.Password = "your_db_password_here"

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
