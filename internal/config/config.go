package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	SendBuffer int           `mapstructure:"send_buffer"`
	ChatLimit  int           `mapstructure:"chat_limit"`
	ChatWindow time.Duration `mapstructure:"chat_window"`

	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	StaleAfter     time.Duration `mapstructure:"stale_after"`
	EmptyRoomAfter time.Duration `mapstructure:"empty_room_after"`

	Agent AgentConfig `mapstructure:"agent"`
}

// AgentConfig points at the planner service. An empty BaseURL disables
// the assistant entirely.
type AgentConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("send_buffer", 32)
	v.SetDefault("chat_limit", 8)
	v.SetDefault("chat_window", "30s")
	v.SetDefault("sweep_interval", "30s")
	v.SetDefault("stale_after", "60s")
	v.SetDefault("empty_room_after", "5m")
	v.SetDefault("agent.base_url", "")
	v.SetDefault("agent.api_key", "")
	v.SetDefault("agent.timeout", "60s")

	_ = v.BindEnv("agent.api_key", "TRIPSYNC_AGENT_KEY")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Agent: %s\n", cfg.Mode, cfg.Port, agentState(&cfg))
	return &cfg, nil
}

func agentState(cfg *Config) string {
	if cfg.Agent.BaseURL == "" {
		return "disabled"
	}
	return cfg.Agent.BaseURL
}
