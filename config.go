package inspector

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Overlay OverlayConfig `toml:"overlay"`
	Logging LoggingConfig `toml:"logging"`
	Server  ServerConfig  `toml:"server"`
	Loop    LoopConfig    `toml:"loop"`
	World   WorldConfig   `toml:"world"`
}

type OverlayConfig struct {
	Delimiter      string       `toml:"delimiter"`
	IdProbeStart   uint64       `toml:"id_probe_start"`
	IdProbeCeiling uint64       `toml:"id_probe_ceiling"`
	Services       ServiceNames `toml:"services"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
	Prefix string `toml:"prefix"`
}

type ServerConfig struct {
	Enabled     bool   `toml:"enabled"`
	BindAddress string `toml:"bind_address"`
	Path        string `toml:"path"`
}

type LoopConfig struct {
	StepRate   time.Duration `toml:"step_rate"`
	RenderRate time.Duration `toml:"render_rate"`
	Window     bool          `toml:"window"`
	Width      int           `toml:"width"`
	Height     int           `toml:"height"`
}

type WorldConfig struct {
	Preset        string   `toml:"preset"`
	ResourcePaths []string `toml:"resource_paths"`
}

// Load reads a TOML file over DefaultConfig. Keys missing from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Overlay: OverlayConfig{
			Delimiter:      "::",
			IdProbeStart:   0,
			IdProbeCeiling: DefaultIdProbeCeiling,
			Services:       DefaultServiceNames(),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Prefix: "inspector",
		},
		Server: ServerConfig{
			Enabled:     true,
			BindAddress: "127.0.0.1:11345",
			Path:        "/ws",
		},
		Loop: LoopConfig{
			StepRate:   time.Millisecond,
			RenderRate: 16 * time.Millisecond,
			Width:      1280,
			Height:     720,
		},
	}
}

func (cfg *Config) validate() error {
	if cfg.Overlay.Delimiter == "" {
		return fmt.Errorf("overlay.delimiter must not be empty")
	}
	if cfg.Overlay.IdProbeCeiling == 0 {
		return fmt.Errorf("overlay.id_probe_ceiling must be positive")
	}
	if cfg.Loop.StepRate <= 0 || cfg.Loop.RenderRate <= 0 {
		return fmt.Errorf("loop rates must be positive, got %v and %v", cfg.Loop.StepRate, cfg.Loop.RenderRate)
	}
	return nil
}
