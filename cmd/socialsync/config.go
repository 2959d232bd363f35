package main

import (
	"fmt"
	"socialsync-backend/internal/archive"
	"socialsync-backend/internal/platform"
	"socialsync-backend/lib/configutil"
	"socialsync-backend/pkg/migrations"
	"time"
)

const envPrefix = "SOCIALSYNC_"

type Mode string

const (
	ModeJob     Mode = "job"
	ModeBrowser Mode = "browser"
	ModeHTTP    Mode = "http"
)

type VendorConfig struct {
	BaseUrl           string  `json:"base_url"`
	Token             string  `json:"token"`
	PollIntervalSec   int     `json:"poll_interval_sec"`
	DeadlineSec       int     `json:"deadline_sec"`
	RequestsPerSecond float64 `json:"requests_per_second"`
}

type BrowserConfig struct {
	Bin       string `json:"bin"`
	Headless  *bool  `json:"headless"`
	UserAgent string `json:"user_agent"`
}

// CollectorConfig describes one collection path for a platform.
type CollectorConfig struct {
	Mode                 Mode   `json:"mode"`
	Actor                string `json:"actor"`
	Isolate              bool   `json:"isolate"`
	DelayMs              int    `json:"delay_ms"`
	NavigationTimeoutSec int    `json:"navigation_timeout_sec"`
	IdleTimeoutSec       int    `json:"idle_timeout_sec"`
}

func (c CollectorConfig) validate() error {
	switch c.Mode {
	case ModeJob:
		if c.Actor == "" {
			return fmt.Errorf("mode job needs an actor")
		}
	case ModeBrowser, ModeHTTP:
	default:
		return fmt.Errorf("unknown mode '%s'", c.Mode)
	}
	return nil
}

type PlatformConfig struct {
	Mode                 Mode   `json:"mode"`
	Actor                string `json:"actor"`
	Isolate              bool   `json:"isolate"`
	DelayMs              int    `json:"delay_ms"`
	NavigationTimeoutSec int    `json:"navigation_timeout_sec"`
	IdleTimeoutSec       int    `json:"idle_timeout_sec"`

	Backup *CollectorConfig `json:"backup"`
}

func (p PlatformConfig) Primary() CollectorConfig {
	return CollectorConfig{
		Mode:                 p.Mode,
		Actor:                p.Actor,
		Isolate:              p.Isolate,
		DelayMs:              p.DelayMs,
		NavigationTimeoutSec: p.NavigationTimeoutSec,
		IdleTimeoutSec:       p.IdleTimeoutSec,
	}
}

type ArchiveConfig struct {
	Dir string            `json:"dir"`
	S3  *archive.S3Config `json:"s3"`
}

type Config struct {
	Timezone    string                    `json:"timezone"`
	Database    migrations.Config         `json:"database"`
	Vendor      VendorConfig              `json:"vendor"`
	Browser     BrowserConfig             `json:"browser"`
	Platforms   map[string]PlatformConfig `json:"platforms"`
	Concurrency int                       `json:"concurrency"`
	Schedule    string                    `json:"schedule"`
	Archive     ArchiveConfig             `json:"archive"`
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Vendor.PollIntervalSec) * time.Second
}

func (c Config) Deadline() time.Duration {
	return time.Duration(c.Vendor.DeadlineSec) * time.Second
}

// PlatformConfigs resolves the platform names of the config, "x" is accepted for twitter.
func (c Config) PlatformConfigs() (map[platform.Platform]PlatformConfig, error) {
	out := make(map[platform.Platform]PlatformConfig, len(c.Platforms))
	for name, pc := range c.Platforms {
		p, err := platform.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("platforms: %w", err)
		}
		if err := pc.Primary().validate(); err != nil {
			return nil, fmt.Errorf("platforms.%s: %w", name, err)
		}
		if pc.Backup != nil {
			if err := pc.Backup.validate(); err != nil {
				return nil, fmt.Errorf("platforms.%s.backup: %w", name, err)
			}
		}
		out[p] = pc
	}
	return out, nil
}

func (c *Config) applyDefaults() {
	if c.Database.File == "" && c.Database.Url == "" {
		c.Database.File = "data/socialsync.db"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = len(platform.All)
	}
	if c.Schedule == "" {
		c.Schedule = "0 6 * * *"
	}
}

// LoadConfig reads the json5 config at path (merged with its .local variant) and overlays
// SOCIALSYNC_* environment variables.
func LoadConfig(path string) (Config, error) {
	config, err := configutil.ReadConfig[Config](path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	err = configutil.OverlayEnv(envPrefix, &config)
	if err != nil {
		return Config{}, fmt.Errorf("read config from environment: %w", err)
	}
	config.applyDefaults()

	_, err = config.PlatformConfigs()
	if err != nil {
		return Config{}, err
	}
	return config, nil
}
