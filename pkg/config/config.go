// Package config loads the service settings from the environment, with an
// optional .env file merged in underneath.
package config

import (
	goerrors "errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/shotbox/shotbox/pkg/broker"
	"github.com/shotbox/shotbox/pkg/job"
	"github.com/shotbox/shotbox/pkg/jsonrpc"
	"github.com/shotbox/shotbox/pkg/render"
)

type Settings struct {
	Host                     string
	Port                     int
	MaxConcurrentScreenshots int

	BrowserType    string
	Headless       bool
	ViewportWidth  int
	ViewportHeight int

	DefaultImageType              string
	DefaultImageQuality           int
	DefaultWaitUntil              string
	DefaultTimeoutMs              int
	DefaultWaitForSelectorTimeout int

	RedisHost             string
	RedisPort             int
	RedisDB               int
	RedisPassword         string
	RedisTaskQueue        string
	RedisResultPrefix     string
	RedisResultTTLSeconds int

	JSONRPCVersion string
	LogLevel       string
}

var defaults = map[string]any{
	"HOST":                       "0.0.0.0",
	"PORT":                       8000,
	"MAX_CONCURRENT_SCREENSHOTS": 5,

	"BROWSER_TYPE":    "chromium",
	"HEADLESS":        true,
	"VIEWPORT_WIDTH":  1280,
	"VIEWPORT_HEIGHT": 720,

	"DEFAULT_IMAGE_TYPE":                "png",
	"DEFAULT_IMAGE_QUALITY":             80,
	"DEFAULT_WAIT_UNTIL":                "load",
	"DEFAULT_TIMEOUT_MS":                30000,
	"DEFAULT_WAIT_FOR_SELECTOR_TIMEOUT": 5000,

	"REDIS_HOST":               "localhost",
	"REDIS_PORT":               6379,
	"REDIS_DB":                 0,
	"REDIS_PASSWORD":           "",
	"REDIS_TASK_QUEUE":         "screenshot_tasks",
	"REDIS_RESULT_PREFIX":      "screenshot_result:",
	"REDIS_RESULT_TTL_SECONDS": 3600,

	"JSON_RPC_VERSION": "2.0",
	"LOG_LEVEL":        "info",
}

// Load merges .env (when present) with the real environment. Environment
// variables win over the file; both win over the built-in defaults.
func Load(envFile string) (*Settings, error) {
	vp := viper.New()

	if envFile != "" {
		vp.SetConfigFile(envFile)
		vp.SetConfigType("env")

		if err := vp.ReadInConfig(); err != nil {
			if !goerrors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config: read %s: %w", envFile, err)
			}
		}
	}

	for key, def := range defaults {
		vp.SetDefault(key, def)
		if err := vp.BindEnv(key); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", key, err)
		}
	}

	// The protocol version is configurable in name only; refuse anything the
	// server does not actually speak.
	if v := vp.GetString("JSON_RPC_VERSION"); v != jsonrpc.Version {
		return nil, fmt.Errorf("config: unsupported JSON_RPC_VERSION %q (this service speaks %s)", v, jsonrpc.Version)
	}

	return &Settings{
		Host:                     vp.GetString("HOST"),
		Port:                     vp.GetInt("PORT"),
		MaxConcurrentScreenshots: vp.GetInt("MAX_CONCURRENT_SCREENSHOTS"),

		BrowserType:    vp.GetString("BROWSER_TYPE"),
		Headless:       vp.GetBool("HEADLESS"),
		ViewportWidth:  vp.GetInt("VIEWPORT_WIDTH"),
		ViewportHeight: vp.GetInt("VIEWPORT_HEIGHT"),

		DefaultImageType:              vp.GetString("DEFAULT_IMAGE_TYPE"),
		DefaultImageQuality:           vp.GetInt("DEFAULT_IMAGE_QUALITY"),
		DefaultWaitUntil:              vp.GetString("DEFAULT_WAIT_UNTIL"),
		DefaultTimeoutMs:              vp.GetInt("DEFAULT_TIMEOUT_MS"),
		DefaultWaitForSelectorTimeout: vp.GetInt("DEFAULT_WAIT_FOR_SELECTOR_TIMEOUT"),

		RedisHost:             vp.GetString("REDIS_HOST"),
		RedisPort:             vp.GetInt("REDIS_PORT"),
		RedisDB:               vp.GetInt("REDIS_DB"),
		RedisPassword:         vp.GetString("REDIS_PASSWORD"),
		RedisTaskQueue:        vp.GetString("REDIS_TASK_QUEUE"),
		RedisResultPrefix:     vp.GetString("REDIS_RESULT_PREFIX"),
		RedisResultTTLSeconds: vp.GetInt("REDIS_RESULT_TTL_SECONDS"),

		JSONRPCVersion: vp.GetString("JSON_RPC_VERSION"),
		LogLevel:       vp.GetString("LOG_LEVEL"),
	}, nil
}

// ListenAddr is the gateway bind address.
func (s *Settings) ListenAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BrokerOptions maps the Redis settings onto the broker facade.
func (s *Settings) BrokerOptions() broker.Options {
	return broker.Options{
		Addr:         fmt.Sprintf("%s:%d", s.RedisHost, s.RedisPort),
		DB:           s.RedisDB,
		Password:     s.RedisPassword,
		TaskQueue:    s.RedisTaskQueue,
		ResultPrefix: s.RedisResultPrefix,
		ResultTTL:    time.Duration(s.RedisResultTTLSeconds) * time.Second,
	}
}

// RenderConfig maps the browser settings onto the render engine.
func (s *Settings) RenderConfig() render.Config {
	return render.Config{
		BrowserType:     s.BrowserType,
		Headless:        s.Headless,
		MaxConcurrent:   s.MaxConcurrentScreenshots,
		SelectorTimeout: time.Duration(s.DefaultWaitForSelectorTimeout) * time.Millisecond,
	}
}

// ScreenshotDefaults supplies the fallback values merged into incoming
// params before validation.
func (s *Settings) ScreenshotDefaults() job.Defaults {
	return job.Defaults{
		ViewportWidth:  s.ViewportWidth,
		ViewportHeight: s.ViewportHeight,
		ImageType:      s.DefaultImageType,
		Quality:        s.DefaultImageQuality,
		WaitUntil:      s.DefaultWaitUntil,
		TimeoutMs:      s.DefaultTimeoutMs,
	}
}

// ApplyLogLevel configures the global logger from LOG_LEVEL. Unknown levels
// fall back to info.
func (s *Settings) ApplyLogLevel() {
	level, err := log.ParseLevel(s.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
