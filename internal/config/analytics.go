package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AnalyticsConfig tunes metric computation and reporting thresholds.
type AnalyticsConfig struct {
	CacheTTLSeconds    int     `mapstructure:"cacheTTLSeconds"`
	ChurnAlertPercent  float64 `mapstructure:"churnAlertPercent"`
	LTVCACFloor        float64 `mapstructure:"ltvCacFloor"`
	MaxHistoricalMonths int    `mapstructure:"maxHistoricalMonths"`
}

func DefaultAnalyticsConfig() AnalyticsConfig {
	return AnalyticsConfig{
		CacheTTLSeconds:     300,
		ChurnAlertPercent:   5,
		LTVCACFloor:         3,
		MaxHistoricalMonths: 24,
	}
}

func (c AnalyticsConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

type AnalyticsConfigHolder struct {
	current atomic.Value // holds AnalyticsConfig
}

func NewAnalyticsConfigHolder() (*AnalyticsConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("analytics")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/revlytic/config") // Volume-mounted config
	v.AddConfigPath("/etc/revlytic")            // System config
	v.AddConfigPath(".")                        // Current directory (dev mode)

	v.SetEnvPrefix("REVLYTIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultAnalyticsConfig()
	v.SetDefault("analytics.cacheTTLSeconds", defaults.CacheTTLSeconds)
	v.SetDefault("analytics.churnAlertPercent", defaults.ChurnAlertPercent)
	v.SetDefault("analytics.ltvCacFloor", defaults.LTVCACFloor)
	v.SetDefault("analytics.maxHistoricalMonths", defaults.MaxHistoricalMonths)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg AnalyticsConfig
	if err := v.UnmarshalKey("analytics", &cfg); err != nil {
		return nil, err
	}
	if err := validateAnalyticsConfig(cfg); err != nil {
		return nil, err
	}

	holder := &AnalyticsConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated AnalyticsConfig
		if err := v.UnmarshalKey("analytics", &updated); err != nil {
			log.Printf("[analytics-config] reload failed: %v", err)
			return
		}
		if err := validateAnalyticsConfig(updated); err != nil {
			log.Printf("[analytics-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[analytics-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticAnalyticsConfigHolder wraps a fixed config without file watching.
func NewStaticAnalyticsConfigHolder(cfg AnalyticsConfig) *AnalyticsConfigHolder {
	holder := &AnalyticsConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *AnalyticsConfigHolder) Get() AnalyticsConfig {
	return h.current.Load().(AnalyticsConfig)
}

func validateAnalyticsConfig(cfg AnalyticsConfig) error {
	if cfg.CacheTTLSeconds <= 0 {
		return errors.New("analytics.cacheTTLSeconds must be positive")
	}
	if cfg.MaxHistoricalMonths <= 0 {
		return errors.New("analytics.maxHistoricalMonths must be positive")
	}
	return nil
}
