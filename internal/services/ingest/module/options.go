package module

import (
	"time"

	"lakefill/internal/platform/config"
)

// Options carries env driven settings for the ingest module
type Options struct {
	// Dataset is the sink base path under the bronze bucket
	Dataset string
	// ConfigPath selects the INI provider when set, env provider otherwise
	ConfigPath string
	// HTTPTimeout bounds a single archive fetch, 0 means no client timeout
	HTTPTimeout time.Duration
	// CacheDir enables the on disk collector cache when set
	CacheDir       string
	RefreshRecent  time.Duration
	RetainMaxAge   time.Duration
	RetainMaxBytes int64
}

// FromConfig extracts Options from cfg under CORE_INGEST_
func FromConfig(cfg config.Conf) Options {
	ing := cfg.Prefix("CORE_INGEST_")
	return Options{
		Dataset:        ing.MayString("DATASET", "gharchive/events"),
		ConfigPath:     ing.MayString("CONFIG_FILE", ""),
		HTTPTimeout:    time.Duration(ing.MayInt("HTTP_TIMEOUT_SECONDS", 0)) * time.Second, // 0 == no client timeout
		CacheDir:       ing.MayString("CACHE_DIR", ""),
		RefreshRecent:  time.Duration(ing.MayInt("REFRESH_RECENT_HOURS", 0)) * time.Hour,
		RetainMaxAge:   time.Duration(ing.MayInt("RETAIN_MAX_DAYS", 0)) * 24 * time.Hour,
		RetainMaxBytes: int64(ing.MayInt("RETAIN_MAX_BYTES", 0)),
	}
}
