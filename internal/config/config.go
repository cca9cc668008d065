package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Settings carries every tunable the bundler reads. Values come from
// defaults, then a funee.yaml in the working directory if present, then FUNEE_*
// environment variables (FUNEE_CACHE_DIR and friends).
type Settings struct {
	CacheDir           string        `mapstructure:"cache_dir"`
	LibPath            string        `mapstructure:"lib_path"`
	HTTPTimeout        time.Duration `mapstructure:"http_timeout"`
	MaxRedirects       int           `mapstructure:"max_redirects"`
	RemoteFetchWorkers int           `mapstructure:"remote_fetch_workers"`
	MacroMaxIterations int           `mapstructure:"macro_max_iterations"`
	MacroTimeout       time.Duration `mapstructure:"macro_timeout"`
	WatchDebounce      time.Duration `mapstructure:"watch_debounce"`
}

const (
	defaultHTTPTimeout        = 30 * time.Second
	defaultMaxRedirects       = 10
	defaultRemoteFetchWorkers = 8
	defaultMacroMaxIterations = 100
	defaultMacroTimeout       = 5 * time.Second
	defaultWatchDebounce      = 100 * time.Millisecond
)

// Load builds the settings for one bundler invocation.
func Load() (*Settings, error) {
	v := viper.New()

	v.SetDefault("cache_dir", defaultCacheDir())
	v.SetDefault("lib_path", discoverLibPath())
	v.SetDefault("http_timeout", defaultHTTPTimeout)
	v.SetDefault("max_redirects", defaultMaxRedirects)
	v.SetDefault("remote_fetch_workers", defaultRemoteFetchWorkers)
	v.SetDefault("macro_max_iterations", defaultMacroMaxIterations)
	v.SetDefault("macro_timeout", defaultMacroTimeout)
	v.SetDefault("watch_debounce", defaultWatchDebounce)

	v.SetEnvPrefix("FUNEE")
	v.AutomaticEnv()

	v.SetConfigName("funee")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// defaultCacheDir is ~/.funee/cache unless FUNEE_CACHE_DIR overrides it
// (the override itself is applied by viper's env binding).
func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "funee-cache")
	}
	return filepath.Join(home, ".funee", "cache")
}

// discoverLibPath looks for the bundled standard library next to the
// executable: <dir>/funee-lib/index.ts or <dir>/../funee-lib/index.ts.
// Empty means "no library on disk"; the fetcher then synthesizes a stub.
func discoverLibPath() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	dir := filepath.Dir(exe)
	for _, candidate := range []string{
		filepath.Join(dir, "funee-lib", "index.ts"),
		filepath.Join(dir, "..", "funee-lib", "index.ts"),
	} {
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate
		}
	}
	return ""
}
