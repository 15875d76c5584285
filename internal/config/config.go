package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Map    MapConfig    `yaml:"map" mapstructure:"map"`
	Dedup  DedupConfig  `yaml:"dedup" mapstructure:"dedup"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures where placement records are loaded from.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // postgres, sqlite or json
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Table       string `yaml:"table" mapstructure:"table"`
	Path        string `yaml:"path" mapstructure:"path"` // sqlite file or JSON dump
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// ServerConfig configures the map HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RateLimit      float64  `yaml:"rate_limit" mapstructure:"rate_limit"` // requests/sec per client, 0 disables
	RateBurst      int      `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// MapConfig configures the base map view.
type MapConfig struct {
	CenterLat       float64       `yaml:"center_lat" mapstructure:"center_lat"`
	CenterLng       float64       `yaml:"center_lng" mapstructure:"center_lng"`
	Zoom            int           `yaml:"zoom" mapstructure:"zoom"`
	TileURL         string        `yaml:"tile_url" mapstructure:"tile_url"`
	TileSubdomains  string        `yaml:"tile_subdomains" mapstructure:"tile_subdomains"`
	TileAttribution string        `yaml:"tile_attribution" mapstructure:"tile_attribution"`
	MaxZoom         int           `yaml:"max_zoom" mapstructure:"max_zoom"`
	FitPadding      int           `yaml:"fit_padding" mapstructure:"fit_padding"`
	TileProxy       bool          `yaml:"tile_proxy" mapstructure:"tile_proxy"` // serve tiles through /tiles
	TileCacheSize   int           `yaml:"tile_cache_size" mapstructure:"tile_cache_size"`
	TileCacheTTL    time.Duration `yaml:"tile_cache_ttl" mapstructure:"tile_cache_ttl"`
	TileRateLimit   float64       `yaml:"tile_rate_limit" mapstructure:"tile_rate_limit"` // upstream requests/sec, 0 disables
}

// DedupConfig configures proximity deduplication.
type DedupConfig struct {
	Compare string `yaml:"compare" mapstructure:"compare"` // trusted_excluded or all
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("OOHMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.table", "mapa")
	v.SetDefault("store.path", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("map.center_lat", -15.7942)
	v.SetDefault("map.center_lng", -47.8822)
	v.SetDefault("map.zoom", 4)
	v.SetDefault("map.tile_url", "https://{s}.basemaps.cartocdn.com/rastertiles/voyager_nolabels/{z}/{x}/{y}{r}.png")
	v.SetDefault("map.tile_subdomains", "abcd")
	v.SetDefault("map.tile_attribution", `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors &copy; <a href="https://carto.com/attributions">CARTO</a>`)
	v.SetDefault("map.max_zoom", 19)
	v.SetDefault("map.fit_padding", 20)
	v.SetDefault("map.tile_proxy", false)
	v.SetDefault("map.tile_cache_size", 2048)
	v.SetDefault("map.tile_cache_ttl", "1h")
	v.SetDefault("map.tile_rate_limit", 10.0)
	v.SetDefault("dedup.compare", "trusted_excluded")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings a command needs are present. mode is the
// command name; every problem is reported at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	case "sqlite", "json":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for the "+c.Store.Driver+" driver")
		}
	default:
		problems = append(problems, "store.driver must be postgres, sqlite or json")
	}

	if mode == "serve" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be between 1 and 65535")
		}
		if c.Map.Zoom < 0 || c.Map.Zoom > c.Map.MaxZoom {
			problems = append(problems, "map.zoom must be between 0 and map.max_zoom")
		}
		if c.Map.TileURL == "" {
			problems = append(problems, "map.tile_url is required")
		}
		if c.Map.TileProxy && c.Map.TileCacheSize < 0 {
			problems = append(problems, "map.tile_cache_size must not be negative")
		}
	}

	if mode == "import" && c.Store.Driver == "json" {
		problems = append(problems, "import needs a postgres or sqlite store")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
