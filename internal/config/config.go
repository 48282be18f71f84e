package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/maltedev/dispensary-scraper/internal/catalog"
	"github.com/maltedev/dispensary-scraper/internal/models"
)

const envPrefix = "DISPENSARY"

type Config struct {
	Site       SiteConfig        `mapstructure:"site"`
	Categories []models.Category `mapstructure:"categories"`
	Output     OutputConfig      `mapstructure:"output"`
	Browser    BrowserConfig     `mapstructure:"browser"`
	Scraper    ScraperConfig     `mapstructure:"scraper"`
	Database   DatabaseConfig    `mapstructure:"database"`
	Redis      RedisConfig       `mapstructure:"redis"`
	Server     ServerConfig      `mapstructure:"server"`
	Logging    LoggingConfig     `mapstructure:"logging"`
}

type SiteConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type OutputConfig struct {
	Path        string `mapstructure:"path"`
	Shuffle     bool   `mapstructure:"shuffle"`
	MergePolicy string `mapstructure:"merge_policy"`
}

type BrowserConfig struct {
	Headless       bool          `mapstructure:"headless"`
	Timeout        time.Duration `mapstructure:"timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	ViewportWidth  int           `mapstructure:"viewport_width"`
	ViewportHeight int           `mapstructure:"viewport_height"`
	Locale         string        `mapstructure:"locale"`
	TimezoneID     string        `mapstructure:"timezone"`
	ProxyServer    string        `mapstructure:"proxy"`
}

type ScraperConfig struct {
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	ReadyTimeout      time.Duration `mapstructure:"ready_timeout"`
	AgeGateSelector   string        `mapstructure:"age_gate_selector"`
	AgeGateTimeout    time.Duration `mapstructure:"age_gate_timeout"`
	AgeGateSettle     time.Duration `mapstructure:"age_gate_settle"`
	ScrollIntervalMin time.Duration `mapstructure:"scroll_interval_min"`
	ScrollIntervalMax time.Duration `mapstructure:"scroll_interval_max"`
	MaxScrolls        int           `mapstructure:"max_scrolls"`
	MaxScrollDuration time.Duration `mapstructure:"max_scroll_duration"`
	CategoryDelayMin  time.Duration `mapstructure:"category_delay_min"`
	CategoryDelayMax  time.Duration `mapstructure:"category_delay_max"`
	CardSelectors     []string      `mapstructure:"card_selectors"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Stream   string `mapstructure:"stream"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the given file, or from dispensary.yaml in
// the working directory or ./config when path is empty. Environment
// variables prefixed with DISPENSARY_ override both, e.g.
// DISPENSARY_OUTPUT_PATH for output.path.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("dispensary")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("site.base_url", "https://gsngdispensary.com")
	v.SetDefault("categories", []map[string]string{
		{"label": "FLOWER", "url": "https://gsngdispensary.com/shop/categories/flower"},
		{"label": "PRE-ROLLS", "url": "https://gsngdispensary.com/shop/categories/pre-rolls"},
		{"label": "VAPORIZERS", "url": "https://gsngdispensary.com/shop/categories/vaporizers"},
	})

	v.SetDefault("output.path", "products.json")
	v.SetDefault("output.shuffle", false)
	v.SetDefault("output.merge_policy", string(catalog.LastSeenWins))

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.timeout", "30s")
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.viewport_width", 1920)
	v.SetDefault("browser.viewport_height", 1080)
	v.SetDefault("browser.locale", "en-US")
	v.SetDefault("browser.timezone", "America/Los_Angeles")
	v.SetDefault("browser.proxy", "")

	v.SetDefault("scraper.navigation_timeout", "60s")
	v.SetDefault("scraper.ready_timeout", "20s")
	v.SetDefault("scraper.age_gate_selector", `button.age-gate__submit--yes[data-submit="yes"]`)
	v.SetDefault("scraper.age_gate_timeout", "5s")
	v.SetDefault("scraper.age_gate_settle", "2s")
	v.SetDefault("scraper.scroll_interval_min", "2s")
	v.SetDefault("scraper.scroll_interval_max", "2.5s")
	v.SetDefault("scraper.max_scrolls", 200)
	v.SetDefault("scraper.max_scroll_duration", "10m")
	v.SetDefault("scraper.category_delay_min", "0s")
	v.SetDefault("scraper.category_delay_max", "0s")
	v.SetDefault("scraper.card_selectors", []string{
		`[data-testid="product-card-div"]`,
		`[data-testid="card-outer"]`,
	})

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "dispensary")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 5)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "stream:catalog")

	v.SetDefault("server.port", "8085")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

func (c *Config) Validate() error {
	if err := requireAbsolute("site.base_url", c.Site.BaseURL); err != nil {
		return err
	}

	if len(c.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}
	for i, category := range c.Categories {
		if strings.TrimSpace(category.Label) == "" {
			return fmt.Errorf("categories[%d]: label is required", i)
		}
		if err := requireAbsolute(fmt.Sprintf("categories[%d].url", i), category.URL); err != nil {
			return err
		}
	}

	if c.Output.Path == "" {
		return fmt.Errorf("output.path is required")
	}
	if _, err := catalog.ParseMergePolicy(c.Output.MergePolicy); err != nil {
		return fmt.Errorf("output.merge_policy: %w", err)
	}

	if c.Scraper.ScrollIntervalMin > c.Scraper.ScrollIntervalMax {
		return fmt.Errorf("scraper.scroll_interval_min cannot be greater than scraper.scroll_interval_max")
	}
	if c.Scraper.CategoryDelayMin > c.Scraper.CategoryDelayMax {
		return fmt.Errorf("scraper.category_delay_min cannot be greater than scraper.category_delay_max")
	}
	if c.Scraper.MaxScrolls < 0 || c.Scraper.MaxScrollDuration < 0 {
		return fmt.Errorf("scroll limits cannot be negative")
	}
	if len(c.Scraper.CardSelectors) == 0 {
		return fmt.Errorf("scraper.card_selectors must not be empty")
	}

	if c.Redis.Enabled && c.Redis.Stream == "" {
		return fmt.Errorf("redis.stream is required when redis is enabled")
	}

	return nil
}

// DatabaseURL builds the pgx connection string.
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     c.Database.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.Database.SSLMode),
	}
	return u.String()
}

func requireAbsolute(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", field, raw)
	}
	return nil
}
