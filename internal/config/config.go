package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Orders   OrdersConfig   `mapstructure:"orders"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Lyrics   LyricsConfig   `mapstructure:"lyrics"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// BrowserConfig holds Chromium session options
type BrowserConfig struct {
	Headless      bool          `mapstructure:"headless"`
	ExecPath      string        `mapstructure:"exec_path"`
	ActionTimeout time.Duration `mapstructure:"action_timeout"`
	Proxy         string        `mapstructure:"proxy"`
}

// OrdersConfig holds the robot order workflow settings
type OrdersConfig struct {
	URL            string         `mapstructure:"url"`
	MaxRetries     int            `mapstructure:"max_retries"`
	RetryInterval  time.Duration  `mapstructure:"retry_interval"`
	RowPause       time.Duration  `mapstructure:"row_pause"`
	ReceiptTimeout time.Duration  `mapstructure:"receipt_timeout"`
	ModalTimeout   time.Duration  `mapstructure:"modal_timeout"`
	ReplayMinIdle  time.Duration  `mapstructure:"replay_min_idle"`
	ImagesDir      string         `mapstructure:"images_dir"`
	PDFDir         string         `mapstructure:"pdf_dir"`
	PageWidth      int            `mapstructure:"page_width"`
	Selectors      OrderSelectors `mapstructure:"selectors"`
}

// OrderSelectors is the UI contract of the order site
type OrderSelectors struct {
	Modal         string `mapstructure:"modal"`
	Head          string `mapstructure:"head"`
	BodyRadioName string `mapstructure:"body_radio_name"`
	Legs          string `mapstructure:"legs"`
	Address       string `mapstructure:"address"`
	Submit        string `mapstructure:"submit"`
	OrderAnother  string `mapstructure:"order_another"`
	ErrorBanner   string `mapstructure:"error_banner"`
	Receipt       string `mapstructure:"receipt"`
	Preview       string `mapstructure:"preview"`
}

// HTTPConfig holds settings of the resty client used for downloads and translation
type HTTPConfig struct {
	Timeout              time.Duration `mapstructure:"timeout"`
	RetryCount           int           `mapstructure:"retry_count"`
	MaxRequestsPerSecond int           `mapstructure:"max_requests_per_second"`
	Proxies              []string      `mapstructure:"proxies"`
	ProxyTestURL         string        `mapstructure:"proxy_test_url"`
}

// LyricsConfig holds lyrics.com workflow settings
type LyricsConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	TranslateURL   string        `mapstructure:"translate_url"`
	TargetLanguage string        `mapstructure:"target_language"`
	OutputDir      string        `mapstructure:"output_dir"`
	LoginRetries   int           `mapstructure:"login_retries"`
	StepPause      time.Duration `mapstructure:"step_pause"`
	WaitTimeout    time.Duration `mapstructure:"wait_timeout"`

	// Authentication
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// DSN builds the pgx connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Password, d.Name)
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Password      string `mapstructure:"password"`
	Database      int    `mapstructure:"database"`
	KeyPrefix     string `mapstructure:"key_prefix"`
	ConsumerGroup string `mapstructure:"consumer_group"`
}

// Load reads configuration from a YAML file with environment variable overrides.
// An empty path looks for config.yaml in the current directory and falls back to
// defaults when it is missing; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if config.Orders.MaxRetries < 0 {
		return nil, fmt.Errorf("orders.max_retries must not be negative, got %d", config.Orders.MaxRetries)
	}
	if config.Orders.PageWidth <= 0 {
		return nil, fmt.Errorf("orders.page_width must be positive, got %d", config.Orders.PageWidth)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.action_timeout", 15*time.Second)
	v.SetDefault("browser.proxy", "")

	v.SetDefault("orders.url", "https://robotsparebinindustries.com/#/robot-order")
	v.SetDefault("orders.max_retries", 10)
	v.SetDefault("orders.retry_interval", time.Second)
	v.SetDefault("orders.row_pause", time.Second)
	v.SetDefault("orders.receipt_timeout", 10*time.Second)
	v.SetDefault("orders.modal_timeout", 3*time.Second)
	v.SetDefault("orders.replay_min_idle", time.Duration(0))
	v.SetDefault("orders.images_dir", "output/order_images")
	v.SetDefault("orders.pdf_dir", "output/order_details")
	v.SetDefault("orders.page_width", 600)
	v.SetDefault("orders.selectors.modal", ".btn-dark")
	v.SetDefault("orders.selectors.head", "select.custom-select")
	v.SetDefault("orders.selectors.body_radio_name", "body")
	v.SetDefault("orders.selectors.legs", `input[type="number"].form-control`)
	v.SetDefault("orders.selectors.address", `input[type="text"].form-control`)
	v.SetDefault("orders.selectors.submit", "#order")
	v.SetDefault("orders.selectors.order_another", "#order-another")
	v.SetDefault("orders.selectors.error_banner", ".alert.alert-danger")
	v.SetDefault("orders.selectors.receipt", "#receipt")
	v.SetDefault("orders.selectors.preview", "#robot-preview-image")

	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.retry_count", 0)
	v.SetDefault("http.max_requests_per_second", 10)
	v.SetDefault("http.proxies", []string{})
	v.SetDefault("http.proxy_test_url", "https://robotsparebinindustries.com/")

	v.SetDefault("lyrics.base_url", "https://www.lyrics.com/")
	v.SetDefault("lyrics.translate_url", "https://translate.google.com/m")
	v.SetDefault("lyrics.target_language", "vi")
	v.SetDefault("lyrics.output_dir", ".")
	v.SetDefault("lyrics.login_retries", 4)
	v.SetDefault("lyrics.step_pause", time.Second)
	v.SetDefault("lyrics.wait_timeout", 10*time.Second)
	v.SetDefault("lyrics.username", "")
	v.SetDefault("lyrics.password", "")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "rpa")
	v.SetDefault("database.user", "rpa_user")
	v.SetDefault("database.password", "rpa_pass")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.key_prefix", "rpa:")
	v.SetDefault("redis.consumer_group", "rpa_orders")
}
