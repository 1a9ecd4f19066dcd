package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/netip"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env:"LISTEN_BIND_IP" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env:"LISTEN_PORT" env-default:"5000"`
	// TrustedProxies lists addresses or CIDR ranges whose forwarding headers name the client.
	// Requests from any other peer are keyed by their socket address.
	TrustedProxies []string `yaml:"trusted_proxies" env:"LISTEN_TRUSTED_PROXIES" env-separator:","`
}

type MongoConfig struct {
	URI          string `yaml:"uri" env:"MONGO_URI" env-required:"true" env-description:"MongoDB connection string"`
	Database     string `yaml:"database" env:"MONGO_DB_NAME" env-required:"true" env-description:"MongoDB database name"`
	Transactions bool   `yaml:"transactions" env:"MONGO_TRANSACTIONS" env-default:"false" env-description:"run registrations in multi-document transactions (replica set required)"`
	TimeoutSec   int    `yaml:"timeout_sec" env:"MONGO_TIMEOUT_SEC" env-default:"10"`
}

type ReleaseConfig struct {
	LatestVersion string `yaml:"latest_version" env:"RELEASE_LATEST_VERSION" env-default:"1.1.0"`
	Dir           string `yaml:"dir" env:"RELEASE_DIR" env-default:"releases"`
	Name          string `yaml:"name" env:"RELEASE_NAME" env-default:"UniStuHelper"`
	DownloadURL   string `yaml:"download_url" env:"RELEASE_DOWNLOAD_URL" env-default:"http://127.0.0.1:5000/download"`
	BetaWarning   string `yaml:"beta_warning" env:"RELEASE_BETA_WARNING" env-default:"You are using an unstable beta version. Would you like to update to the stable release?"`
}

type InvitesConfig struct {
	DefaultExpiryMin int `yaml:"default_expiry_min" env:"INVITES_DEFAULT_EXPIRY_MIN" env-default:"10080"`
	CodeAttempts     int `yaml:"code_attempts" env:"INVITES_CODE_ATTEMPTS" env-default:"10"`
}

// AdminConfig names the seed account created on start-up when it does not exist yet.
type AdminConfig struct {
	Username string `yaml:"username" env:"ADMIN_USERNAME" env-default:""`
	Password string `yaml:"password" env:"ADMIN_PASSWORD" env-default:""`
}

type RateLimitConfig struct {
	RequestsPerMin int `yaml:"requests_per_min" env:"RATE_LIMIT_REQUESTS_PER_MIN" env-default:"20"`
	Burst          int `yaml:"burst" env:"RATE_LIMIT_BURST" env-default:"5"`
}

type TelegramConfig struct {
	Enabled  bool    `yaml:"enabled" env:"TELEGRAM_ENABLED" env-default:"false"`
	ApiKey   string  `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
	ChatIds  []int64 `yaml:"chat_ids" env:"TELEGRAM_CHAT_IDS" env-separator:","`
	MinLevel string  `yaml:"min_level" env:"TELEGRAM_MIN_LEVEL" env-default:"error"`
}

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	Listen    Listen          `yaml:"listen"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Release   ReleaseConfig   `yaml:"release"`
	Invites   InvitesConfig   `yaml:"invites"`
	Admin     AdminConfig     `yaml:"admin"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Telegram  TelegramConfig  `yaml:"telegram"`
}

func (c *Config) MongoTimeout() time.Duration {
	return time.Duration(c.Mongo.TimeoutSec) * time.Second
}

func (c *Config) InviteExpiry() time.Duration {
	return time.Duration(c.Invites.DefaultExpiryMin) * time.Minute
}

// TrustedProxies returns the parsed proxy ranges; a plain address becomes a single-host prefix.
func (c *Config) TrustedProxies() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(c.Listen.TrustedProxies))
	for _, entry := range c.Listen.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("listen.trusted_proxies: %w", err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("listen.trusted_proxies: %w", err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func (c *Config) TelegramLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Telegram.MinLevel)); err != nil {
		return slog.LevelError
	}
	return level
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	once.Do(func() {
		conf, err := Load(path)
		if err != nil {
			log.Fatal(err)
		}
		instance = conf
	})
	return instance
}

// Load reads a yml or .env file at path; a missing file falls back to the process environment only.
// Environment variables override file values in both cases.
func Load(path string) (*Config, error) {
	conf := &Config{}
	var err error
	if _, statErr := os.Stat(path); path != "" && statErr == nil {
		err = cleanenv.ReadConfig(path, conf)
	} else if path == "" || errors.Is(statErr, fs.ErrNotExist) {
		err = cleanenv.ReadEnv(conf)
	} else {
		err = statErr
	}
	if err != nil {
		desc, _ := cleanenv.GetDescription(conf, nil)
		return nil, fmt.Errorf("config: %s; %s", err, desc)
	}
	if err = conf.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return conf, nil
}

func (c *Config) validate() error {
	if c.Invites.CodeAttempts <= 0 {
		return fmt.Errorf("invites.code_attempts must be positive")
	}
	if c.Invites.DefaultExpiryMin <= 0 {
		return fmt.Errorf("invites.default_expiry_min must be positive")
	}
	if (c.Admin.Username == "") != (c.Admin.Password == "") {
		return fmt.Errorf("admin.username and admin.password must be set together")
	}
	if _, err := c.TrustedProxies(); err != nil {
		return err
	}
	if c.Telegram.Enabled && (c.Telegram.ApiKey == "" || len(c.Telegram.ChatIds) == 0) {
		return fmt.Errorf("telegram.api_key and telegram.chat_ids are required when telegram is enabled")
	}
	return nil
}
