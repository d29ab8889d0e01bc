package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/icodeforyou/weather-etl/logging"
	"github.com/icodeforyou/weather-etl/owm"
	"github.com/icodeforyou/weather-etl/slice"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrMissingAPIKey = errors.New("OpenWeatherMap API key not found in environment variables")

var DefaultCities = []string{"London", "Paris", "Tokyo", "New York", "Sydney"}

type AppConfigOpenWeather struct {
	ApiKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// Consecutive provider failures (transport, 401, 403, 429, 5xx) before requests
	// fail fast. Unknown cities never count. 0, the default, disables the breaker
	BreakerFailures uint32 `mapstructure:"breaker_failures"`
	// How long the breaker stays open before a single request is let through again
	BreakerTimeout time.Duration `mapstructure:"breaker_timeout"`
}

type AppConfigDatabase struct {
	Path string
	// How many days daily backup files should be stored before they gets deleted
	BackupRetentionDays *int `mapstructure:"backup_retention_days"`
}

func (d AppConfigDatabase) GetBackupRetentionDays() int {
	if d.BackupRetentionDays == nil {
		return 30
	}
	return *d.BackupRetentionDays
}

type AppConfigSchedule struct {
	// Cron spec for pipeline runs, e.g. "0 * * * *". Empty means run once and exit.
	RunAt string `mapstructure:"run_at"`
	// Cron spec for backup and log purge, only used together with RunAt
	MaintenanceAt string `mapstructure:"maintenance_at"`
	// Timezone for sunrise, sunset and record timestamps, default: local time
	Timezone string `mapstructure:"timezone"`
}

func (s AppConfigSchedule) IsRecurring() bool {
	return strings.TrimSpace(s.RunAt) != ""
}

type AppConfigLogging struct {
	// Min log level for database : "DEBUG", "INFO", "WARN", "ERROR", default: not logged to database
	DbLevel *string `mapstructure:"db_level"`
	// Log attributes format: "TEXT", "JSON", default: "JSON"
	DbAttrsFormat *string `mapstructure:"db_attrs_format"`
	// Maximum number of log entries in the database, default: 10000
	DbMaxEntries *int `mapstructure:"db_max_entries"`
	// Min log level for console: "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	ConsoleLevel *string `mapstructure:"console_level"`
}

// GetDbLevel returns false when log entries should not be stored in the database.
func (l AppConfigLogging) GetDbLevel() (slog.Level, bool) {
	if l.DbLevel == nil || *l.DbLevel == "" {
		return slog.LevelInfo, false
	}
	return logging.LevelFromString(*l.DbLevel), true
}

func (l AppConfigLogging) GetDbAttrsFormat() logging.LogAttrFormat {
	if l.DbAttrsFormat == nil {
		return logging.LogAttrFormatJSON
	}
	return logging.ParseAttrFormat(*l.DbAttrsFormat)
}

func (l AppConfigLogging) GetDbMaxEntries() int {
	if l.DbMaxEntries == nil {
		return 10000
	}
	return *l.DbMaxEntries
}

func (l AppConfigLogging) GetConsoleLevel() slog.Level {
	if l.ConsoleLevel == nil {
		return slog.LevelInfo
	}
	return logging.LevelFromString(*l.ConsoleLevel)
}

type AppConfigMqtt struct {
	Host     string
	Port     int16
	Username string
	Password string
	ClientID string `mapstructure:"client_id"`
	Topic    string
}

func (m AppConfigMqtt) Enabled() bool {
	return m.Host != ""
}

type AppConfig struct {
	OpenWeather AppConfigOpenWeather `mapstructure:"openweather"`
	Cities      []string             `mapstructure:"cities"`
	Database    AppConfigDatabase    `mapstructure:"database"`
	Schedule    AppConfigSchedule    `mapstructure:"schedule"`
	Logging     AppConfigLogging     `mapstructure:"logging"`
	Mqtt        AppConfigMqtt        `mapstructure:"mqtt"`
	// The config file that was read, empty when running on environment only
	File string `mapstructure:"-"`
}

// Load reads an optional .env file, an optional YAML file and the environment.
// With an empty path config/config.yaml is used when it exists.
func Load(path string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("unable to read .env file: %w", err)
	}

	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("unable to read config file: %w", err)
		}
	}

	c, err := decode(v)
	if err != nil {
		return nil, err
	}
	c.File = v.ConfigFileUsed()
	return c, nil
}

// Watch calls onChange with the new config each time the config file is
// written. A config that fails to load is logged and skipped.
func Watch(path string, logger *slog.Logger, onChange func(*AppConfig)) error {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("unable to watch config file: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		c, err := decode(v)
		if err != nil {
			logger.Error("ignoring changed config", slog.String("file", e.Name), slog.Any("error", err))
			return
		}
		c.File = v.ConfigFileUsed()
		logger.Info("config changed", slog.String("file", e.Name), slog.Any("cities", c.Cities))
		onChange(c)
	})
	v.WatchConfig()
	return nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetDefault("openweather.base_url", owm.BASE_URL)
	v.SetDefault("openweather.timeout", 10*time.Second)
	v.SetDefault("openweather.breaker_failures", 0)
	v.SetDefault("openweather.breaker_timeout", time.Minute)
	v.SetDefault("cities", DefaultCities)
	v.SetDefault("database.path", "weather_data.db")
	v.SetDefault("schedule.maintenance_at", "30 2 * * *")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.client_id", "weather-etl")
	v.SetDefault("mqtt.topic", "weather/observations")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// OWM_API_KEY is the older name, still accepted
	v.BindEnv("openweather.api_key", "OPENWEATHER_API_KEY", "OWM_API_KEY")
	for _, key := range []string{
		"database.backup_retention_days",
		"schedule.run_at",
		"schedule.timezone",
		"logging.db_level",
		"logging.db_attrs_format",
		"logging.db_max_entries",
		"logging.console_level",
		"mqtt.host",
		"mqtt.username",
		"mqtt.password",
	} {
		v.BindEnv(key)
	}
	return v
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var c AppConfig
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	c.Cities = slice.Filter(slice.Map(c.Cities, strings.TrimSpace), func(s string) bool { return s != "" })

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.OpenWeather.ApiKey) == "" {
		return ErrMissingAPIKey
	}
	if len(c.Cities) == 0 {
		return errors.New("no cities configured")
	}
	if c.Database.Path == "" {
		return errors.New("no database path configured")
	}
	return nil
}
