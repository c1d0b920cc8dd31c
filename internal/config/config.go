package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
		Currency string
	} `mapstructure:"app"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	Redis struct {
		Addr     string
		Password string
		DB       int
	} `mapstructure:"redis"`

	AMQP struct {
		URL      string
		Exchange string
	} `mapstructure:"amqp"`

	Telegram struct {
		Token     string
		OpsChatID int64 `mapstructure:"ops_chat_id"`
	} `mapstructure:"telegram"`

	Booking struct {
		ReservationTTL time.Duration `mapstructure:"reservation_ttl"`
		ReminderWindow time.Duration `mapstructure:"reminder_window"`
		NotifyTimeout  time.Duration `mapstructure:"notify_timeout"`
		OvertimeReason string        `mapstructure:"overtime_reason"`
	} `mapstructure:"booking"`

	Sweep struct {
		Interval time.Duration
		LockTTL  time.Duration `mapstructure:"lock_ttl"`
	} `mapstructure:"sweep"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.timezone", "Asia/Kolkata")
	v.SetDefault("app.currency", "INR")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "parkaro.events")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.ops_chat_id", 0)
	v.SetDefault("booking.reservation_ttl", "10m")
	v.SetDefault("booking.reminder_window", "30m")
	v.SetDefault("booking.notify_timeout", "5s")
	v.SetDefault("booking.overtime_reason", "Overstay beyond booked time")
	v.SetDefault("sweep.interval", "1m")
	v.SetDefault("sweep.lock_ttl", "50s")
}

// Load читает YAML по path (если файла нет — только defaults и ENV).
// ENV: APP_<SECTION>_<KEY>, например APP_POSTGRES_DSN; .env в текущей папке тоже подхватывается.
func Load(path string) (Config, error) {
	_ = gotenv.Load()

	v := viper.New()
	defaults(v)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return c, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	if err := c.validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c Config) validate() error {
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("app.timezone: %w", err)
	}
	if c.Booking.ReservationTTL <= 0 {
		return errors.New("booking.reservation_ttl must be positive")
	}
	if c.Sweep.Interval <= 0 {
		return errors.New("sweep.interval must be positive")
	}
	return nil
}

// Location — бизнес-часовой пояс для правил тарификации.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
