package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Auth   AuthConfig   `mapstructure:"auth"`
	COS    COSConfig    `mapstructure:"cos"`
	Watson WatsonConfig `mapstructure:"watson_ml"`
	Poller PollerConfig `mapstructure:"poller"`
	Cron   CronConfig   `mapstructure:"cron"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

// AuthConfig describes the IAM identity endpoint used to exchange API keys
// for bearer tokens. One endpoint serves both object storage and Watson ML.
type AuthConfig struct {
	TokenURL  string        `mapstructure:"token_url"`
	GrantType string        `mapstructure:"grant_type"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type COSConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	ServiceInstanceID string        `mapstructure:"service_instance_id"`
	Endpoint          string        `mapstructure:"endpoint"`
	Bucket            string        `mapstructure:"bucket"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

type WatsonConfig struct {
	APIKey   string        `mapstructure:"api_key"`
	Endpoint string        `mapstructure:"endpoint"`
	SpaceID  string        `mapstructure:"space_id"`
	JobID    string        `mapstructure:"job_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type PollerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Interval    time.Duration `mapstructure:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// CronConfig holds schedules with seconds granularity. An empty schedule
// falls back to the poller's own ticker loop.
type CronConfig struct {
	StatusSweep string `mapstructure:"status_sweep"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("auth.token_url", "https://iam.cloud.ibm.com/identity/token")
	v.SetDefault("auth.grant_type", "urn:ibm:params:oauth:grant-type:apikey")
	// IAM tokens last one hour; refresh five minutes early.
	v.SetDefault("auth.token_ttl", "55m")
	v.SetDefault("auth.timeout", "15s")
	v.SetDefault("cos.endpoint", "https://s3.us-south.cloud-object-storage.appdomain.cloud")
	v.SetDefault("cos.timeout", "30s")
	v.SetDefault("watson_ml.endpoint", "https://api.dataplatform.cloud.ibm.com")
	v.SetDefault("watson_ml.timeout", "30s")
	v.SetDefault("poller.enabled", true)
	v.SetDefault("poller.interval", "10s")
	v.SetDefault("poller.max_attempts", 180)
	v.SetDefault("cron.status_sweep", "*/10 * * * * *")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
