package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures the full configuration surface for the application.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Scylla    ScyllaConfig    `mapstructure:"scylla"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Reminder  ReminderConfig  `mapstructure:"reminder"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type HTTPConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

type ScyllaConfig struct {
	Hosts       []string      `mapstructure:"hosts"`
	Port        int           `mapstructure:"port"`
	Keyspace    string        `mapstructure:"keyspace"`
	Consistency string        `mapstructure:"consistency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type KafkaConfig struct {
	Brokers         []string      `mapstructure:"brokers"`
	ClientID        string        `mapstructure:"client_id"`
	TaskEventTopic  string        `mapstructure:"task_event_topic"`
	LeadEventTopic  string        `mapstructure:"lead_event_topic"`
	AlertTopic      string        `mapstructure:"alert_topic"`
	ConsumerGroupID string        `mapstructure:"consumer_group_id"`
	CommitInterval  time.Duration `mapstructure:"commit_interval"`
}

type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

type TelemetryConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	ServiceName     string        `mapstructure:"service_name"`
	SampleRatio     float64       `mapstructure:"sample_ratio"`
	TracingEnabled  bool          `mapstructure:"tracing_enabled"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// EngineConfig tunes the follow-up engine itself: which call outcomes are
// accepted, how open tasks are bucketed by age and when a task starts
// raising engagement alerts.
type EngineConfig struct {
	TimeZone               string        `mapstructure:"time_zone"`
	OutcomeVocabulary      []string      `mapstructure:"outcome_vocabulary"`
	AgingBucketDays        []int         `mapstructure:"aging_bucket_days"`
	AttemptsAlertThreshold int           `mapstructure:"attempts_alert_threshold"`
	OverdueAlertDays       int           `mapstructure:"overdue_alert_days"`
	RescheduleGraceWindow  time.Duration `mapstructure:"reschedule_grace_window"`
}

type DashboardConfig struct {
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	ImportedLeadLimit int           `mapstructure:"imported_lead_limit"`
	ActivityFeedLimit int           `mapstructure:"activity_feed_limit"`
}

type ReminderConfig struct {
	TickInterval  time.Duration `mapstructure:"tick_interval"`
	ScanLimit     int           `mapstructure:"scan_limit"`
	LockTTL       time.Duration `mapstructure:"lock_ttl"`
	LockKeyPrefix string        `mapstructure:"lock_key_prefix"`
}

// Load reads configuration from file and environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvPrefix("COUNSEL")
	v.SetEnvKeyReplacer(NewEnvReplacer())

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file: %w", err)
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Engine.TimeZone == "" {
		c.Engine.TimeZone = "UTC"
	}
	if len(c.Engine.AgingBucketDays) == 0 {
		c.Engine.AgingBucketDays = []int{1, 3, 7}
	}
	if c.Engine.AttemptsAlertThreshold <= 0 {
		c.Engine.AttemptsAlertThreshold = 3
	}
	if c.Engine.OverdueAlertDays <= 0 {
		c.Engine.OverdueAlertDays = 7
	}
	if c.Kafka.ConsumerGroupID == "" {
		c.Kafka.ConsumerGroupID = "counsel-crm"
	}
	if c.Dashboard.ImportedLeadLimit <= 0 {
		c.Dashboard.ImportedLeadLimit = 50
	}
	if c.Dashboard.ActivityFeedLimit <= 0 {
		c.Dashboard.ActivityFeedLimit = 20
	}
	if c.Reminder.TickInterval <= 0 {
		c.Reminder.TickInterval = time.Minute
	}
	if c.Reminder.ScanLimit <= 0 {
		c.Reminder.ScanLimit = 500
	}
}

// NewEnvReplacer standardizes environment variable names.
func NewEnvReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_", "-", "_")
}
