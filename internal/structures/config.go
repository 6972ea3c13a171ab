package structures

import "time"

type Server struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host" validate:"required"`
	Port    int    `yaml:"port" validate:"required|uint|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type TelegramConfig struct {
	Token    string  `yaml:"token" validate:"required"`
	AdminIDs []int64 `yaml:"adminIds"`
}

type StorageConfig struct {
	DataDir       string `yaml:"dataDir" validate:"required|unixPath"`
	UserConfigDir string `yaml:"userConfigDir" validate:"required|unixPath"`
	ArchiveDir    string `yaml:"archiveDir"`
	FileWorkers   int    `yaml:"fileWorkers" validate:"required|min:1"`
}

type FetchConfig struct {
	Workers      int           `yaml:"workers" validate:"required|min:1"`
	MaxRetries   int           `yaml:"maxRetries" validate:"required|min:1"`
	RetryBackoff time.Duration `yaml:"retryBackoff" validate:"required|min:1"`
	ScraperURL   string        `yaml:"scraperUrl" validate:"required|fullUrl"`
	Timeout      time.Duration `yaml:"timeout" validate:"required|min:1"`
}

type SchedulerConfig struct {
	Interval          time.Duration `yaml:"interval" validate:"required|min:1"`
	MaxMonitors       int           `yaml:"maxMonitors" validate:"required|min:1"`
	NotifyNoMatch     bool          `yaml:"notifyNoMatch"`
	CommandsPerMinute int           `yaml:"commandsPerMinute"`
}

type RetentionConfig struct {
	DataDays   int    `yaml:"dataDays" validate:"required|min:1"`
	ConfigDays int    `yaml:"configDays" validate:"required|min:1"`
	RunAt      string `yaml:"runAt"`
}

type NotificationConfig struct {
	MinIntervalMinutes int `yaml:"minIntervalMinutes" validate:"required|min:1"`
	MaxIntervalMinutes int `yaml:"maxIntervalMinutes" validate:"required|min:1"`
	SendRetries        int `yaml:"sendRetries"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName      string
	Debug        bool
	Path         string
	Timezone     string             `yaml:"timezone" validate:"required"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	Storage      StorageConfig      `yaml:"storage"`
	Fetch        FetchConfig        `yaml:"fetch"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Retention    RetentionConfig    `yaml:"retention"`
	Notification NotificationConfig `yaml:"notification"`
	WebServer    Server             `yaml:"webServer"`
	Logger       LoggerConfig       `yaml:"logger"`
	Cache        CacheConfig        `yaml:"cache"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// Location resolves Timezone, falling back to UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
