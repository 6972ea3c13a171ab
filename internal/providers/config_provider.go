package providers

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/lyw1217/flight-price-checker/internal/structures"
	"github.com/spf13/viper"
)

const AppName = "FlightPriceChecker"

func setDefaults(v *viper.Viper) {
	v.SetDefault("timezone", "Asia/Seoul")
	v.SetDefault("storage.dataDir", "/data")
	v.SetDefault("storage.userConfigDir", "/data/user_configs")
	v.SetDefault("storage.archiveDir", "/data/archive")
	v.SetDefault("storage.fileWorkers", 5)
	v.SetDefault("fetch.workers", 5)
	v.SetDefault("fetch.maxRetries", 3)
	v.SetDefault("fetch.retryBackoff", "5s")
	v.SetDefault("fetch.timeout", "90s")
	v.SetDefault("scheduler.interval", "30m")
	v.SetDefault("scheduler.maxMonitors", 5)
	v.SetDefault("scheduler.notifyNoMatch", true)
	v.SetDefault("scheduler.commandsPerMinute", 10)
	v.SetDefault("retention.dataDays", 30)
	v.SetDefault("retention.configDays", 7)
	v.SetDefault("retention.runAt", "03:00")
	v.SetDefault("notification.minIntervalMinutes", 5)
	v.SetDefault("notification.maxIntervalMinutes", 1440)
	v.SetDefault("notification.sendRetries", 3)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", 0644)
	v.SetDefault("logger.dir", "/data/logs")
	v.SetDefault("webServer.enabled", true)
	v.SetDefault("webServer.host", "0.0.0.0")
	v.SetDefault("webServer.port", 8090)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.size", 16)
	v.SetDefault("cache.ttl", "30s")
	v.SetDefault("metrics.enabled", true)
}

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	setDefaults(v)

	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")

	// Environment names are kept from the deployment the bot grew up in.
	v.BindEnv("telegram.token", "BOT_TOKEN")
	v.BindEnv("telegram.adminIds", "ADMIN_IDS")
	v.BindEnv("scheduler.maxMonitors", "MAX_MONITORS")
	v.BindEnv("fetch.workers", "MAX_WORKERS")
	v.BindEnv("fetch.scraperUrl", "SCRAPER_URL")
	v.BindEnv("storage.fileWorkers", "FILE_WORKERS")
	v.BindEnv("storage.dataDir", "FLIGHT_CHECKER_DATA_DIR")
	v.BindEnv("retention.dataDays", "DATA_RETENTION_DAYS")
	v.BindEnv("retention.configDays", "CONFIG_RETENTION_DAYS")
	v.BindEnv("logger.level", "LOG_LEVEL")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}
	conf.Logger.Level = strings.ToLower(conf.Logger.Level)

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = AppName
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
