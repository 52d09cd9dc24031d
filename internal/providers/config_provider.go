package providers

import (
	"fmt"
	"path/filepath"
	"strings"
	"summard/internal/models"
	"summard/internal/structures"
	"time"

	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("webServer.host", "127.0.0.1")
	v.SetDefault("webServer.port", 8095)
	v.SetDefault("persistence.compress", false)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.mode", 0644)
	v.SetDefault("cache.ttl", 5*time.Second)
	v.SetDefault("lightning.timeout", 30*time.Second)

	v.SetDefault("availability.interval", 5*time.Minute)
	v.SetDefault("availability.window", 72*time.Hour)

	v.SetDefault("alias.refreshInterval", 24*time.Hour)
	v.SetDefault("alias.fastInterval", 5*time.Minute)
	v.SetDefault("alias.fastMaxInterval", time.Hour)
	v.SetDefault("alias.missingThreshold", 0.05)
	v.SetDefault("alias.utf8", true)

	v.SetDefault("summary.columns", models.DefaultChannelColumns)
	v.SetDefault("summary.sortBy", models.DefaultChannelSort)

	v.SetDefault("forwards.columns", models.DefaultForwardColumns)
	v.SetDefault("forwards.sortBy", models.DefaultForwardSort)
	v.SetDefault("forwards.filterAmountMsat", -1)
	v.SetDefault("forwards.filterFeeMsat", -1)
	v.SetDefault("forwards.alias", true)

	v.SetDefault("pays.columns", models.DefaultPayColumns)
	v.SetDefault("pays.sortBy", models.DefaultPaySort)
	v.SetDefault("pays.filterAmountMsat", -1)
	v.SetDefault("pays.filterFeeMsat", -1)

	v.SetDefault("invoices.columns", models.DefaultInvoiceColumns)
	v.SetDefault("invoices.sortBy", models.DefaultInvoiceSort)
	v.SetDefault("invoices.filterAmountMsat", -1)
	v.SetDefault("invoices.filterFeeMsat", -1)
}

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")
	setDefaults(v)

	v.BindEnv("logger.level", "SUMMARD_LOG_LEVEL")
	v.BindEnv("lightning.rpcFile", "SUMMARD_RPC_FILE")
	v.BindEnv("persistence.filePath", "SUMMARD_AVAILDB")
	v.BindEnv("cache.enabled", "SUMMARD_CACHE_ENABLED")
	v.BindEnv("cache.size", "SUMMARD_CACHE_SIZE")
	v.BindEnv("forwards.hours", "SUMMARD_FORWARDS")
	v.BindEnv("pays.hours", "SUMMARD_PAYS")
	v.BindEnv("invoices.hours", "SUMMARD_INVOICES")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "SummaryDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
