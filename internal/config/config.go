package config

import (
	"log"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mjaychoi/hc-violins/pkg/config"
)

// Config is the full application configuration, shared by all three
// binaries. Each binary only reads the sections it needs.
type Config struct {
	DB     config.DBConfig     `yaml:"db"`
	MQ     config.MQConfig     `yaml:"mq"`
	Redis  config.RedisConfig  `yaml:"redis"`
	JWT    config.JWTConfig    `yaml:"jwt"`
	Server config.ServerConfig `yaml:"server"`
	SMTP   config.SMTPConfig   `yaml:"smtp"`
	Notify config.NotifyConfig `yaml:"notify"`
}

// Load reads the layered YAML config and applies environment overrides.
func Load() *Config {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	cfgMap, err := config.LoadConfig(env, configDir)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	var cfg Config
	cfgData, err := yaml.Marshal(cfgMap)
	if err != nil {
		log.Fatalf("failed to marshal config: %v", err)
	}
	if err := yaml.Unmarshal(cfgData, &cfg); err != nil {
		log.Fatalf("failed to unmarshal config: %v", err)
	}

	// Environment overrides win over any file.
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideSMTPFromEnv(&cfg.SMTP)

	return &cfg
}

// RunInterval parses the notifier loop interval, defaulting to one hour.
func (c *Config) RunInterval() time.Duration {
	if c.Notify.RunInterval == "" {
		return time.Hour
	}
	d, err := time.ParseDuration(c.Notify.RunInterval)
	if err != nil {
		log.Printf("invalid notify.run_interval %q, using 1h", c.Notify.RunInterval)
		return time.Hour
	}
	return d
}

// Timezone resolves the shop timezone, falling back to local time.
func (c *Config) Timezone() *time.Location {
	if c.Notify.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Notify.Timezone)
	if err != nil {
		log.Printf("invalid notify.timezone %q, using local", c.Notify.Timezone)
		return time.Local
	}
	return loc
}
