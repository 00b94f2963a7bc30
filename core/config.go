package core

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host              string        `mapstructure:"host"`
		Address           string        `mapstructure:"address"`
		DebugHost         string        `mapstructure:"debughost"`
		ShutdownTimeout   time.Duration `mapstructure:"shutdowntimeout"`
		DisableReqLogs    bool          `mapstructure:"disablereqlogs"`
		MaxImportFileSize int64         `mapstructure:"maximportfilesize"` // bytes
	}

	DatabaseConfig struct {
		Engine        string `mapstructure:"engine"`
		Host          string `mapstructure:"host"`
		Port          int    `mapstructure:"port"`
		Name          string `mapstructure:"name"`
		User          string `mapstructure:"user"`
		Password      string `mapstructure:"password"`
		AdminUser     string `mapstructure:"adminuser"`
		AdminPassword string `mapstructure:"adminpassword"`
		DisableTLS    bool   `mapstructure:"disabletls"`
	}

	CacheConfig struct {
		Address  string        `mapstructure:"address"` // empty disables caching
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		TTL      time.Duration `mapstructure:"ttl"`
	}

	// GridConfig is the visible window of the weekly schedule grid.
	GridConfig struct {
		StartHour  int `mapstructure:"starthour"`
		EndHour    int `mapstructure:"endhour"`
		RowMinutes int `mapstructure:"rowminutes"`
		Days       int `mapstructure:"days"` // days always shown, from Monday
	}

	Config struct {
		Env          string         `mapstructure:"env"`
		Debug        bool           `mapstructure:"debug"`
		TestMode     bool           `mapstructure:"testmode"`
		AppName      string         `mapstructure:"appname"`
		Build        string         `mapstructure:"build"`
		RollbarToken string         `mapstructure:"rollbartoken"`
		Server       ServerConfig   `mapstructure:"server"`
		Database     DatabaseConfig `mapstructure:"database"`
		Cache        CacheConfig    `mapstructure:"cache"`
		Grid         GridConfig     `mapstructure:"grid"`
	}
)

func (db DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", db.Host, db.Port)
}

// NewConfig loads the configuration from defaults, `config/.env.<env>` (if it exists) and the environment.
// env vars are prefixed with the upper-cased ENV, e.g. DEV_DATABASE_HOST, PROD_GRID_STARTHOUR
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("env", env)
	v.SetDefault("debug", env == "DEV" || env == "TEST")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("appName", "Metricampus")
	v.SetDefault("build", "develop")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("server.maxImportFileSize", 5<<20)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "metricampus")
	v.SetDefault("database.user", "metricampus")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")

	v.SetDefault("cache.address", "")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 10*time.Minute)

	v.SetDefault("grid.startHour", 7)
	v.SetDefault("grid.endHour", 20)
	v.SetDefault("grid.rowMinutes", 30)
	v.SetDefault("grid.days", 6)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		log.Fatalf("config.Unmarshal: %v", err)
	}
	return conf
}
