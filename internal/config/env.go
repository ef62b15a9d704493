package config

import (
	"time"

	"github.com/spf13/viper"
)

// Settings holds runtime options read from the environment. Table names
// for GreptimeDB rows are read where the rows are defined, not here.
type Settings struct {
	SimID            string
	HTTPAddr         string
	TickInterval     time.Duration
	PushInterval     time.Duration
	GreptimeEndpoint string
	GreptimeDB       string
	CORSOrigin       string
}

// Env reads runtime settings from the environment, applying defaults.
func Env() Settings {
	v := viper.New()
	v.SetDefault("SIM_ID", "")
	v.SetDefault("HTTP_ADDR", ":8000")
	v.SetDefault("TICK_INTERVAL", "20ms")
	v.SetDefault("PUSH_INTERVAL", "100ms")
	v.SetDefault("GREPTIMEDB_ENDPOINT", "")
	v.SetDefault("GREPTIMEDB_DATABASE", "public")
	v.SetDefault("CORS_ORIGIN", "*")
	v.AutomaticEnv()

	return Settings{
		SimID:            v.GetString("SIM_ID"),
		HTTPAddr:         v.GetString("HTTP_ADDR"),
		TickInterval:     v.GetDuration("TICK_INTERVAL"),
		PushInterval:     v.GetDuration("PUSH_INTERVAL"),
		GreptimeEndpoint: v.GetString("GREPTIMEDB_ENDPOINT"),
		GreptimeDB:       v.GetString("GREPTIMEDB_DATABASE"),
		CORSOrigin:       v.GetString("CORS_ORIGIN"),
	}
}
