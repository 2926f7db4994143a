package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const prefix = "MATERIALIZER"

var conf Config

// Get returns the configuration built by the last Parse call.
func Get() Config {
	return conf
}

// Parse reads the configuration file given as parameter.
func Parse(confFile string) (*Config, error) {
	setDefault()

	viper.SetEnvPrefix(prefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	if len(confFile) > 0 {
		viper.SetConfigFile(confFile)

		err := viper.ReadInConfig()
		if err != nil {
			return &conf, fmt.Errorf("failed to read config file %v: %w", confFile, err)
		}
	}

	err := viper.Unmarshal(&conf)
	if err != nil {
		return &conf, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &conf, nil
}

func setDefault() {
	viper.SetDefault("logs.level", 4)
	viper.SetDefault("logs.encoder", EncoderTypeConsole)
	viper.SetDefault("gracefulDuration", "10s")
	viper.SetDefault("metrics.port", 7777)
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", "10s")
	viper.SetDefault("server.writeTimeout", "30s")
	viper.SetDefault("server.maxBodyBytes", 1<<20)
	viper.SetDefault("store.driver", DriverTypeValkey)
	viper.SetDefault("store.requestTimeout", "5s")
	viper.SetDefault("store.valkey.url", "localhost:6379")
	viper.SetDefault("store.openSearch.indexPrefix", "materializer-")
}
