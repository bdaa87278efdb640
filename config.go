package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/micha/app-loopback/config"
	"github.com/micha/app-loopback/meter"
	"github.com/micha/app-loopback/platform"
)

// readConfig loads the config file into v. Without an explicit file,
// loopback.yaml is looked up in the working directory and then the user
// config dir; not finding one is fine. LOOPBACK_* env vars override both.
func readConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("loopback")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "loopback"))
		}
	}

	v.SetEnvPrefix("LOOPBACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

func platformRequirement(cfg *config.Config) platform.Requirement {
	return platform.Requirement{
		OS:         cfg.Platform.OS,
		Arch:       cfg.Platform.Arch,
		MinVersion: cfg.Platform.MinVersion,
	}
}

func meterBar(cfg *config.MeterConfig) meter.Bar {
	return meter.Bar{MinDB: cfg.MinDB, MaxDB: cfg.MaxDB, Width: cfg.Bars}
}
