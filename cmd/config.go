package cmd

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"db-migrate/internal/database"
)

// DBConfig is one entry of the databases list in the config file.
type DBConfig struct {
	Name   string `mapstructure:"name"`
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// resolveSystem finds the connection settings for "source" or "target". The
// configured value is either a DSN or the name of a databases entry.
func resolveSystem(role string) (*DBConfig, error) {
	ref := strings.TrimSpace(viper.GetString(role + ".dsn"))
	if ref == "" {
		ref = strings.TrimSpace(viper.GetString(role + ".name"))
	}
	if ref == "" {
		return nil, fmt.Errorf("%s database is required (--%s, %s.dsn in config or DBMIGRATE_%s_DSN)",
			role, role, role, strings.ToUpper(role))
	}

	var configs []DBConfig
	if err := viper.UnmarshalKey("databases", &configs); err != nil {
		return nil, fmt.Errorf("failed to parse databases config: %w", err)
	}

	cfg := &DBConfig{Name: role, DSN: ref}
	for i := range configs {
		if strings.EqualFold(configs[i].Name, ref) {
			cfg = &configs[i]
			break
		}
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database %q has no dsn", cfg.Name)
	}
	if driver := viper.GetString(role + ".driver"); driver != "" {
		cfg.Driver = driver
	}
	if cfg.Driver == "" {
		cfg.Driver = database.DetectDriver(cfg.DSN)
	}
	return cfg, nil
}

// connect opens the source or target system. Every failure is fatal for the run.
func connect(ctx context.Context, role string) (database.Handle, error) {
	cfg, err := resolveSystem(role)
	if err != nil {
		return nil, fatal(err)
	}
	h, err := database.Open(ctx, role, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fatal(err)
	}
	log.WithFields(log.Fields{"system": role, "driver": cfg.Driver, "name": cfg.Name}).Debug("connected")
	return h, nil
}

// tableList reads a table list setting, accepting both YAML lists and
// comma-separated strings.
func tableList(key string) []string {
	var out []string
	for _, item := range viper.GetStringSlice(key) {
		for _, t := range strings.Split(item, ",") {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}
