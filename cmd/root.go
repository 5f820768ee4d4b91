package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	logLevel string
)

var RootCmd = &cobra.Command{
	Use:   "db-migrate",
	Short: "Copy tables between relational databases",
	Long: `
  ____  ____    __  __ ___ ____ ____      _  _____ _____
 |  _ \| __ )  |  \/  |_ _/ ___|  _ \    / \|_   _| ____|
 | | | |  _ \  | |\/| || | |  _| |_) |  / _ \ | | |  _|
 | |_| | |_) | | |  | || | |_| |  _ <  / ___ \| | | |___
 |____/|____/  |_|  |_|___\____|_| \_\/_/   \_\_| |_____|

DB MIGRATE 🚚 - Schema-aware table copy from MySQL to PostgreSQL
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := log.ParseLevel(viper.GetString("log.level"))
		if err != nil {
			return fatal(err)
		}
		log.SetOutput(os.Stderr)
		log.SetLevel(level)
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		return nil
	},
}

// Execute runs the root command and exits with the command's exit code.
func Execute() {
	err := RootCmd.Execute()
	if err == nil {
		return
	}
	var exit *ExitError
	if errors.As(err, &exit) {
		if exit.Err != nil {
			log.Error(exit.Err)
		}
		os.Exit(exit.Code)
	}
	log.Error(err)
	os.Exit(ExitFatal)
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./db-migrate.yaml)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	RootCmd.PersistentFlags().String("source", "", "Source database: DSN or name from the databases list")
	RootCmd.PersistentFlags().String("target", "", "Target database: DSN or name from the databases list")
	RootCmd.PersistentFlags().String("source-driver", "", "Source driver (mysql, postgres, pgx, sqlserver, oracle); detected from the DSN when empty")
	RootCmd.PersistentFlags().String("target-driver", "", "Target driver; detected from the DSN when empty")

	viper.BindPFlag("log.level", RootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("source.dsn", RootCmd.PersistentFlags().Lookup("source"))
	viper.BindPFlag("target.dsn", RootCmd.PersistentFlags().Lookup("target"))
	viper.BindPFlag("source.driver", RootCmd.PersistentFlags().Lookup("source-driver"))
	viper.BindPFlag("target.driver", RootCmd.PersistentFlags().Lookup("target-driver"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// 1. Executable Directory (Priority 1)
		ex, err := os.Executable()
		if err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}

		// 2. Current Directory (Priority 2)
		viper.AddConfigPath(".")

		viper.SetConfigName("db-migrate")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("DBMIGRATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
