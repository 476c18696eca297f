package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.od2.network/octolog/cmd/providers"
	"go.od2.network/octolog/cmd/serve"
	"go.od2.network/octolog/cmd/webhook"
	"go.od2.network/octolog/pkg/logging"
)

// Logging config keys.
const (
	ConfLogFile  = "log.file"
	ConfLogLevel = "log.level"
)

var rootCmd = cobra.Command{
	Use:   "octolog",
	Short: "GitHub OAuth and webhook logger",

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := readConfig(); err != nil {
			return err
		}
		log, err := logging.New(logging.Options{
			Level: viper.GetString(ConfLogLevel),
			File:  viper.GetString(ConfLogFile),
			Dev:   devMode,
		})
		if err != nil {
			return err
		}
		providers.Log = log
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if providers.Log != nil {
			_ = providers.Log.Sync()
		}
	},
}

var devMode bool
var configFile string

func init() {
	viper.SetDefault(ConfLogFile, "octolog.log")
	viper.SetDefault(ConfLogLevel, "info")

	persistentFlags := rootCmd.PersistentFlags()
	persistentFlags.BoolVar(&devMode, "dev", false, "Dev mode")
	persistentFlags.StringVar(&configFile, "config", "", "Config file")
	persistentFlags.String("log-file", "octolog.log", "Log file, empty for console only")
	persistentFlags.String("log-level", "info", "Log level")
	_ = viper.BindPFlag(ConfLogFile, persistentFlags.Lookup("log-file"))
	_ = viper.BindPFlag(ConfLogLevel, persistentFlags.Lookup("log-level"))

	rootCmd.AddCommand(&serve.Cmd)
	rootCmd.AddCommand(&webhook.Cmd)
}

// readConfig binds the environment and reads the optional config file.
func readConfig() error {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv(providers.ConfServerPort, "SERVER_PORT", "PORT")
	_ = viper.BindEnv(providers.ConfServerBaseURL, "SERVER_BASE_URL", "BASE_URL")
	if configFile == "" {
		return nil
	}
	viper.SetConfigFile(configFile)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
