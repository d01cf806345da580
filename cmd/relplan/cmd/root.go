package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/matthewbaird/relplan/internal/config"
	"github.com/matthewbaird/relplan/internal/logger"
)

var (
	RootCmd = &cobra.Command{
		Use:   "relplan",
		Short: "relplan compiles relational query plans to SQL and runs them",
		Long: "relplan reads a query plan (a DAG of Project, Join and Select nodes " +
			"rooted at one node) and compiles it into a single nested SQL SELECT. " +
			"Plans can be translated, executed against a seeded SQLite store or " +
			"served over HTTP and WebSocket.",
		SilenceUsage: true,
	}
	cfgFile string
	Config  = config.Default()
)

func Execute() error {
	return RootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file")
	RootCmd.PersistentFlags().StringP("log-format", "", "text", "logging format [text|json]")
	RootCmd.PersistentFlags().StringP("log-level", "", zerolog.LevelInfoValue,
		fmt.Sprintf(
			"logging level %s|%s|%s",
			zerolog.LevelDebugValue,
			zerolog.LevelInfoValue,
			zerolog.LevelWarnValue,
		),
	)

	RootCmd.AddCommand(translateCmd)
	RootCmd.AddCommand(execCmd)
	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(tablesCmd)

	if err := viper.BindPFlag("log.format", RootCmd.PersistentFlags().Lookup("log-format")); err != nil {
		log.Fatal().Err(err).Msg("")
	}
	if err := viper.BindPFlag("log.level", RootCmd.PersistentFlags().Lookup("log-level")); err != nil {
		log.Fatal().Err(err).Msg("")
	}
}

func initConfig() {
	v := viper.GetViper()
	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			log.Fatal().Err(err).Msg("error reading from config file")
		}
	}
	if err := config.BindEnv(v); err != nil {
		log.Fatal().Err(err).Msg("")
	}

	cfg, err := config.Load(v)
	if err != nil {
		log.Fatal().Err(err).Msg("")
	}
	Config = cfg

	if err := logger.SetLogLevel(Config.Log.Level, Config.Log.Format); err != nil {
		log.Err(err).Msg("")
	}
}
