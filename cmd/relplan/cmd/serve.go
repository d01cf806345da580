package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/matthewbaird/relplan/internal/activity"
	"github.com/matthewbaird/relplan/internal/eventbus"
	"github.com/matthewbaird/relplan/internal/metrics"
	"github.com/matthewbaird/relplan/internal/server"
	"github.com/matthewbaird/relplan/internal/session"
)

const (
	sessionMaxAge      = 24 * time.Hour
	sessionIdleTimeout = 30 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve plan translation and execution over HTTP and WebSocket",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		act := activity.NewMemoryStore(activity.DefaultCapacity)
		bus := eventbus.New(0)
		bus.Subscribe("log", eventbus.NewLogConsumer())
		bus.Subscribe("activity", activity.NewRecorder(act))
		bus.Start(ctx)
		defer bus.Stop()

		m := metrics.New()
		exec, cat, err := newExecutor(ctx, st, m)
		if err != nil {
			return err
		}
		exec.WithEvents(bus)
		log.Info().
			Strs("tables", cat.TableNames()).
			Bool("strict_references", Config.Translate.StrictReferences).
			Msg("store ready")

		return server.Run(ctx, server.Config{
			Port:            Config.Server.Port,
			ShutdownTimeout: Config.Server.ShutdownTimeout,
			Executor:        exec,
			Catalog:         cat,
			Sessions:        session.NewManager(sessionMaxAge, sessionIdleTimeout),
			Metrics:         m,
			Activity:        act,
		})
	},
}

func init() {
	serveCmd.Flags().Int("port", 8080, "listen port")
	if err := viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port")); err != nil {
		log.Fatal().Err(err).Msg("")
	}
}
