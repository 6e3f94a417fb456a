package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/huntworks/hunt/internal/config"
	"github.com/huntworks/hunt/internal/logger"
	"github.com/huntworks/hunt/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the hunt API server and the pipeline scheduler",
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("no-scheduler", false, "do not start the periodic pipeline scheduler")
	viper.BindPFlag("no-scheduler", serveCmd.Flags().Lookup("no-scheduler"))
}

func serve(_ *cobra.Command) {
	ctx := context.Background()

	zlog, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal("loading config", zap.Error(err))
	}

	zlog.Info("starting hunt", zap.String("version", version))

	a, err := buildApp(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("wiring application", zap.Error(err))
	}
	defer a.close()

	// Any run rows left running by a dead process are closed as orphaned.
	if err := a.orchestrator.Reconcile(ctx); err != nil {
		zlog.Fatal("reconciling pipeline runs", zap.Error(err))
	}

	if !viper.GetBool("no-scheduler") {
		if err := a.scheduler.Start(cfg.Pipeline.IntervalHours); err != nil {
			zlog.Fatal("starting scheduler", zap.Error(err))
		}
	}

	srv := server.New(
		a.st,
		a.orchestrator,
		a.scheduler,
		a.matcher,
		a.disco,
		cfg,
		zlog,
	)

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		zlog.Info("shutting down")
		a.scheduler.Stop()
		if err := srv.Shutdown(); err != nil {
			zlog.Warn("server shutdown", zap.Error(err))
		}
	}()

	if err := srv.Listen(cfg.Listen); err != nil {
		zlog.Fatal("http server", zap.Error(err))
	}
}
