package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/study-matcher/internal/matching"
	"github.com/spigell/study-matcher/internal/metrics"
	"github.com/spigell/study-matcher/internal/ranking"
	"github.com/spigell/study-matcher/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the rankers over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default :8080)")
	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, config := setup()
	logger.Info("starting the study-matcher", zap.String("version", version))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics()
	if err := m.Register(reg); err != nil {
		logger.Fatal("registering metrics", zap.Error(err))
	}

	err := withSource(ctx, config, logger, func(ctx context.Context, src source) error {
		ranker := ranking.New(src, matching.NewScorer(logger), logger, ranking.WithRecorder(m))
		return server.New(config.Server, ranker, reg, logger).Run(ctx)
	})
	if err != nil {
		logger.Fatal("serving", zap.Error(err))
	}
	logger.Info("exiting", zap.String("reason", "shutdown requested"))
}
