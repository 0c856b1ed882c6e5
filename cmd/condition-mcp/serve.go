package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ironsheep/condition-detector-mcp/internal/logger"
	"github.com/ironsheep/condition-detector-mcp/internal/server"
	"github.com/ironsheep/condition-detector-mcp/internal/sink"
)

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdin/stdout (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	m, stop, err := a.startMetrics()
	if err != nil {
		return err
	}
	defer stop()

	log := logger.Component("server")
	log.WithFields(logrus.Fields{
		"version": Version,
		"built":   BuildTime,
		"commit":  GitCommit,
	}).Debug("Starting MCP server")

	sinks := sink.NewMulti(sink.NewLog(logger.Component("result")))
	if a.cfg.MQTT.Broker != "" {
		mq, err := sink.DialMQTT(ctx, a.cfg.MQTT, logger.Component("mqtt"))
		if err != nil {
			return err
		}
		defer mq.Close()
		sinks = append(sinks, mq)
	}

	srv := server.New(
		server.WithLogger(log),
		server.WithVersion(Version),
		server.WithSink(sinks),
		server.WithScreenDefaults(a.cfg.Detection.MetricsTag, a.cfg.Detection.Quality),
		server.WithDetectorOptions(a.detectorOptions(m, true)...),
	)
	return srv.Run()
}
