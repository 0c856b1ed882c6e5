package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ironsheep/condition-detector-mcp/internal/config"
	"github.com/ironsheep/condition-detector-mcp/internal/detector"
	"github.com/ironsheep/condition-detector-mcp/internal/logger"
	"github.com/ironsheep/condition-detector-mcp/internal/metrics"
	"github.com/ironsheep/condition-detector-mcp/internal/ocr"
)

// app carries the configuration shared by every sub-command.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config

	// ocrFactory overrides the Tesseract factory; tests set it.
	ocrFactory detector.OCRFactory
}

func newRootCommand() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "condition-mcp",
		Short: "Detect screen conditions by template matching and OCR",
		Long: `condition-mcp finds small reference images ("conditions") in screenshots.

Without a sub-command it runs the MCP server on stdin/stdout.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}

	if err := a.setupFlags(root); err != nil {
		panic(err)
	}

	root.AddCommand(
		newServeCommand(a),
		newDetectCommand(a),
		newWatchCommand(a),
		newVersionCommand(),
	)
	return root
}

// setupFlags defines the global flags and binds them to configuration keys.
func (a *app) setupFlags(root *cobra.Command) error {
	f := root.PersistentFlags()
	f.StringVar(&a.cfgFile, "config", "", "YAML configuration file")
	f.String("log-level", "info", "Log level: trace, debug, info, warn, error")
	f.Float64("quality", config.DefaultQuality, "Target scaled length of the longer screen side (100-10000)")
	f.String("metrics-tag", config.DefaultMetricsTag, "Name of the screen geometry")
	f.Int("max-candidates", 0, "Cap on candidates per visual detection (0 = map size)")
	f.Bool("ocr", true, "Enable text detection with Tesseract")
	f.String("ocr-language", config.DefaultLanguage, "Tesseract language code")
	f.String("tessdata", "", "Directory holding Tesseract traineddata files")
	f.Int("ocr-max-edits", 0, "Edits tolerated between recognized text and the target")
	f.String("metrics-listen", "", "Serve Prometheus metrics on this address, e.g. :9090")
	f.String("mqtt-broker", "", "Publish results to this MQTT broker, e.g. tcp://localhost:1883")
	f.String("mqtt-topic", config.DefaultMQTTTopic, "Base MQTT topic for results")

	bindings := map[string]string{
		"log.level":                "log-level",
		"detection.quality":        "quality",
		"detection.metrics_tag":    "metrics-tag",
		"detection.max_candidates": "max-candidates",
		"ocr.enabled":              "ocr",
		"ocr.language":             "ocr-language",
		"ocr.tessdata":             "tessdata",
		"ocr.max_edits":            "ocr-max-edits",
		"metrics.listen":           "metrics-listen",
		"mqtt.broker":              "mqtt-broker",
		"mqtt.topic":               "mqtt-topic",
	}
	for key, name := range bindings {
		if err := a.v.BindPFlag(key, f.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}

// load resolves the configuration and applies the log level.
func (a *app) load() error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	logger.Setup(cfg.Log.Level, os.Stderr)
	return nil
}

// detectorOptions builds the detector options for the loaded configuration.
// The text recognizer is attached only when withOCR is set and OCR is
// enabled.
func (a *app) detectorOptions(m *metrics.DetectorMetrics, withOCR bool) []detector.Option {
	opts := []detector.Option{
		detector.WithLogger(logger.Component("detector")),
		detector.WithMetrics(m),
		detector.WithMaxCandidates(a.cfg.Detection.MaxCandidates),
		detector.WithMaxTextAttempts(a.cfg.Detection.MaxTextAttempts),
		detector.WithTextMaxEdits(a.cfg.OCR.MaxEdits),
	}
	if withOCR && a.cfg.OCR.Enabled {
		factory := a.ocrFactory
		if factory == nil {
			factory = ocr.Factory(ocr.Config{Language: a.cfg.OCR.Language, TessdataPrefix: a.cfg.OCR.Tessdata}, logger.Component("ocr"))
		}
		opts = append(opts, detector.WithOCR(factory))
	}
	return opts
}

// startMetrics serves Prometheus metrics when metrics.listen is set. The
// returned stop function shuts the endpoint down.
func (a *app) startMetrics() (*metrics.DetectorMetrics, func(), error) {
	if a.cfg.Metrics.Listen == "" {
		return nil, func() {}, nil
	}

	registry := prometheus.NewRegistry()
	m, err := metrics.NewDetectorMetrics(registry)
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))
	srv := &http.Server{
		Addr:              a.cfg.Metrics.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log := logger.Component("metrics").WithField("listen", a.cfg.Metrics.Listen)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Metrics endpoint failed")
		}
	}()
	log.Info("Serving metrics")

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return m, stop, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Version needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "condition-mcp %s\n", Version)
			fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
		},
	}
}
