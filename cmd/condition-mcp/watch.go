package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ironsheep/condition-detector-mcp/internal/config"
	"github.com/ironsheep/condition-detector-mcp/internal/detector"
	"github.com/ironsheep/condition-detector-mcp/internal/imaging"
	"github.com/ironsheep/condition-detector-mcp/internal/logger"
	"github.com/ironsheep/condition-detector-mcp/internal/sink"
	"github.com/ironsheep/condition-detector-mcp/internal/watch"
)

type watchRequest struct {
	Screen     string
	Conditions []string
	Threshold  int
	Text       string
	Region     string
}

func newWatchCommand(a *app) *cobra.Command {
	var req watchRequest

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll a screenshot file and report conditions as they appear",
		Example: `  condition-mcp watch --screen /tmp/live.png --condition victory=victory.png --condition defeat.png
  condition-mcp watch --screen /tmp/live.png --condition banner.png --text "GAME OVER" --mqtt-broker tcp://localhost:1883`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.watch(cmd.Context(), req)
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Screen, "screen", "", "Screenshot file to poll")
	f.StringArrayVar(&req.Conditions, "condition", nil, "Condition image as path or name=path (repeatable)")
	f.IntVar(&req.Threshold, "threshold", -1, "Visual tolerance 0-100 (default from detection.threshold)")
	f.StringVar(&req.Text, "text", "", "Confirm matches by recognizing this text")
	f.StringVar(&req.Region, "region", "", "Search area x,y,width,height in screen pixels")
	f.Duration("interval", config.DefaultWatchInterval, "Polling interval")
	f.Int("hash-distance", config.DefaultHashDistance, "Largest perceptual hash distance treated as an unchanged frame (-1 disables)")
	_ = cmd.MarkFlagRequired("screen")
	_ = cmd.MarkFlagRequired("condition")

	if err := a.v.BindPFlag("watch.interval", f.Lookup("interval")); err != nil {
		panic(err)
	}
	if err := a.v.BindPFlag("watch.hash_distance", f.Lookup("hash-distance")); err != nil {
		panic(err)
	}
	return cmd
}

func (a *app) watch(ctx context.Context, req watchRequest) error {
	region, err := parseRegion(req.Region)
	if err != nil {
		return err
	}
	threshold := req.Threshold
	if threshold < 0 {
		threshold = a.cfg.Detection.Threshold
	}

	conds := make([]watch.Condition, 0, len(req.Conditions))
	for _, arg := range req.Conditions {
		name, path := parseCondition(arg)
		img, err := imaging.Open(path)
		if err != nil {
			return fmt.Errorf("condition %s: %w", name, err)
		}
		conds = append(conds, watch.Condition{
			Name:      name,
			Image:     img,
			Region:    region,
			Threshold: threshold,
			Text:      req.Text,
		})
	}

	m, stop, err := a.startMetrics()
	if err != nil {
		return err
	}
	defer stop()

	d := detector.New(a.detectorOptions(m, req.Text != "")...)
	if err := d.Initialize(nil); err != nil {
		return err
	}
	defer d.Release()

	out := sink.MultiNamed{sink.NewLog(logger.Component("result"))}
	if a.cfg.MQTT.Broker != "" {
		mq, err := sink.DialMQTT(ctx, a.cfg.MQTT, logger.Component("mqtt"))
		if err != nil {
			return err
		}
		defer mq.Close()
		out = append(out, mq)
	}

	w, err := watch.New(
		watch.FileSource{Path: req.Screen},
		d,
		conds,
		out,
		watch.Config{
			Interval:     a.cfg.Watch.Interval,
			HashDistance: a.cfg.Watch.HashDistance,
			Quality:      a.cfg.Detection.Quality,
			MetricsTag:   a.cfg.Detection.MetricsTag,
		},
		logger.Component("watch"),
		m,
	)
	if err != nil {
		return err
	}

	logger.Component("watch").WithField("conditions", len(conds)).Info("Watching screen")
	return w.Run(ctx)
}

// parseCondition splits "name=path". Without a name, the file name minus
// its extension is used.
func parseCondition(arg string) (name, path string) {
	if i := strings.Index(arg, "="); i > 0 {
		return arg[:i], arg[i+1:]
	}
	base := filepath.Base(arg)
	return strings.TrimSuffix(base, filepath.Ext(base)), arg
}
