package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ironsheep/condition-detector-mcp/internal/detector"
	"github.com/ironsheep/condition-detector-mcp/internal/imaging"
)

type detectRequest struct {
	Screen    string
	Condition string
	Threshold int
	Text      string
	Region    string
}

func newDetectCommand(a *app) *cobra.Command {
	var req detectRequest

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect one condition in one screenshot and print the result as JSON",
		Example: `  condition-mcp detect --screen shot.png --condition victory.png --threshold 80
  condition-mcp detect --screen shot.png --condition banner.png --text "STAGE CLEAR"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.detect(cmd.Context(), cmd.OutOrStdout(), req)
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Screen, "screen", "", "Screenshot to search")
	f.StringVar(&req.Condition, "condition", "", "Condition image to find")
	f.IntVar(&req.Threshold, "threshold", -1, "Visual tolerance 0-100 (default from detection.threshold)")
	f.StringVar(&req.Text, "text", "", "Confirm the match by recognizing this text instead of by color")
	f.StringVar(&req.Region, "region", "", "Search area x,y,width,height in screen pixels")
	_ = cmd.MarkFlagRequired("screen")
	_ = cmd.MarkFlagRequired("condition")
	return cmd
}

type detectOutput struct {
	detector.Result
	Area *image.Rectangle `json:"area,omitempty"`
}

func (a *app) detect(ctx context.Context, out io.Writer, req detectRequest) error {
	region, err := parseRegion(req.Region)
	if err != nil {
		return err
	}
	screen, err := imaging.Open(req.Screen)
	if err != nil {
		return err
	}
	cond, err := imaging.Open(req.Condition)
	if err != nil {
		return err
	}
	threshold := req.Threshold
	if threshold < 0 {
		threshold = a.cfg.Detection.Threshold
	}

	d := detector.New(a.detectorOptions(nil, req.Text != "")...)
	if err := d.Initialize(nil); err != nil {
		return err
	}
	defer d.Release()

	d.SetScreenMetrics(a.cfg.Detection.MetricsTag, screen, a.cfg.Detection.Quality)
	if err := d.SetScreenImage(screen); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var res detector.Result
	if req.Text != "" {
		res = d.DetectText(cond, region, req.Text)
	} else {
		res = d.DetectCondition(cond, region, threshold)
	}

	output := detectOutput{Result: res}
	if !res.Area.Empty() {
		output.Area = &res.Area
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// parseRegion parses "x,y,width,height". An empty string means the whole
// screen.
func parseRegion(s string) (*image.Rectangle, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("region %q: want x,y,width,height", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("region %q: %w", s, err)
		}
		v[i] = n
	}
	if v[2] <= 0 || v[3] <= 0 {
		return nil, fmt.Errorf("region %q: width and height must be positive", s)
	}
	r := image.Rect(v[0], v[1], v[0]+v[2], v[1]+v[3])
	return &r, nil
}
