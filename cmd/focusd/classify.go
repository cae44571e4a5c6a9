package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/focusfuel/internal/config"
	"github.com/fyrsmithlabs/focusfuel/internal/focus"
)

var snapshotFlags struct {
	url       string
	title     string
	timeSpent int
	switches  int
	scrolls   int
	mouse     int
	clicks    int
	keys      int
	hour      int
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify one activity snapshot and print the result as JSON",
	Example: `  focusd classify --url https://www.youtube.com/watch?v=x --time-spent 900 --scrolls 40
  focusd classify --url https://github.com/golang/go --keys 300 --clicks 20 --hour 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return runClassify(cmd, cfg)
	},
}

func init() {
	f := classifyCmd.Flags()
	f.StringVar(&snapshotFlags.url, "url", "", "page URL (required)")
	f.StringVar(&snapshotFlags.title, "title", "", "page title")
	f.IntVar(&snapshotFlags.timeSpent, "time-spent", 0, "seconds spent on the page")
	f.IntVar(&snapshotFlags.switches, "switches", 0, "tab switches away from the page")
	f.IntVar(&snapshotFlags.scrolls, "scrolls", 0, "scroll events")
	f.IntVar(&snapshotFlags.mouse, "mouse", 0, "mouse movements")
	f.IntVar(&snapshotFlags.clicks, "clicks", 0, "clicks")
	f.IntVar(&snapshotFlags.keys, "keys", 0, "keyboard events")
	f.IntVar(&snapshotFlags.hour, "hour", -1, "hour of day 0-23 (default: current hour)")
	_ = classifyCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(classifyCmd)
}

type classifyOutput struct {
	Snapshot focus.Snapshot `json:"snapshot"`
	Result   focus.Result   `json:"result"`
}

func runClassify(cmd *cobra.Command, cfg *config.Config) (err error) {
	snap, err := snapshotFromFlags(time.Now())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, appOptions{stderrLogs: true})
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, a.close(ctx)) }()

	res := a.pipeline.Classify(ctx, snap)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(classifyOutput{Snapshot: snap, Result: res})
}

func snapshotFromFlags(now time.Time) (focus.Snapshot, error) {
	f := snapshotFlags
	if f.url == "" {
		return focus.Snapshot{}, errors.New("--url is required")
	}
	hour := f.hour
	if hour < 0 {
		hour = now.Hour()
	}
	if hour > 23 {
		return focus.Snapshot{}, fmt.Errorf("--hour must be 0-23, got %d", hour)
	}
	for name, v := range map[string]int{
		"time-spent": f.timeSpent, "switches": f.switches, "scrolls": f.scrolls,
		"mouse": f.mouse, "clicks": f.clicks, "keys": f.keys,
	} {
		if v < 0 {
			return focus.Snapshot{}, fmt.Errorf("--%s must not be negative", name)
		}
	}
	return focus.Snapshot{
		URL:              f.url,
		Title:            f.title,
		TimeSpentSeconds: f.timeSpent,
		TabSwitches:      f.switches,
		ScrollEvents:     f.scrolls,
		MouseMovements:   f.mouse,
		Clicks:           f.clicks,
		KeyboardEvents:   f.keys,
		HourOfDay:        hour,
	}, nil
}
