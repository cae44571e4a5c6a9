package main

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/focusfuel/internal/activity"
	"github.com/fyrsmithlabs/focusfuel/internal/focus"
)

var tabsCmd = &cobra.Command{
	Use:   "tabs",
	Short: "List live tab sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var view activity.SessionsView
		if err := doJSON(http.MethodGet, "/api/v1/tabs", nil, &view, 10*time.Second, http.StatusOK); err != nil {
			return err
		}
		return printJSON(cmd, view)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats <tab-id>",
	Short: "Show activity counters for a tab",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tabID, err := parseTabID(args[0])
		if err != nil {
			return err
		}
		var stats activity.TabStats
		path := fmt.Sprintf("/api/v1/tabs/%d/stats", tabID)
		if err := doJSON(http.MethodGet, path, nil, &stats, 10*time.Second, http.StatusOK); err != nil {
			return err
		}
		return printJSON(cmd, stats)
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify <tab-id>",
	Short: "Classify a tab's current session",
	Long: `Classify a tab's current session on demand. The result is printed and
not recorded as an event. Sessions younger than the minimum dwell time
are rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tabID, err := parseTabID(args[0])
		if err != nil {
			return err
		}
		var res focus.Result
		path := fmt.Sprintf("/api/v1/tabs/%d/classify", tabID)
		if err := doJSON(http.MethodPost, path, nil, &res, 30*time.Second, http.StatusOK); err != nil {
			return err
		}
		return printJSON(cmd, res)
	},
}

func init() {
	rootCmd.AddCommand(tabsCmd, statsCmd, classifyCmd)
}

func parseTabID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid tab id %q", s)
	}
	return id, nil
}
