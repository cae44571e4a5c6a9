package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/focusfuel/internal/focus"
	httpserver "github.com/fyrsmithlabs/focusfuel/internal/http"
)

var eventsLimit int

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List recent distraction events, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if eventsLimit < 1 {
			return fmt.Errorf("--limit must be positive, got %d", eventsLimit)
		}
		q := url.Values{"limit": {strconv.Itoa(eventsLimit)}}
		var resp httpserver.EventsResponse
		if err := doJSON(http.MethodGet, "/api/v1/events?"+q.Encode(), nil, &resp, 10*time.Second, http.StatusOK); err != nil {
			return err
		}
		return printJSON(cmd, resp.Events)
	},
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "List notifications awaiting a response",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp httpserver.NotificationsResponse
		if err := doJSON(http.MethodGet, "/api/v1/notifications", nil, &resp, 10*time.Second, http.StatusOK); err != nil {
			return err
		}
		return printJSON(cmd, resp.Notifications)
	},
}

var respondCmd = &cobra.Command{
	Use:   "respond <notification-id> <take_break|continue>",
	Short: "Answer a distraction notification",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		action, err := focus.ParseNotificationAction(args[1])
		if err != nil {
			return err
		}
		var resp focus.NotificationResponse
		path := "/api/v1/notifications/" + url.PathEscape(args[0]) + "/respond"
		body := httpserver.RespondRequest{Action: string(action)}
		if err := doJSON(http.MethodPost, path, body, &resp, 10*time.Second, http.StatusOK); err != nil {
			return err
		}
		return printJSON(cmd, resp)
	},
}

func init() {
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 20, "maximum events to list")
	rootCmd.AddCommand(eventsCmd, notificationsCmd, respondCmd)
}
