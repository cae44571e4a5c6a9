// Package main implements the focusctl CLI for manual operations against
// the focusd HTTP API.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the focusd HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "focusctl",
	Short: "CLI for focusd HTTP API operations",
	Long: `focusctl is a command-line interface for the focusd HTTP API.
It inspects tab sessions, requests classifications, manages the domain
lists and answers distraction notifications.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9191", "focusd server URL")
	rootCmd.AddCommand(healthCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check focusd server health",
	Long: `Check the health status of the focusd HTTP server.

Examples:
  # Check health
  focusctl health

  # Check health on a different server
  focusctl health --server http://localhost:8080`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

// HealthResponse matches internal/http HealthResponse
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

func runHealth(cmd *cobra.Command, args []string) error {
	var health HealthResponse
	if err := doJSON(http.MethodGet, "/health", nil, &health, 5*time.Second, http.StatusOK); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Server Status: %s\n", health.Status)
	if health.Version != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\n", health.Version)
	}
	return nil
}

// doJSON sends body (if any) as JSON to path, which callers escape, and
// decodes the response into out (if any). Responses with a status outside
// want are returned as errors.
func doJSON(method, path string, body, out any, timeout time.Duration, want ...int) error {
	endpoint := strings.TrimRight(serverURL, "/") + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if !statusIn(resp.StatusCode, want) {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func statusIn(code int, want []int) bool {
	for _, w := range want {
		if code == w {
			return true
		}
	}
	return false
}

// printJSON writes v as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
