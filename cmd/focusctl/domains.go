package main

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/focusfuel/internal/domains"
	httpserver "github.com/fyrsmithlabs/focusfuel/internal/http"
)

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "Manage the domain blacklist and whitelist",
}

var domainsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print both domain lists",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var lists httpserver.DomainsResponse
		if err := doJSON(http.MethodGet, "/api/v1/domains", nil, &lists, 10*time.Second, http.StatusOK); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "blacklist:")
		for _, d := range lists.Blacklist {
			fmt.Fprintf(out, "  %s\n", d)
		}
		fmt.Fprintln(out, "whitelist:")
		for _, d := range lists.Whitelist {
			fmt.Fprintf(out, "  %s\n", d)
		}
		return nil
	},
}

var domainsAddCmd = &cobra.Command{
	Use:   "add <blacklist|whitelist> <domain>",
	Short: "Add a domain to a list",
	Long: `Add a domain to a list. URLs are accepted and reduced to their host,
with any leading "www." removed.

Examples:
  focusctl domains add blacklist reddit.com
  focusctl domains add whitelist https://www.notion.so/workspace`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := listArg(args[0])
		if err != nil {
			return err
		}
		var added httpserver.DomainRequest
		path := "/api/v1/domains/" + list
		if err := doJSON(http.MethodPost, path, httpserver.DomainRequest{Domain: args[1]}, &added, 10*time.Second, http.StatusCreated); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %s to %s\n", added.Domain, list)
		return nil
	},
}

var domainsRemoveCmd = &cobra.Command{
	Use:   "remove <blacklist|whitelist> <domain>",
	Short: "Remove a domain from a list",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := listArg(args[0])
		if err != nil {
			return err
		}
		domain := domains.Normalize(args[1])
		if domain == "" {
			return fmt.Errorf("invalid domain %q", args[1])
		}
		path := "/api/v1/domains/" + list + "/" + url.PathEscape(domain)
		if err := doJSON(http.MethodDelete, path, nil, nil, 10*time.Second, http.StatusNoContent); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %s from %s\n", domain, list)
		return nil
	},
}

func init() {
	domainsCmd.AddCommand(domainsListCmd, domainsAddCmd, domainsRemoveCmd)
	rootCmd.AddCommand(domainsCmd)
}

func listArg(s string) (string, error) {
	switch s {
	case "blacklist", "whitelist":
		return s, nil
	default:
		return "", fmt.Errorf("list must be blacklist or whitelist, got %q", s)
	}
}
