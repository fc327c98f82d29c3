// staffdeckctl is the operator CLI for a running staffdeck server. It talks
// to the admin HTTP surface; it never opens database connections itself.
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

const adminKeyHeader = "X-Admin-API-Key"

var (
	serverURL string
	apiKey    string
	timeout   time.Duration
)

func main() {
	root := &cobra.Command{
		Use:           "staffdeckctl",
		Short:         "Operator CLI for the staffdeck admin API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server",
		envOr("STAFFDECK_ADMIN_URL", "http://localhost:8080"), "base URL of the staffdeck server")
	root.PersistentFlags().StringVar(&apiKey, "key",
		os.Getenv("STAFFDECK_ADMIN_KEY"), "admin API key")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")

	root.AddCommand(pingCmd(), tenantsCmd(), poolsCmd(), evictCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check server liveness and readiness",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, path := range []string{"/healthz", "/readyz"} {
				body, status, err := doRequest(http.MethodGet, path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d %s\n", path, status, strings.TrimSpace(string(body)))
			}
			return nil
		},
	}
}

func tenantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tenants",
		Short: "List active tenants from the control store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd.OutOrStdout(), http.MethodGet, "/api/admin/tenants")
		},
	}
}

func poolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pools",
		Short: "Show the live tenant pools and their connection stats",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd.OutOrStdout(), http.MethodGet, "/api/admin/pools")
		},
	}
}

func evictCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "evict <tenant-code>",
		Short: "Close a tenant's pool and drop its cached record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printJSON(cmd.OutOrStdout(),
				http.MethodDelete, "/api/admin/tenants/"+args[0]+"/pool")
		},
	}
}

func doRequest(method, path string) ([]byte, int, error) {
	req, err := http.NewRequest(method, strings.TrimRight(serverURL, "/")+path, nil)
	if err != nil {
		return nil, 0, err
	}
	if apiKey != "" {
		req.Header.Set(adminKeyHeader, apiKey)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func printJSON(out io.Writer, method, path string) error {
	body, status, err := doRequest(method, path)
	if err != nil {
		return err
	}
	if status >= 400 {
		return fmt.Errorf("%s %s: HTTP %d: %s", method, path, status, strings.TrimSpace(string(body)))
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		fmt.Fprintln(out, strings.TrimSpace(string(body)))
		return nil
	}
	fmt.Fprintln(out, strings.TrimSpace(buf.String()))
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
