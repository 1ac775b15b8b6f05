package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var healthcheckClient = &http.Client{Timeout: 2 * time.Second}

var (
	healthcheckURL    string
	healthcheckSameAs bool
)

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check if the server is healthy",
	Long: `Requests /up on a running server, which answers 200 only while the database is reachable.
With --same-version the server must also report this binary's version, which catches
containers still running a previous release after a deploy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		base := strings.TrimRight(healthcheckURL, "/")
		if base == "" {
			port := "3000"
			if cfg, err := loadConfig(); err == nil {
				port = cfg.Port
			}
			base = "http://localhost:" + port
		}

		expect := ""
		if healthcheckSameAs {
			expect = Version
		}
		if err := checkServer(base, expect); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Healthcheck failed: %v\n", err)
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

// checkServer checks base/up and, when expectVersion is set, base/api/version.
func checkServer(base, expectVersion string) error {
	body, err := fetchOK(base + "/up")
	if err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	_ = body.Close()

	if expectVersion == "" {
		return nil
	}

	body, err = fetchOK(base + "/api/version")
	if err != nil {
		return fmt.Errorf("version check failed: %w", err)
	}
	defer func() { _ = body.Close() }()

	var payload struct {
		Version string `json:"version"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return fmt.Errorf("version check failed: %w", err)
	}
	if payload.Version != expectVersion {
		return fmt.Errorf("server runs version %q, expected %q", payload.Version, expectVersion)
	}
	return nil
}

func fetchOK(url string) (io.ReadCloser, error) {
	resp, err := healthcheckClient.Get(url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func init() {
	healthcheckCmd.Flags().StringVar(&healthcheckURL, "url", "", "Server base URL (default http://localhost:<port>)")
	healthcheckCmd.Flags().BoolVar(&healthcheckSameAs, "same-version", false, "Require the server to report this binary's version")
	RootCmd.AddCommand(healthcheckCmd)
}
