package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/VoxelHeimGame/db-cluster/internal/api"
	"github.com/VoxelHeimGame/db-cluster/internal/cluster"
)

// DefaultServer is the API address used by client commands.
const DefaultServer = "http://localhost:3000"

const statusRequestTimeout = 10 * time.Second

// StatusOptions carries the status command flags.
type StatusOptions struct {
	Server   string
	JSON     bool
	Watch    bool
	Interval time.Duration
}

// Status prints the status of clusterID.
func Status(ctx context.Context, clusterID string, opts StatusOptions) error {
	if err := cluster.ValidateID(clusterID); err != nil {
		return err
	}
	client := &http.Client{Timeout: statusRequestTimeout}
	styled := !opts.JSON && isTerminal()

	if !opts.Watch {
		return showStatus(ctx, os.Stdout, client, clusterID, opts, styled)
	}
	return watchStatus(ctx, client, clusterID, opts, styled)
}

// showStatus fetches and prints the status once.
func showStatus(ctx context.Context, w io.Writer, client *http.Client, clusterID string, opts StatusOptions, styled bool) error {
	status, err := fetchStatus(ctx, client, opts.Server, clusterID)
	if err != nil {
		return err
	}
	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	_, err = io.WriteString(w, renderStatus(clusterID, status, styled))
	return err
}

// watchStatus continuously displays cluster status.
func watchStatus(ctx context.Context, client *http.Client, clusterID string, opts StatusOptions, styled bool) error {
	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := showStatus(ctx, os.Stdout, client, clusterID, opts, styled); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if styled {
				fmt.Print("\033[H\033[2J")
			}
			if err := showStatus(ctx, os.Stdout, client, clusterID, opts, styled); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			}
		}
	}
}

// fetchStatus calls GET /cluster/:clusterId/status on server.
func fetchStatus(ctx context.Context, client *http.Client, server, clusterID string) (*cluster.ClusterStatus, error) {
	endpoint, err := url.JoinPath(strings.TrimRight(server, "/"), "cluster", clusterID, "status")
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", server, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach dbcluster server at %s: %w", server, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body api.Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode status response (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !body.Success || body.Status == nil {
		msg := body.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("status request failed (HTTP %d): %s", resp.StatusCode, msg)
	}
	return body.Status, nil
}

// isTerminal returns true if stdout is a terminal.
func isTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
