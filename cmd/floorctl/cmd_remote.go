package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/floor-layout/internal/model"
	"github.com/iliyamo/floor-layout/internal/utils"
)

// apiClient calls the floor API with a freshly minted access token.
type apiClient struct {
	base  string
	token string
	http  *http.Client
}

func newAPIClient(opts *globalOptions) (*apiClient, error) {
	at, err := utils.NewAccessToken(opts.secret, opts.subject, strings.ToUpper(opts.role), 5)
	if err != nil {
		return nil, fmt.Errorf("mint token: %w", err)
	}
	return &apiClient{
		base:  strings.TrimRight(opts.server, "/"),
		token: at.Token,
		http:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// apiError is a non-2xx response.
type apiError struct {
	Status  int
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Code)
}

// do sends body as JSON and decodes a 2xx response into out.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(bs)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		ae := &apiError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(ae)
		return ae
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func floorPath(floorID string, rest ...string) string {
	return "/v1/floors/" + url.PathEscape(floorID) + "/" + strings.Join(rest, "/")
}

type versionReply struct {
	FloorID string `json:"floor_id"`
	Version int64  `json:"version"`
}

func newDraftCmd(opts *globalOptions) *cobra.Command {
	draft := &cobra.Command{
		Use:   "draft",
		Short: "Upload or download the draft layout of a floor",
	}

	draft.AddCommand(&cobra.Command{
		Use:   "push <floor-id> <file>",
		Short: "Replace the floor's draft with a layout file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(args[1])
			if err != nil {
				return err
			}
			c, err := newAPIClient(opts)
			if err != nil {
				return err
			}
			var reply versionReply
			if err := c.do(cmd.Context(), http.MethodPut, floorPath(args[0], "draft"), snap, &reply); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "draft saved for %s at version %d\n", reply.FloorID, reply.Version)
			return nil
		},
	})

	var output string
	pull := &cobra.Command{
		Use:   "pull <floor-id>",
		Short: "Download the floor's draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newAPIClient(opts)
			if err != nil {
				return err
			}
			var snap model.Snapshot
			if err := c.do(cmd.Context(), http.MethodGet, floorPath(args[0], "draft"), nil, &snap); err != nil {
				return err
			}
			return writeSnapshot(cmd.OutOrStdout(), output, snap)
		},
	}
	pull.Flags().StringVarP(&output, "output", "o", "", "write the draft to a file instead of stdout")
	draft.AddCommand(pull)
	return draft
}

func newActivateCmd(opts *globalOptions) *cobra.Command {
	var expected int64
	cmd := &cobra.Command{
		Use:   "activate <floor-id>",
		Short: "Promote the floor's draft to the active layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newAPIClient(opts)
			if err != nil {
				return err
			}
			body := map[string]int64{"expected_version": expected}
			var reply versionReply
			if err := c.do(cmd.Context(), http.MethodPost, floorPath(args[0], "activate"), body, &reply); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "layout of %s active at version %d\n", reply.FloorID, reply.Version)
			return nil
		},
	}
	cmd.Flags().Int64Var(&expected, "expected-version", 0, "layout version the draft was based on")
	_ = cmd.MarkFlagRequired("expected-version")
	return cmd
}

func newStatusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <floor-id> <table-id> <status>",
		Short: "Change the live status of a table",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newAPIClient(opts)
			if err != nil {
				return err
			}
			var change struct {
				TableID string `json:"table_id"`
				From    string `json:"from"`
				To      string `json:"to"`
			}
			body := map[string]string{"status": args[2]}
			if err := c.do(cmd.Context(), http.MethodPatch, floorPath(args[0], "tables", url.PathEscape(args[1]), "status"), body, &change); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s\n", change.TableID, change.From, change.To)
			return nil
		},
	}
}
