package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/iliyamo/floor-layout/internal/config"
)

// globalOptions are the persistent flags shared by the remote commands.
type globalOptions struct {
	server  string
	secret  string
	subject string
	role    string
	policy  string
}

func newRootCmd() *cobra.Command {
	config.LoadDotEnv()
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "floorctl",
		Short:         "Validate, edit and publish restaurant floor layouts",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.server, "server", envOr("FLOORCTL_SERVER", "http://localhost:8080"), "floor layout API base URL")
	pf.StringVar(&opts.secret, "secret", os.Getenv("JWT_SECRET"), "HS256 secret used to mint the access token")
	pf.StringVar(&opts.subject, "subject", envOr("FLOORCTL_SUBJECT", "floorctl"), "token subject recorded on events")
	pf.StringVar(&opts.role, "role", "MANAGER", "token role (MANAGER or STAFF)")
	pf.StringVar(&opts.policy, "split-policy", envOr("SPLIT_POLICY", "spread"), "capacity split policy (spread or floor)")

	root.AddCommand(
		newValidateCmd(),
		newMergeCmd(opts),
		newSplitCmd(opts),
		newDraftCmd(opts),
		newActivateCmd(opts),
		newStatusCmd(opts),
	)
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
