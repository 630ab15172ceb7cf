package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/floor-layout/internal/layout"
	"github.com/iliyamo/floor-layout/internal/repository"
	"github.com/iliyamo/floor-layout/internal/service"
)

var errInvalidLayout = errors.New("layout is not valid")

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a layout file the way draft save and activation do",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := readSnapshot(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			svc := service.NewLayoutService(repository.NewMemoryLayoutRepo(), zap.NewNop())
			if err := svc.CheckDraft(snap); err != nil {
				fmt.Fprintf(out, "draft:      rejected (%s)\n", err)
				return errInvalidLayout
			}
			fmt.Fprintln(out, "draft:      ok")

			v := layout.Validate(snap)
			fmt.Fprintf(out, "activation: %s\n", v)
			fmt.Fprintf(out, "tables:     %d\n", len(snap.Tables))
			if !v.IsValid {
				return errInvalidLayout
			}
			return nil
		},
	}
}

func newMergeCmd(opts *globalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "merge <file> <table-id> <table-id>...",
		Short: "Merge adjacent tables of a layout file into one",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEngine(args[0], opts)
			if err != nil {
				return err
			}
			merged, err := e.Merge(args[1:])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "merged %s (capacity %d)\n", merged.Label, merged.Capacity)
			return writeSnapshot(cmd.OutOrStdout(), output, e.Snapshot())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result to a file instead of stdout")
	return cmd
}

func newSplitCmd(opts *globalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "split <file> <table-id>",
		Short: "Split a merged table back into its parts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEngine(args[0], opts)
			if err != nil {
				return err
			}
			parts, err := e.Split(args[1])
			if err != nil {
				return err
			}
			for _, p := range parts {
				fmt.Fprintf(cmd.ErrOrStderr(), "created %s (capacity %d)\n", p.Label, p.Capacity)
			}
			return writeSnapshot(cmd.OutOrStdout(), output, e.Snapshot())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the result to a file instead of stdout")
	return cmd
}

func loadEngine(path string, opts *globalOptions) (*layout.Engine, error) {
	snap, err := readSnapshot(path)
	if err != nil {
		return nil, err
	}
	policy, err := layout.ParseSplitPolicy(opts.policy)
	if err != nil {
		return nil, err
	}
	return layout.NewEngine(snap, layout.WithSplitPolicy(policy)), nil
}
