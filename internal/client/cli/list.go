package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/beautyshelf-backend/internal/app"
	"github.com/heartmarshall/beautyshelf-backend/internal/client/mirror"
)

// ListOptions holds flags for the ls command.
type ListOptions struct {
	*RootOptions
	Status []string
}

// NewListCommand creates the ls command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List products in the local mirror",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatuses(opts.Status)
			if err != nil {
				return err
			}
			return withSession(cmd, opts.RootOptions, func(sess *app.ClientSession) error {
				entries, err := sess.Mediator.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				return printEntries(cmd.OutOrStdout(), opts.Format, entries)
			})
		},
	}

	cmd.Flags().StringSliceVar(&opts.Status, "status", nil,
		"only show entries in these statuses (pending, syncing, synced, sync_failed, pending_delete)")

	return cmd
}

func parseStatuses(raw []string) ([]mirror.Status, error) {
	out := make([]mirror.Status, 0, len(raw))
	for _, s := range raw {
		st := mirror.Status(strings.ToLower(strings.TrimSpace(s)))
		if !st.Valid() {
			return nil, fmt.Errorf("unknown status %q", s)
		}
		out = append(out, st)
	}
	return out, nil
}
