package cli

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/heartmarshall/beautyshelf-backend/internal/app"
	"github.com/heartmarshall/beautyshelf-backend/internal/client/mirror"
	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
)

// EditOptions holds flags for the edit command.
type EditOptions struct {
	*RootOptions
	Favorite bool
	Finished bool
	Amount   int
	Opened   string
	Expires  string
	Tags     []string
	Bags     []string
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change favorite, finished, amount left or dates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := opts.patch(cmd)
			if err != nil {
				return err
			}
			return withSession(cmd, opts.RootOptions, func(sess *app.ClientSession) error {
				id, err := resolveID(cmd.Context(), sess.Mediator, args[0])
				if err != nil {
					return err
				}
				if _, err := sess.Mediator.Update(cmd.Context(), id, patch); err != nil {
					return err
				}
				sess.Mediator.Wait()
				return printLatest(cmd, sess, opts.Format, "updated", id)
			})
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.Favorite, "favorite", false, "favorite flag")
	f.BoolVar(&opts.Finished, "finished", false, "finished flag")
	f.IntVar(&opts.Amount, "amount", 0, "amount remaining, 0-100")
	f.StringVar(&opts.Opened, "opened", "", "open date (YYYY-MM-DD)")
	f.StringVar(&opts.Expires, "expires", "", "expiry override (YYYY-MM-DD)")
	f.StringSliceVar(&opts.Tags, "tag", nil, `replace tags with these ids; --tag="" clears them`)
	f.StringSliceVar(&opts.Bags, "bag", nil, `replace bags with these ids; --bag="" clears them`)

	return cmd
}

func (o *EditOptions) patch(cmd *cobra.Command) (mirror.Patch, error) {
	var p mirror.Patch
	flags := cmd.Flags()
	if flags.Changed("favorite") {
		v := o.Favorite
		p.Favorite = &v
	}
	if flags.Changed("finished") {
		v := o.Finished
		p.Finished = &v
	}
	if flags.Changed("amount") {
		v := o.Amount
		p.AmountRemaining = &v
	}

	if flags.Changed("tag") {
		ids, err := parseIDsFlag("tag", o.Tags)
		if err != nil {
			return p, err
		}
		p.TagIDs = &ids
	}
	if flags.Changed("bag") {
		ids, err := parseIDsFlag("bag", o.Bags)
		if err != nil {
			return p, err
		}
		p.BagIDs = &ids
	}

	var err error
	if p.OpenDate, err = parseDateFlag("opened", o.Opened); err != nil {
		return p, err
	}
	if p.ExpiryDate, err = parseDateFlag("expires", o.Expires); err != nil {
		return p, err
	}
	return p, nil
}

// NewRemoveCommand creates the rm command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Remove a product",
		Long: `Remove a product. Entries the server never received are removed at
once; others are removed once the server confirms.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(sess *app.ClientSession) error {
				id, err := resolveID(cmd.Context(), sess.Mediator, args[0])
				if err != nil {
					return err
				}
				if err := sess.Mediator.Delete(cmd.Context(), id); err != nil {
					return err
				}
				sess.Mediator.Wait()
				return printLatest(cmd, sess, rootOpts.Format, "removing", id)
			})
		},
	}
}

// NewDiscardCommand creates the discard command.
func NewDiscardCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "discard <id>",
		Short: "Drop local changes that have not synced",
		Long: `Drop local changes that have not synced. A product the server never
received is removed; otherwise the entry goes back to the server's copy.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(sess *app.ClientSession) error {
				id, err := resolveID(cmd.Context(), sess.Mediator, args[0])
				if err != nil {
					return err
				}
				if err := sess.Mediator.Discard(cmd.Context(), id); err != nil {
					return err
				}
				return printLatest(cmd, sess, rootOpts.Format, "discarded", id)
			})
		},
	}
}

// NewRetryCommand creates the retry command.
func NewRetryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Push a failed entry again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(sess *app.ClientSession) error {
				id, err := resolveID(cmd.Context(), sess.Mediator, args[0])
				if err != nil {
					return err
				}
				if err := sess.Mediator.Retry(cmd.Context(), id); err != nil {
					return err
				}
				sess.Mediator.Wait()
				return printLatest(cmd, sess, rootOpts.Format, "retried", id)
			})
		},
	}
}

// printLatest prints the entry as stored now, or a removal notice when it
// is gone.
func printLatest(cmd *cobra.Command, sess *app.ClientSession, format, verb string, id uuid.UUID) error {
	e, err := sess.Mediator.Get(cmd.Context(), id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if format == "json" {
			return writeJSON(cmd.OutOrStdout(), map[string]any{"id": id, "removed": true})
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", id)
		return err
	case err != nil:
		return err
	}
	return printEntry(cmd.OutOrStdout(), format, verb, e)
}
