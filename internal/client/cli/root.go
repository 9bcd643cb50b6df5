// Package cli implements the shelfctl commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/beautyshelf-backend/internal/app"
	"github.com/heartmarshall/beautyshelf-backend/internal/config"
)

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{"text", "json"}

// opener builds the client session a command works with.
type opener func(ctx context.Context, opts *RootOptions) (*app.ClientSession, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string

	open opener
}

func (o *RootOptions) session(ctx context.Context) (*app.ClientSession, error) {
	return o.open(ctx, o)
}

// NewRootCommand creates the shelfctl root command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(openFromConfig)
}

func newRootCommand(open opener) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "shelfctl",
		Short: "Track your beauty shelf, online or off",
		Long: `shelfctl keeps a local mirror of the products you own and syncs it
with the inventory API. Changes are saved locally first; failed syncs are
kept until they go through or you discard them.`,
		Version:       app.BuildVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewEditCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewDiscardCommand(opts))
	cmd.AddCommand(NewRetryCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewInferCommand(opts))

	return cmd
}

func openFromConfig(ctx context.Context, opts *RootOptions) (*app.ClientSession, error) {
	cfg, err := config.LoadClient()
	if err != nil {
		return nil, err
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}
	logger := app.NewLogger(cfg.Log, os.Stderr)
	return app.OpenClient(ctx, cfg, logger)
}

// withSession opens a session for the duration of fn.
func withSession(cmd *cobra.Command, opts *RootOptions, fn func(*app.ClientSession) error) error {
	sess, err := opts.session(cmd.Context())
	if err != nil {
		return err
	}
	defer sess.Close()
	return fn(sess)
}
