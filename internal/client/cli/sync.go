package cli

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/beautyshelf-backend/internal/app"
	"github.com/heartmarshall/beautyshelf-backend/internal/client/mirror"
	"github.com/heartmarshall/beautyshelf-backend/internal/client/remote"
	"github.com/heartmarshall/beautyshelf-backend/internal/client/syncer"
	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
	"github.com/heartmarshall/beautyshelf-backend/internal/service/expiry"
)

type syncSummary struct {
	Synced  int `json:"synced"`
	Removed int `json:"removed"`
	Failed  int `json:"failed"`
	Left    int `json:"left"`
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push every unsynced change, failed ones included",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, rootOpts, func(sess *app.ClientSession) error {
				var (
					mu  sync.Mutex
					sum syncSummary
				)
				sess.Mediator.OnChange(func(ev syncer.Event) {
					mu.Lock()
					defer mu.Unlock()
					switch {
					case ev.Removed:
						sum.Removed++
					case ev.Err != nil:
						sum.Failed++
					case ev.Status == mirror.StatusSynced:
						sum.Synced++
					}
				})

				syncErr := sess.Mediator.SyncAll(cmd.Context())
				if syncErr != nil && !errors.Is(syncErr, domain.ErrSyncFailed) {
					return syncErr
				}

				left, err := sess.Mediator.List(cmd.Context(),
					mirror.StatusPending, mirror.StatusSyncFailed, mirror.StatusPendingDelete)
				if err != nil {
					return err
				}
				mu.Lock()
				sum.Left = len(left)
				mu.Unlock()

				if rootOpts.Format == "json" {
					if err := writeJSON(cmd.OutOrStdout(), sum); err != nil {
						return err
					}
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "synced %d, removed %d, failed %d, %d left\n",
						sum.Synced, sum.Removed, sum.Failed, sum.Left)
				}
				return syncErr
			})
		},
	}
}

// InferOptions holds flags for the infer command.
type InferOptions struct {
	*RootOptions
	PAO    string
	Batch  string
	Opened string
}

type inferResult struct {
	ManufactureDate string `json:"manufacture_date,omitempty"`
	ExpiryDate      string `json:"expiry_date,omitempty"`
	Method          string `json:"method,omitempty"`
	Offline         bool   `json:"offline"`
}

// NewInferCommand creates the infer command.
func NewInferCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InferOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "infer",
		Short: "Preview the expiry estimate for a product",
		Long: `Preview the expiry estimate for a product without saving it. When the
server cannot be reached the estimate is computed locally with the default
shelf life.

Example:
  shelfctl infer --batch 2024180
  shelfctl infer --pao "12 months" --opened 2024-01-10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opened, err := parseDateFlag("opened", opts.Opened)
			if err != nil {
				return err
			}
			return withSession(cmd, opts.RootOptions, func(sess *app.ClientSession) error {
				res, err := inferExpiry(cmd, sess, opts, opened)
				if err != nil {
					return err
				}
				if opts.Format == "json" {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				if res.ExpiryDate == "" {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "no estimate")
					return err
				}
				line := fmt.Sprintf("expires %s (%s)", res.ExpiryDate, res.Method)
				if res.ManufactureDate != "" {
					line += ", made " + res.ManufactureDate
				}
				if res.Offline {
					line += " [offline]"
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), line)
				return err
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.PAO, "pao", "", "period after opening, e.g. 12M")
	f.StringVar(&opts.Batch, "batch", "", "batch code")
	f.StringVar(&opts.Opened, "opened", "", "open date (YYYY-MM-DD)")

	return cmd
}

func inferExpiry(cmd *cobra.Command, sess *app.ClientSession, opts *InferOptions, opened *time.Time) (inferResult, error) {
	est, err := sess.API.InferExpiry(cmd.Context(), remote.InferRequest{
		PAOText:   opts.PAO,
		BatchCode: opts.Batch,
		OpenDate:  remote.DateOf(opened),
	})
	if err == nil {
		return inferResult{
			ManufactureDate: formatDate(est.ManufactureDate.Ptr()),
			ExpiryDate:      formatDate(est.ExpiryDate.Ptr()),
			Method:          est.Method,
		}, nil
	}
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		return inferResult{}, err
	}

	local := expiry.Infer(opts.PAO, opts.Batch, opened)
	return inferResult{
		ManufactureDate: formatDate(local.ManufactureDate),
		ExpiryDate:      formatDate(local.ExpiryDate),
		Method:          string(local.Method),
		Offline:         true,
	}, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}
