package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/beautyshelf-backend/internal/app"
	"github.com/heartmarshall/beautyshelf-backend/internal/client/mirror"
)

// AddOptions holds flags for the add command.
type AddOptions struct {
	*RootOptions
	Barcode     string
	Brand       string
	Size        float64
	Unit        string
	Batch       string
	PAO         string
	Purchased   string
	Opened      string
	Expires     string
	Favorite    bool
	Vegan       bool
	CrueltyFree bool
	Tags        []string
	Bags        []string
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AddOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a product you own",
		Long: `Add a product you own. It is saved locally first, then pushed to the
server, which resolves the catalog entry, quantity and expiry.

Example:
  shelfctl add "Cicaplast Baume B5" --brand "La Roche-Posay" --barcode 3337875597197 \
    --size 40 --unit ml --pao 12M --opened 2024-01-10`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			capture, err := opts.capture(cmd, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return withSession(cmd, opts.RootOptions, func(sess *app.ClientSession) error {
				return runAdd(cmd, opts, sess, capture)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Barcode, "barcode", "", "product barcode")
	f.StringVar(&opts.Brand, "brand", "", "brand name")
	f.Float64Var(&opts.Size, "size", 0, "container size")
	f.StringVar(&opts.Unit, "unit", "", "size unit (ml, g, ...)")
	f.StringVar(&opts.Batch, "batch", "", "batch code printed on the product")
	f.StringVar(&opts.PAO, "pao", "", "period after opening, e.g. 12M")
	f.StringVar(&opts.Purchased, "purchased", "", "purchase date (YYYY-MM-DD)")
	f.StringVar(&opts.Opened, "opened", "", "open date (YYYY-MM-DD)")
	f.StringVar(&opts.Expires, "expires", "", "expiry date printed on the product (YYYY-MM-DD)")
	f.BoolVar(&opts.Favorite, "favorite", false, "mark as favorite")
	f.BoolVar(&opts.Vegan, "vegan", false, "product is vegan")
	f.BoolVar(&opts.CrueltyFree, "cruelty-free", false, "product is cruelty free")
	f.StringSliceVar(&opts.Tags, "tag", nil, "tag id (repeatable)")
	f.StringSliceVar(&opts.Bags, "bag", nil, "bag id (repeatable)")

	return cmd
}

func (o *AddOptions) capture(cmd *cobra.Command, name string) (mirror.Capture, error) {
	c := mirror.Capture{
		Name:     name,
		Brand:    o.Brand,
		Barcode:  nonEmpty(o.Barcode),
		SizeUnit: nonEmpty(o.Unit),
		Favorite: o.Favorite,
	}
	if cmd.Flags().Changed("size") {
		size := o.Size
		c.SizeValue = &size
	}
	c.BatchCode = nonEmpty(o.Batch)
	c.PAOText = nonEmpty(o.PAO)
	if cmd.Flags().Changed("vegan") {
		v := o.Vegan
		c.Vegan = &v
	}
	if cmd.Flags().Changed("cruelty-free") {
		v := o.CrueltyFree
		c.CrueltyFree = &v
	}

	var err error
	if len(o.Tags) > 0 {
		if c.TagIDs, err = parseIDsFlag("tag", o.Tags); err != nil {
			return c, err
		}
	}
	if len(o.Bags) > 0 {
		if c.BagIDs, err = parseIDsFlag("bag", o.Bags); err != nil {
			return c, err
		}
	}
	if c.PurchaseDate, err = parseDateFlag("purchased", o.Purchased); err != nil {
		return c, err
	}
	if c.OpenDate, err = parseDateFlag("opened", o.Opened); err != nil {
		return c, err
	}
	if c.ExpiryDate, err = parseDateFlag("expires", o.Expires); err != nil {
		return c, err
	}
	return c, nil
}

func runAdd(cmd *cobra.Command, opts *AddOptions, sess *app.ClientSession, capture mirror.Capture) error {
	ctx := cmd.Context()
	e, err := sess.Mediator.Create(ctx, capture)
	if err != nil {
		return err
	}

	// The local copy is saved; give the push a chance to finish before exit.
	sess.Mediator.Wait()

	if latest, err := sess.Mediator.Get(ctx, e.LocalID); err == nil {
		e = latest
	}
	return printEntry(cmd.OutOrStdout(), opts.Format, "added", e)
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
