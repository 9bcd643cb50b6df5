package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/beautyshelf-backend/internal/client/mirror"
	"github.com/heartmarshall/beautyshelf-backend/internal/domain"
)

// minPrefix is the shortest id prefix accepted in place of a full id.
const minPrefix = 4

type entryView struct {
	ID        uuid.UUID   `json:"id"`
	RemoteID  *uuid.UUID  `json:"remote_id,omitempty"`
	Status    string      `json:"status"`
	Name      string      `json:"name"`
	Brand     string      `json:"brand,omitempty"`
	Quantity  int         `json:"quantity"`
	Expires   string      `json:"expires,omitempty"`
	Favorite  bool        `json:"favorite"`
	Tags      []uuid.UUID `json:"tags,omitempty"`
	Bags      []uuid.UUID `json:"bags,omitempty"`
	LastError *string     `json:"last_error,omitempty"`
}

func viewOf(e *mirror.Entry) entryView {
	v := entryView{
		ID:        e.LocalID,
		RemoteID:  e.RemoteID,
		Status:    e.Status.String(),
		Name:      e.Name(),
		Brand:     e.Brand(),
		Quantity:  e.Quantity(),
		Favorite:  e.Favorite(),
		Tags:      e.Tags(),
		Bags:      e.Bags(),
		LastError: e.LastError,
	}
	if exp := e.Expiry(); exp != nil {
		v.Expires = exp.Format(time.DateOnly)
	}
	return v
}

func printEntries(w io.Writer, format string, entries []mirror.Entry) error {
	views := make([]entryView, len(entries))
	for i := range entries {
		views[i] = viewOf(&entries[i])
	}
	if format == "json" {
		return writeJSON(w, views)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tNAME\tBRAND\tQTY\tEXPIRES\tFAV")
	for _, v := range views {
		qty := "-"
		if v.Quantity > 0 {
			qty = fmt.Sprint(v.Quantity)
		}
		fav := ""
		if v.Favorite {
			fav = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			v.ID.String()[:8], v.Status, v.Name, v.Brand, qty, orDash(v.Expires), fav)
	}
	return tw.Flush()
}

func printEntry(w io.Writer, format, verb string, e *mirror.Entry) error {
	v := viewOf(e)
	if format == "json" {
		return writeJSON(w, v)
	}
	line := fmt.Sprintf("%s %s (%s)", verb, v.ID, v.Status)
	if v.LastError != nil {
		line += ": " + *v.LastError
	}
	_, err := fmt.Fprintln(w, line)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func parseDateFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, fmt.Errorf("--%s: want YYYY-MM-DD, got %q", name, value)
	}
	return &t, nil
}

type entryLister interface {
	List(ctx context.Context, statuses ...mirror.Status) ([]mirror.Entry, error)
}

// resolveID accepts a full local id or a unique prefix of one.
func resolveID(ctx context.Context, l entryLister, arg string) (uuid.UUID, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}
	arg = strings.ToLower(strings.TrimSpace(arg))
	if len(arg) < minPrefix {
		return uuid.Nil, domain.NewValidationError("id", fmt.Sprintf("need a full id or at least %d characters", minPrefix))
	}

	entries, err := l.List(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	var found []uuid.UUID
	for _, e := range entries {
		if strings.HasPrefix(e.LocalID.String(), arg) {
			found = append(found, e.LocalID)
		}
	}
	switch len(found) {
	case 0:
		return uuid.Nil, fmt.Errorf("entry %q: %w", arg, domain.ErrNotFound)
	case 1:
		return found[0], nil
	default:
		return uuid.Nil, fmt.Errorf("entry %q matches %d entries: %w", arg, len(found), domain.ErrAmbiguousMatch)
	}
}

// parseIDsFlag parses a list of full ids given to --name. An empty list is
// returned as a non-nil empty slice.
func parseIDsFlag(name string, raw []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("--%s: %q is not an id", name, s)
		}
		out = append(out, id)
	}
	return out, nil
}
