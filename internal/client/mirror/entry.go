package mirror

import (
	"time"

	"github.com/google/uuid"
)

// Status is the sync state of a mirror entry.
type Status string

const (
	// StatusPending: created or changed locally, not yet sent.
	StatusPending Status = "pending"
	// StatusSyncing: a request for the entry is in flight.
	StatusSyncing Status = "syncing"
	// StatusSynced: the server holds the entry and nothing local is unsent.
	StatusSynced Status = "synced"
	// StatusSyncFailed: the last push failed; the entry is kept until it
	// syncs or the user discards it.
	StatusSyncFailed Status = "sync_failed"
	// StatusPendingDelete: deleted locally, the remote delete is not done yet.
	StatusPendingDelete Status = "pending_delete"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSyncing, StatusSynced, StatusSyncFailed, StatusPendingDelete:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// Capture holds what the user entered when adding a product. It is sent
// once, as the create request.
type Capture struct {
	Barcode      *string     `json:"barcode,omitempty"`
	Name         string      `json:"name"`
	Brand        string      `json:"brand,omitempty"`
	SizeValue    *float64    `json:"size_value,omitempty"`
	SizeUnit     *string     `json:"size_unit,omitempty"`
	BatchCode    *string     `json:"batch_code,omitempty"`
	PAOText      *string     `json:"pao_text,omitempty"`
	PurchaseDate *time.Time  `json:"purchase_date,omitempty"`
	OpenDate     *time.Time  `json:"open_date,omitempty"`
	ExpiryDate   *time.Time  `json:"expiry_date,omitempty"`
	Vegan        *bool       `json:"vegan,omitempty"`
	CrueltyFree  *bool       `json:"cruelty_free,omitempty"`
	Favorite     bool        `json:"favorite,omitempty"`
	TagIDs       []uuid.UUID `json:"tag_ids,omitempty"`
	BagIDs       []uuid.UUID `json:"bag_ids,omitempty"`
}

// Patch holds user edits not yet pushed to the server. Tag and bag lists
// replace the whole set; a non-nil empty list clears it.
type Patch struct {
	Favorite        *bool        `json:"favorite,omitempty"`
	Finished        *bool        `json:"finished,omitempty"`
	AmountRemaining *int         `json:"amount_remaining,omitempty"`
	OpenDate        *time.Time   `json:"open_date,omitempty"`
	ExpiryDate      *time.Time   `json:"expiry_date,omitempty"`
	TagIDs          *[]uuid.UUID `json:"tag_ids,omitempty"`
	BagIDs          *[]uuid.UUID `json:"bag_ids,omitempty"`
}

// IsEmpty reports whether the patch changes nothing. A nil patch is empty.
func (p *Patch) IsEmpty() bool {
	return p == nil || (p.Favorite == nil && p.Finished == nil &&
		p.AmountRemaining == nil && p.OpenDate == nil && p.ExpiryDate == nil &&
		p.TagIDs == nil && p.BagIDs == nil)
}

// Merge returns a patch with the fields of p overridden by the set fields
// of newer. Neither input is modified.
func (p *Patch) Merge(newer *Patch) *Patch {
	var out Patch
	if p != nil {
		out = *p
	}
	if newer == nil {
		if out.IsEmpty() {
			return nil
		}
		return &out
	}
	if newer.Favorite != nil {
		out.Favorite = newer.Favorite
	}
	if newer.Finished != nil {
		out.Finished = newer.Finished
	}
	if newer.AmountRemaining != nil {
		out.AmountRemaining = newer.AmountRemaining
	}
	if newer.OpenDate != nil {
		out.OpenDate = newer.OpenDate
	}
	if newer.ExpiryDate != nil {
		out.ExpiryDate = newer.ExpiryDate
	}
	if newer.TagIDs != nil {
		out.TagIDs = newer.TagIDs
	}
	if newer.BagIDs != nil {
		out.BagIDs = newer.BagIDs
	}
	if out.IsEmpty() {
		return nil
	}
	return &out
}

// Resolved holds the server's view of a synced entry. The server is
// authoritative for every field here.
type Resolved struct {
	CatalogID       uuid.UUID   `json:"catalog_id"`
	Name            string      `json:"name"`
	Brand           string      `json:"brand"`
	ImageURL        *string     `json:"image_url,omitempty"`
	Quantity        int         `json:"quantity"`
	ExpiryDate      *time.Time  `json:"expiry_date,omitempty"`
	OpenDate        *time.Time  `json:"open_date,omitempty"`
	Favorite        bool        `json:"favorite"`
	Finished        bool        `json:"finished"`
	AmountRemaining int         `json:"amount_remaining"`
	TagIDs          []uuid.UUID `json:"tag_ids,omitempty"`
	BagIDs          []uuid.UUID `json:"bag_ids,omitempty"`
}

// Entry is the client-side projection of an owned product.
type Entry struct {
	LocalID  uuid.UUID
	RemoteID *uuid.UUID
	Status   Status
	// Deleted marks a local delete; it survives a crash while the remote
	// delete is in flight.
	Deleted   bool
	Capture   Capture
	Patch     *Patch
	Resolved  *Resolved
	Attempts  int
	LastError *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Name returns the server-resolved name once known, else the captured one.
func (e *Entry) Name() string {
	if e.Resolved != nil && e.Resolved.Name != "" {
		return e.Resolved.Name
	}
	return e.Capture.Name
}

// Brand returns the server-resolved brand once known, else the captured one.
func (e *Entry) Brand() string {
	if e.Resolved != nil && e.Resolved.Brand != "" {
		return e.Resolved.Brand
	}
	return e.Capture.Brand
}

// Quantity returns the reconciled quantity, or 0 before the first sync.
func (e *Entry) Quantity() int {
	if e.Resolved == nil {
		return 0
	}
	return e.Resolved.Quantity
}

// Expiry returns the expiry shown to the user: an unsent local override
// first, then the server's, then the one captured.
func (e *Entry) Expiry() *time.Time {
	switch {
	case e.Patch != nil && e.Patch.ExpiryDate != nil:
		return e.Patch.ExpiryDate
	case e.Resolved != nil && e.Resolved.ExpiryDate != nil:
		return e.Resolved.ExpiryDate
	default:
		return e.Capture.ExpiryDate
	}
}

// Favorite returns the favorite flag with unsent edits applied.
func (e *Entry) Favorite() bool {
	switch {
	case e.Patch != nil && e.Patch.Favorite != nil:
		return *e.Patch.Favorite
	case e.Resolved != nil:
		return e.Resolved.Favorite
	default:
		return e.Capture.Favorite
	}
}

// Tags returns the tag references with unsent edits applied.
func (e *Entry) Tags() []uuid.UUID {
	switch {
	case e.Patch != nil && e.Patch.TagIDs != nil:
		return *e.Patch.TagIDs
	case e.Resolved != nil:
		return e.Resolved.TagIDs
	default:
		return e.Capture.TagIDs
	}
}

// Bags returns the collection references with unsent edits applied.
func (e *Entry) Bags() []uuid.UUID {
	switch {
	case e.Patch != nil && e.Patch.BagIDs != nil:
		return *e.Patch.BagIDs
	case e.Resolved != nil:
		return e.Resolved.BagIDs
	default:
		return e.Capture.BagIDs
	}
}
