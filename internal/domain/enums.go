package domain

// CatalogSource records how a catalog record entered the shared catalog.
type CatalogSource string

const (
	// CatalogSourceBarcode records are keyed by a unique barcode.
	CatalogSourceBarcode CatalogSource = "BARCODE"
	// CatalogSourceManual records were typed in without a barcode and are
	// never deduplicated against each other.
	CatalogSourceManual CatalogSource = "MANUAL"
)

func (s CatalogSource) String() string { return string(s) }

func (s CatalogSource) IsValid() bool {
	switch s {
	case CatalogSourceBarcode, CatalogSourceManual:
		return true
	}
	return false
}

// ReconcileCause identifies the owned-instance mutation that triggered a
// quantity recompute.
type ReconcileCause string

const (
	ReconcileCauseAdded   ReconcileCause = "ADDED"
	ReconcileCauseRemoved ReconcileCause = "REMOVED"
	ReconcileCauseRepair  ReconcileCause = "REPAIR"
)

func (c ReconcileCause) String() string { return string(c) }
