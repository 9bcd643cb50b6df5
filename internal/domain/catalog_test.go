package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestCatalogAttributes_Normalize(t *testing.T) {
	t.Parallel()

	attrs := CatalogAttributes{
		Barcode:     strPtr(" 3600-5236 "),
		Name:        "  Cicaplast Baume B5 ",
		Brand:       " La Roche-Posay",
		PAOText:     strPtr("   "),
		BatchCode:   strPtr(" 2024180 "),
		Ingredients: []string{" Aqua ", "", "Glycerin"},
	}
	attrs.Normalize()

	require.NotNil(t, attrs.Barcode)
	assert.Equal(t, "36005236", *attrs.Barcode)
	assert.Equal(t, "Cicaplast Baume B5", attrs.Name)
	assert.Equal(t, "La Roche-Posay", attrs.Brand)
	assert.Nil(t, attrs.PAOText)
	require.NotNil(t, attrs.BatchCode)
	assert.Equal(t, "2024180", *attrs.BatchCode)
	assert.Equal(t, []string{"Aqua", "Glycerin"}, attrs.Ingredients)
}

func TestCatalogAttributes_Normalize_BlankBarcodeIsAbsent(t *testing.T) {
	t.Parallel()

	attrs := CatalogAttributes{Barcode: strPtr(" - "), Name: "Balm"}
	attrs.Normalize()

	assert.Nil(t, attrs.Barcode)
}
