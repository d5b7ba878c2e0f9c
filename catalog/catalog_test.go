package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"listflow/models"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	if !c.ValidPropertyType("house") {
		t.Fatalf("expected house in default property types")
	}
	if c.ValidPropertyType("castle") {
		t.Fatalf("castle should not be a property type")
	}
	if len(CurrencyCodes) != 9 {
		t.Fatalf("expected 9 currency codes, got %d", len(CurrencyCodes))
	}
	if !ValidCurrency("USD") || ValidCurrency("XXX") {
		t.Fatalf("currency validation broken")
	}
	if !ValidListingType(models.ListingTypeAuction) {
		t.Fatalf("auction should be a listing type")
	}
	if ValidListingType("timeshare") {
		t.Fatalf("timeshare should not be a listing type")
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if !c.ValidPropertyType("house") {
		t.Fatalf("expected defaults on missing file")
	}
}

func TestLoadOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := []byte("property_types:\n  - igloo\n  - yurt\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !c.ValidPropertyType("igloo") || c.ValidPropertyType("house") {
		t.Fatalf("override not applied: %+v", c.PropertyTypes)
	}
	if len(c.AmenityCategories) == 0 {
		t.Fatalf("amenity categories should keep defaults when absent from the file")
	}
}
