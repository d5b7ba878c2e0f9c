// Package catalog holds the fixed enumerations step components consume
// read-only: property types, listing types, currency codes and amenity
// categories. Pipeline logic never depends on the exact contents, so a
// deployment may override the lists from a yaml file.
package catalog

import (
	"os"

	"gopkg.in/yaml.v3"

	"listflow/models"
)

var defaultPropertyTypes = []string{
	"house", "townhouse", "apartment", "cluster", "cottage",
	"stand", "farm", "commercial", "industrial", "warehouse",
}

// CurrencyCodes is the fixed set of currencies a draft may price in.
var CurrencyCodes = []string{
	"USD", "ZWG", "ZAR", "BWP", "GBP", "EUR", "AUD", "CAD", "CNY",
}

var listingTypes = []models.ListingType{
	models.ListingTypeSale,
	models.ListingTypeRent,
	models.ListingTypeShortTerm,
	models.ListingTypeLease,
	models.ListingTypeAuction,
}

var defaultAmenityCategories = map[string][]string{
	"security": {"perimeter_wall", "electric_fence", "alarm", "guard_house", "gated_community"},
	"outdoor":  {"swimming_pool", "braai_area", "tennis_court", "mature_trees", "irrigation"},
	"indoor":   {"fitted_kitchen", "walk_in_closet", "fireplace", "study", "pantry"},
	"services": {"municipal_water", "city_power", "fibre", "septic_tank"},
}

// Catalog bundles the enumerations handed to step components.
type Catalog struct {
	PropertyTypes     []string            `yaml:"property_types"`
	AmenityCategories map[string][]string `yaml:"amenity_categories"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{
		PropertyTypes:     append([]string(nil), defaultPropertyTypes...),
		AmenityCategories: defaultAmenityCategories,
	}
}

// Load reads a yaml override file. Missing file falls back to the
// defaults; lists absent from the file keep their default contents.
func Load(path string) (*Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, err
	}
	var override Catalog
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, err
	}
	if len(override.PropertyTypes) > 0 {
		c.PropertyTypes = override.PropertyTypes
	}
	if len(override.AmenityCategories) > 0 {
		c.AmenityCategories = override.AmenityCategories
	}
	return c, nil
}

// ValidPropertyType reports whether t is in the catalog.
func (c *Catalog) ValidPropertyType(t string) bool {
	for _, pt := range c.PropertyTypes {
		if pt == t {
			return true
		}
	}
	return false
}

// ValidListingType reports whether t is a known listing type.
func ValidListingType(t models.ListingType) bool {
	for _, lt := range listingTypes {
		if lt == t {
			return true
		}
	}
	return false
}

// ValidCurrency reports whether code is one of the fixed currency codes.
func ValidCurrency(code string) bool {
	for _, c := range CurrencyCodes {
		if c == code {
			return true
		}
	}
	return false
}
