package draft

import (
	"fmt"

	"listflow/catalog"
	"listflow/models"
)

// Validate checks a draft snapshot against the rules the backend will
// enforce, returning every violation so the review step can list them.
// Merge itself never validates; bad intermediate states are normal while
// the user is mid-wizard.
func Validate(d *models.Draft, cat *catalog.Catalog) []error {
	var errs []error

	if d.Title == nil || *d.Title == "" {
		errs = append(errs, fmt.Errorf("title is required"))
	}
	if d.ListingType == nil {
		errs = append(errs, fmt.Errorf("listing type is required"))
	} else if !catalog.ValidListingType(*d.ListingType) {
		errs = append(errs, fmt.Errorf("unknown listing type %q", *d.ListingType))
	}
	if d.PropertyType == nil {
		errs = append(errs, fmt.Errorf("property type is required"))
	} else if cat != nil && !cat.ValidPropertyType(*d.PropertyType) {
		errs = append(errs, fmt.Errorf("unknown property type %q", *d.PropertyType))
	}

	priced := false
	for code, amt := range d.Prices {
		if !catalog.ValidCurrency(code) {
			errs = append(errs, fmt.Errorf("unknown currency %q", code))
			continue
		}
		if amt != nil {
			priced = true
		}
	}
	if !priced {
		errs = append(errs, fmt.Errorf("at least one asking price is required"))
	}

	if d.ListingType != nil {
		switch *d.ListingType {
		case models.ListingTypeAuction:
			if d.RentalPeriod != nil {
				errs = append(errs, fmt.Errorf("rental period is not valid for auctions"))
			}
		case models.ListingTypeRent, models.ListingTypeShortTerm, models.ListingTypeLease:
			if d.ReservePrice != nil {
				errs = append(errs, fmt.Errorf("reserve price is only valid for auctions"))
			}
		default:
			if d.ReservePrice != nil {
				errs = append(errs, fmt.Errorf("reserve price is only valid for auctions"))
			}
			if d.RentalPeriod != nil {
				errs = append(errs, fmt.Errorf("rental period is only valid for rentals"))
			}
		}
	}

	// Capacity fields are only meaningful behind their flag.
	if flagOff(d.Borehole) && d.BoreholeCapacityLitres != nil {
		errs = append(errs, fmt.Errorf("borehole capacity set without borehole"))
	}
	if flagOff(d.SolarPower) && d.SolarCapacityKW != nil {
		errs = append(errs, fmt.Errorf("solar capacity set without solar power"))
	}
	if flagOff(d.Generator) && d.GeneratorCapacityKVA != nil {
		errs = append(errs, fmt.Errorf("generator capacity set without generator"))
	}
	if flagOff(d.StaffQuarters) && d.StaffQuartersRooms != nil {
		errs = append(errs, fmt.Errorf("staff quarters rooms set without staff quarters"))
	}

	covers := 0
	for _, m := range d.Media {
		if m.IsCover {
			covers++
		}
	}
	if d.ImageCount() > 0 && covers != 1 {
		errs = append(errs, fmt.Errorf("expected exactly one cover image, found %d", covers))
	}

	return errs
}

func flagOff(b *bool) bool {
	return b == nil || !*b
}
