package models

import "encoding/json"

// ListingType classifies the kind of transaction a listing offers.
type ListingType string

const (
	ListingTypeSale      ListingType = "sale"
	ListingTypeRent      ListingType = "rent"
	ListingTypeShortTerm ListingType = "short_term"
	ListingTypeLease     ListingType = "lease"
	ListingTypeAuction   ListingType = "auction"
)

// MediaType distinguishes entries in a draft's media list.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// UploadCategory selects the target bucket for an upload.
type UploadCategory string

const (
	CategoryImage    UploadCategory = "image"
	CategoryVideo    UploadCategory = "video"
	CategoryDocument UploadCategory = "document"
)

// MediaEntry is one image or video attached to a draft.
// Invariant: at most one entry has IsCover set, and if any image exists
// exactly one image is the cover.
type MediaEntry struct {
	URL     string    `json:"url"`
	Type    MediaType `json:"type"`
	Order   int       `json:"order"`
	IsCover bool      `json:"is_cover"`
}

// DocumentEntry is one document (title deed, floor plan, ...) attached to a draft.
type DocumentEntry struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Draft is the in-progress listing being composed across wizard steps.
// It has no server id until submission. Optional fields are pointers:
// nil means the field was never set or has been cleared.
type Draft struct {
	Title        *string      `json:"title,omitempty"`
	Description  *string      `json:"description,omitempty"`
	ListingType  *ListingType `json:"listing_type,omitempty"`
	PropertyType *string      `json:"property_type,omitempty"`

	// Prices maps a currency code to an asking amount. Codes come from
	// catalog.CurrencyCodes; at least one amount must be set before submission.
	Prices map[string]*float64 `json:"prices,omitempty"`

	// ReservePrice is only meaningful when ListingType is auction.
	ReservePrice *float64 `json:"reserve_price,omitempty"`
	// RentalPeriod is only meaningful for rent, short_term and lease listings.
	RentalPeriod *string `json:"rental_period,omitempty"`

	Address *string `json:"address,omitempty"`
	Suburb  *string `json:"suburb,omitempty"`
	City    *string `json:"city,omitempty"`

	Bedrooms   *int     `json:"bedrooms,omitempty"`
	Bathrooms  *int     `json:"bathrooms,omitempty"`
	Ensuites   *int     `json:"ensuites,omitempty"`
	Toilets    *int     `json:"toilets,omitempty"`
	FloorArea  *float64 `json:"floor_area,omitempty"`
	LotArea    *float64 `json:"lot_area,omitempty"`
	GardenArea *float64 `json:"garden_area,omitempty"`
	Garages    *int     `json:"garages,omitempty"`
	Parking    *int     `json:"parking,omitempty"`
	Carports   *int     `json:"carports,omitempty"`

	// Infrastructure flags, each gating a capacity field that is only
	// meaningful while its flag is true.
	Borehole               *bool    `json:"borehole,omitempty"`
	BoreholeCapacityLitres *float64 `json:"borehole_capacity_litres,omitempty"`
	SolarPower             *bool    `json:"solar_power,omitempty"`
	SolarCapacityKW        *float64 `json:"solar_capacity_kw,omitempty"`
	Generator              *bool    `json:"generator,omitempty"`
	GeneratorCapacityKVA   *float64 `json:"generator_capacity_kva,omitempty"`
	StaffQuarters          *bool    `json:"staff_quarters,omitempty"`
	StaffQuartersRooms     *int     `json:"staff_quarters_rooms,omitempty"`

	Amenities []string `json:"amenities,omitempty"`

	// PricePerArea is derived from the primary-currency asking price and
	// FloorArea. Never set directly; the aggregator recomputes it.
	PricePerArea *float64 `json:"price_per_area,omitempty"`

	CoverImageURL *string         `json:"cover_image_url,omitempty"`
	Media         []MediaEntry    `json:"media,omitempty"`
	Documents     []DocumentEntry `json:"documents,omitempty"`

	// UploadsInFlight is transient composition state consulted by the
	// wizard's advance gate. It is stripped before submission.
	UploadsInFlight bool `json:"uploads_in_flight,omitempty"`
}

// ImageCount reports how many image-type media entries the draft holds.
func (d *Draft) ImageCount() int {
	n := 0
	for _, m := range d.Media {
		if m.Type == MediaTypeImage {
			n++
		}
	}
	return n
}

// Clone returns a deep copy safe to hand outside the aggregator's lock.
func (d *Draft) Clone() Draft {
	out := *d
	if d.Prices != nil {
		out.Prices = make(map[string]*float64, len(d.Prices))
		for code, amt := range d.Prices {
			if amt != nil {
				v := *amt
				out.Prices[code] = &v
			} else {
				out.Prices[code] = nil
			}
		}
	}
	out.Amenities = append([]string(nil), d.Amenities...)
	out.Media = append([]MediaEntry(nil), d.Media...)
	out.Documents = append([]DocumentEntry(nil), d.Documents...)
	clonePtr(&out.Title, d.Title)
	clonePtr(&out.Description, d.Description)
	clonePtr(&out.ListingType, d.ListingType)
	clonePtr(&out.PropertyType, d.PropertyType)
	clonePtr(&out.ReservePrice, d.ReservePrice)
	clonePtr(&out.RentalPeriod, d.RentalPeriod)
	clonePtr(&out.Address, d.Address)
	clonePtr(&out.Suburb, d.Suburb)
	clonePtr(&out.City, d.City)
	clonePtr(&out.Bedrooms, d.Bedrooms)
	clonePtr(&out.Bathrooms, d.Bathrooms)
	clonePtr(&out.Ensuites, d.Ensuites)
	clonePtr(&out.Toilets, d.Toilets)
	clonePtr(&out.FloorArea, d.FloorArea)
	clonePtr(&out.LotArea, d.LotArea)
	clonePtr(&out.GardenArea, d.GardenArea)
	clonePtr(&out.Garages, d.Garages)
	clonePtr(&out.Parking, d.Parking)
	clonePtr(&out.Carports, d.Carports)
	clonePtr(&out.Borehole, d.Borehole)
	clonePtr(&out.BoreholeCapacityLitres, d.BoreholeCapacityLitres)
	clonePtr(&out.SolarPower, d.SolarPower)
	clonePtr(&out.SolarCapacityKW, d.SolarCapacityKW)
	clonePtr(&out.Generator, d.Generator)
	clonePtr(&out.GeneratorCapacityKVA, d.GeneratorCapacityKVA)
	clonePtr(&out.StaffQuarters, d.StaffQuarters)
	clonePtr(&out.StaffQuartersRooms, d.StaffQuartersRooms)
	clonePtr(&out.PricePerArea, d.PricePerArea)
	clonePtr(&out.CoverImageURL, d.CoverImageURL)
	return out
}

func clonePtr[T any](dst **T, src *T) {
	if src == nil {
		*dst = nil
		return
	}
	v := *src
	*dst = &v
}

// ListingPayload is the outgoing shape of the single create call.
// Transient composition fields are already stripped.
type ListingPayload struct {
	Slug      string          `json:"slug"`
	Reference string          `json:"reference"`
	OwnerID   string          `json:"owner_id"`
	Property  json.RawMessage `json:"property"`
	Media     []MediaEntry    `json:"media"`
	Documents []DocumentEntry `json:"documents"`
}
