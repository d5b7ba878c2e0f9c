package models

import (
	"math"
	"strconv"
	"strings"
)

// Opt is a tri-state patch value. The zero value means "not mentioned by
// this patch"; Set carries a new value; Clear removes the field. This is
// what lets a shallow merge distinguish "leave alone" from "unset".
type Opt[T any] struct {
	present bool
	clear   bool
	value   T
}

// Set builds an Opt carrying v.
func Set[T any](v T) Opt[T] {
	return Opt[T]{present: true, value: v}
}

// Clear builds an Opt that removes the field.
func Clear[T any]() Opt[T] {
	return Opt[T]{present: true, clear: true}
}

// Touched reports whether the patch mentions this field at all.
func (o Opt[T]) Touched() bool { return o.present }

// Value returns the carried value and whether one is carried
// (false for both untouched and cleared).
func (o Opt[T]) Value() (T, bool) {
	if !o.present || o.clear {
		var zero T
		return zero, false
	}
	return o.value, true
}

// ParseAmount turns free-form numeric input into a price/area patch value.
// Unparseable, NaN, infinite or negative input clears the field instead of
// failing: bad input behaves as "absent" and never lands in the draft.
func ParseAmount(s string) Opt[float64] {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return Clear[float64]()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return Clear[float64]()
	}
	return Set(v)
}

// ParseCount is ParseAmount for integer fields (bedrooms, garages, ...).
func ParseCount(s string) Opt[int] {
	s = strings.TrimSpace(s)
	if s == "" {
		return Clear[int]()
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return Clear[int]()
	}
	return Set(v)
}

// Patch is a partial draft update. Every step funnels its edits through one
// of these; fields left untouched are not modified by the merge.
type Patch struct {
	Title        Opt[string]
	Description  Opt[string]
	ListingType  Opt[ListingType]
	PropertyType Opt[string]

	// Prices merges per currency key: only the codes present in the map
	// are touched.
	Prices map[string]Opt[float64]

	ReservePrice Opt[float64]
	RentalPeriod Opt[string]

	Address Opt[string]
	Suburb  Opt[string]
	City    Opt[string]

	Bedrooms   Opt[int]
	Bathrooms  Opt[int]
	Ensuites   Opt[int]
	Toilets    Opt[int]
	FloorArea  Opt[float64]
	LotArea    Opt[float64]
	GardenArea Opt[float64]
	Garages    Opt[int]
	Parking    Opt[int]
	Carports   Opt[int]

	Borehole               Opt[bool]
	BoreholeCapacityLitres Opt[float64]
	SolarPower             Opt[bool]
	SolarCapacityKW        Opt[float64]
	Generator              Opt[bool]
	GeneratorCapacityKVA   Opt[float64]
	StaffQuarters          Opt[bool]
	StaffQuartersRooms     Opt[int]

	Amenities Opt[[]string]

	// Media/document mutations. AddMedia appends (the aggregator assigns
	// order and cover); RemoveMediaURL drops the entry with that URL.
	AddMedia          *MediaEntry
	AddDocument       *DocumentEntry
	RemoveMediaURL    Opt[string]
	RemoveDocumentURL Opt[string]

	UploadsInFlight Opt[bool]
}
