// Package draft owns the single mutable Draft Record for one composition
// session. Every step and every completing upload task mutates the draft
// through Aggregator.Apply, which serializes merges under one lock so two
// tasks completing in the same tick can never lose each other's updates.
package draft

import (
	"math"
	"sync"

	"listflow/models"
)

// PrimaryCurrency is the price the price-per-area derivation reads.
const PrimaryCurrency = "USD"

type Aggregator struct {
	mu sync.Mutex
	d  models.Draft

	// saver, when set, receives a snapshot after every merge (autosave).
	saver func(models.Draft)
}

func NewAggregator() *Aggregator {
	return &Aggregator{d: models.Draft{Prices: make(map[string]*float64)}}
}

// NewAggregatorFrom seeds the aggregator with a restored draft.
func NewAggregatorFrom(d models.Draft) *Aggregator {
	if d.Prices == nil {
		d.Prices = make(map[string]*float64)
	}
	a := &Aggregator{d: d}
	a.rederive()
	return a
}

// OnMerge registers a hook invoked with a snapshot after each merge.
func (a *Aggregator) OnMerge(fn func(models.Draft)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saver = fn
}

// Snapshot returns a deep copy of the current draft.
func (a *Aggregator) Snapshot() models.Draft {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.d.Clone()
}

// UploadsInFlight reports the transient upload flag.
func (a *Aggregator) UploadsInFlight() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.d.UploadsInFlight
}

// Apply shallow-merges the patch into the draft: fields the patch touches
// are overwritten or cleared, everything else is untouched. Price-per-area
// is re-derived whenever the merge touches the primary asking price or the
// floor area. Returns a snapshot of the merged draft.
func (a *Aggregator) Apply(p models.Patch) models.Draft {
	a.mu.Lock()

	applyOpt(&a.d.Title, p.Title)
	applyOpt(&a.d.Description, p.Description)
	applyOpt(&a.d.ListingType, p.ListingType)
	applyOpt(&a.d.PropertyType, p.PropertyType)
	applyOpt(&a.d.ReservePrice, p.ReservePrice)
	applyOpt(&a.d.RentalPeriod, p.RentalPeriod)
	applyOpt(&a.d.Address, p.Address)
	applyOpt(&a.d.Suburb, p.Suburb)
	applyOpt(&a.d.City, p.City)
	applyOpt(&a.d.Bedrooms, p.Bedrooms)
	applyOpt(&a.d.Bathrooms, p.Bathrooms)
	applyOpt(&a.d.Ensuites, p.Ensuites)
	applyOpt(&a.d.Toilets, p.Toilets)
	applyOpt(&a.d.FloorArea, p.FloorArea)
	applyOpt(&a.d.LotArea, p.LotArea)
	applyOpt(&a.d.GardenArea, p.GardenArea)
	applyOpt(&a.d.Garages, p.Garages)
	applyOpt(&a.d.Parking, p.Parking)
	applyOpt(&a.d.Carports, p.Carports)
	applyOpt(&a.d.Borehole, p.Borehole)
	applyOpt(&a.d.BoreholeCapacityLitres, p.BoreholeCapacityLitres)
	applyOpt(&a.d.SolarPower, p.SolarPower)
	applyOpt(&a.d.SolarCapacityKW, p.SolarCapacityKW)
	applyOpt(&a.d.Generator, p.Generator)
	applyOpt(&a.d.GeneratorCapacityKVA, p.GeneratorCapacityKVA)
	applyOpt(&a.d.StaffQuarters, p.StaffQuarters)
	applyOpt(&a.d.StaffQuartersRooms, p.StaffQuartersRooms)

	if amenities, ok := p.Amenities.Value(); ok {
		a.d.Amenities = append([]string(nil), amenities...)
	} else if p.Amenities.Touched() {
		a.d.Amenities = nil
	}

	touchedDerivation := p.FloorArea.Touched()
	for code, amt := range p.Prices {
		if code == PrimaryCurrency {
			touchedDerivation = true
		}
		if v, ok := amt.Value(); ok {
			a.d.Prices[code] = &v
		} else if amt.Touched() {
			delete(a.d.Prices, code)
		}
	}

	if p.AddMedia != nil {
		a.appendMedia(*p.AddMedia)
	}
	if p.AddDocument != nil {
		a.d.Documents = append(a.d.Documents, *p.AddDocument)
	}
	if url, ok := p.RemoveMediaURL.Value(); ok {
		a.removeMedia(url)
	}
	if url, ok := p.RemoveDocumentURL.Value(); ok {
		a.removeDocument(url)
	}

	if inflight, ok := p.UploadsInFlight.Value(); ok {
		a.d.UploadsInFlight = inflight
	}

	if touchedDerivation {
		a.rederive()
	}

	snap := a.d.Clone()
	saver := a.saver
	a.mu.Unlock()

	if saver != nil {
		saver(snap)
	}
	return snap
}

// rederive recomputes price-per-area from the primary asking price and the
// floor area. Both must be present; a zero or negative area would derive a
// nonsense value, so it counts as absent. Pure in the draft: calling it
// twice yields the same result.
func (a *Aggregator) rederive() {
	price := a.d.Prices[PrimaryCurrency]
	area := a.d.FloorArea
	if price == nil || area == nil || *area <= 0 {
		a.d.PricePerArea = nil
		return
	}
	v := *price / *area
	if math.IsNaN(v) || math.IsInf(v, 0) {
		a.d.PricePerArea = nil
		return
	}
	a.d.PricePerArea = &v
}

// appendMedia assigns the next order slot and decides cover: the first
// image merged becomes cover regardless of which file was enqueued first.
func (a *Aggregator) appendMedia(m models.MediaEntry) {
	m.Order = len(a.d.Media)
	m.IsCover = false
	if m.Type == models.MediaTypeImage && a.d.ImageCount() == 0 {
		m.IsCover = true
		url := m.URL
		a.d.CoverImageURL = &url
	}
	a.d.Media = append(a.d.Media, m)
}

func (a *Aggregator) removeMedia(url string) {
	kept := a.d.Media[:0]
	removedCover := false
	for _, m := range a.d.Media {
		if m.URL == url {
			if m.IsCover {
				removedCover = true
			}
			continue
		}
		kept = append(kept, m)
	}
	a.d.Media = kept
	for i := range a.d.Media {
		a.d.Media[i].Order = i
	}
	if removedCover {
		a.promoteCover()
	}
}

// promoteCover makes the first remaining image the cover, or clears the
// pointer when no images are left.
func (a *Aggregator) promoteCover() {
	for i := range a.d.Media {
		if a.d.Media[i].Type == models.MediaTypeImage {
			a.d.Media[i].IsCover = true
			url := a.d.Media[i].URL
			a.d.CoverImageURL = &url
			return
		}
	}
	a.d.CoverImageURL = nil
}

func (a *Aggregator) removeDocument(url string) {
	kept := a.d.Documents[:0]
	for _, doc := range a.d.Documents {
		if doc.URL != url {
			kept = append(kept, doc)
		}
	}
	a.d.Documents = kept
}

func applyOpt[T any](dst **T, o models.Opt[T]) {
	if !o.Touched() {
		return
	}
	if v, ok := o.Value(); ok {
		*dst = &v
	} else {
		*dst = nil
	}
}
