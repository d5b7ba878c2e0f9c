package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"listflow/catalog"
	"listflow/config"
	"listflow/draft"
	"listflow/httputil"
	"listflow/identity"
	"listflow/logging"
	"listflow/models"
	"listflow/storage"
	"listflow/submit"
	"listflow/uploader"
	"listflow/wizard"
)

var (
	manifestPath = flag.String("manifest", "listing.yaml", "Listing manifest to submit")
	userID       = flag.String("user", "", "Authenticated user id (overrides SUPABASE_ACCESS_TOKEN lookup)")
	dryRun       = flag.Bool("dry-run", false, "Walk the wizard without touching remote services")
)

// Manifest describes one listing to compose and submit. Numeric fields are
// strings on purpose: they go through the same lenient parsing the form
// inputs use.
type Manifest struct {
	Title        string `yaml:"title"`
	Description  string `yaml:"description"`
	ListingType  string `yaml:"listing_type"`
	PropertyType string `yaml:"property_type"`

	Prices       map[string]string `yaml:"prices"`
	ReservePrice string            `yaml:"reserve_price"`
	RentalPeriod string            `yaml:"rental_period"`

	Address string `yaml:"address"`
	Suburb  string `yaml:"suburb"`
	City    string `yaml:"city"`

	Bedrooms   string `yaml:"bedrooms"`
	Bathrooms  string `yaml:"bathrooms"`
	Ensuites   string `yaml:"ensuites"`
	Toilets    string `yaml:"toilets"`
	FloorArea  string `yaml:"floor_area"`
	LotArea    string `yaml:"lot_area"`
	GardenArea string `yaml:"garden_area"`
	Garages    string `yaml:"garages"`
	Parking    string `yaml:"parking"`
	Carports   string `yaml:"carports"`

	Borehole               bool   `yaml:"borehole"`
	BoreholeCapacityLitres string `yaml:"borehole_capacity_litres"`
	SolarPower             bool   `yaml:"solar_power"`
	SolarCapacityKW        string `yaml:"solar_capacity_kw"`
	Generator              bool   `yaml:"generator"`
	GeneratorCapacityKVA   string `yaml:"generator_capacity_kva"`
	StaffQuarters          bool   `yaml:"staff_quarters"`
	StaffQuartersRooms     string `yaml:"staff_quarters_rooms"`

	Amenities []string `yaml:"amenities"`

	Images    []string `yaml:"images"`
	Videos    []string `yaml:"videos"`
	Documents []string `yaml:"documents"`
}

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logging.Setup(cfg.LogPath)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	manifest, err := loadManifest(*manifestPath)
	if err != nil {
		log.Fatalf("Failed to load manifest: %v", err)
	}
	log.Printf("Composing listing: %s", manifest.Title)

	ctx := context.Background()
	clients := httputil.NewClients()

	ids := buildIdentity(cfg, clients)
	store, creator := buildBackends(ctx, cfg, clients)

	agg := draft.NewAggregator()
	orch := uploader.NewOrchestrator(store, ids, agg, cfg.Buckets, cfg.Upload.Concurrency)
	defer orch.Close()
	coord := submit.NewCoordinator(ids, creator, cat)

	ctrl := wizard.New(agg, coord)
	if cfg.JournalPath != "" {
		journal, jerr := storage.OpenJournal(cfg.JournalPath)
		if jerr != nil {
			log.Fatalf("Failed to open journal: %v", jerr)
		}
		defer journal.Close()
		ctrl.WithJournal(journal)
		log.Printf("Draft journal: %s (session %s)", cfg.JournalPath, ctrl.SessionID())
	}

	go logEvents(orch.Subscribe())

	if err := walk(ctx, ctrl, orch, manifest); err != nil {
		log.Fatalf("Composition failed: %v", err)
	}

	id, err := ctrl.Submit(ctx)
	if err != nil {
		log.Fatalf("Submission failed: %v", err)
	}
	log.Printf("Listing created: %s", id)
}

// walk applies one patch per step, advancing between them, and runs the
// uploads on the media step.
func walk(ctx context.Context, ctrl *wizard.Controller, orch *uploader.Orchestrator, m *Manifest) error {
	steps := []models.Patch{
		identityPatch(m),
		financialsPatch(m),
		locationPatch(m),
		specificationsPatch(m),
		amenitiesPatch(m),
	}
	agg := ctrl.Draft()

	for _, patch := range steps {
		log.Printf("Step %d: %s", ctrl.CurrentStep().Index, ctrl.CurrentStep().Name)
		agg.Apply(patch)
		if err := ctrl.Advance(); err != nil {
			return err
		}
	}

	// Media step
	log.Printf("Step %d: %s", ctrl.CurrentStep().Index, ctrl.CurrentStep().Name)
	if err := enqueueFiles(ctx, orch, m.Images, models.CategoryImage); err != nil {
		return err
	}
	if err := enqueueFiles(ctx, orch, m.Videos, models.CategoryVideo); err != nil {
		return err
	}
	if err := enqueueFiles(ctx, orch, m.Documents, models.CategoryDocument); err != nil {
		return err
	}
	orch.Wait()

	if err := ctrl.Advance(); err != nil {
		return err
	}
	log.Printf("Step %d: %s", ctrl.CurrentStep().Index, ctrl.CurrentStep().Name)

	snap := agg.Snapshot()
	log.Printf("Review: %d media, %d documents, %d prices", len(snap.Media), len(snap.Documents), len(snap.Prices))
	return nil
}

var openFile = os.Open

func enqueueFiles(ctx context.Context, orch *uploader.Orchestrator, paths []string, category models.UploadCategory) error {
	if len(paths) == 0 {
		return nil
	}
	files := make([]models.FileRef, 0, len(paths))
	closeAll := func() {
		for _, f := range files {
			if c, ok := f.Reader.(io.Closer); ok {
				c.Close()
			}
		}
	}
	for _, p := range paths {
		f, err := openFile(p)
		if err != nil {
			closeAll()
			return err
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			closeAll()
			return err
		}
		files = append(files, models.FileRef{
			Name:   filepath.Base(p),
			Size:   info.Size(),
			Reader: f,
		})
	}
	log.Printf("Uploading %d %s file(s)", len(files), category)
	if _, err := orch.Enqueue(ctx, files, category); err != nil {
		closeAll()
		return err
	}
	return nil
}

func identityPatch(m *Manifest) models.Patch {
	p := models.Patch{
		Title:       models.Set(m.Title),
		Description: models.Set(m.Description),
	}
	if m.ListingType != "" {
		p.ListingType = models.Set(models.ListingType(m.ListingType))
	}
	if m.PropertyType != "" {
		p.PropertyType = models.Set(m.PropertyType)
	}
	return p
}

func financialsPatch(m *Manifest) models.Patch {
	p := models.Patch{Prices: make(map[string]models.Opt[float64])}
	for code, amount := range m.Prices {
		p.Prices[code] = models.ParseAmount(amount)
	}
	if m.ReservePrice != "" {
		p.ReservePrice = models.ParseAmount(m.ReservePrice)
	}
	if m.RentalPeriod != "" {
		p.RentalPeriod = models.Set(m.RentalPeriod)
	}
	return p
}

func locationPatch(m *Manifest) models.Patch {
	return models.Patch{
		Address: models.Set(m.Address),
		Suburb:  models.Set(m.Suburb),
		City:    models.Set(m.City),
	}
}

func specificationsPatch(m *Manifest) models.Patch {
	return models.Patch{
		Bedrooms:   models.ParseCount(m.Bedrooms),
		Bathrooms:  models.ParseCount(m.Bathrooms),
		Ensuites:   models.ParseCount(m.Ensuites),
		Toilets:    models.ParseCount(m.Toilets),
		FloorArea:  models.ParseAmount(m.FloorArea),
		LotArea:    models.ParseAmount(m.LotArea),
		GardenArea: models.ParseAmount(m.GardenArea),
		Garages:    models.ParseCount(m.Garages),
		Parking:    models.ParseCount(m.Parking),
		Carports:   models.ParseCount(m.Carports),
	}
}

func amenitiesPatch(m *Manifest) models.Patch {
	p := models.Patch{
		Amenities:     models.Set(m.Amenities),
		Borehole:      models.Set(m.Borehole),
		SolarPower:    models.Set(m.SolarPower),
		Generator:     models.Set(m.Generator),
		StaffQuarters: models.Set(m.StaffQuarters),
	}
	if m.Borehole {
		p.BoreholeCapacityLitres = models.ParseAmount(m.BoreholeCapacityLitres)
	}
	if m.SolarPower {
		p.SolarCapacityKW = models.ParseAmount(m.SolarCapacityKW)
	}
	if m.Generator {
		p.GeneratorCapacityKVA = models.ParseAmount(m.GeneratorCapacityKVA)
	}
	if m.StaffQuarters {
		p.StaffQuartersRooms = models.ParseCount(m.StaffQuartersRooms)
	}
	return p
}

func buildIdentity(cfg *config.Config, clients *httputil.Clients) identity.Provider {
	if *userID != "" {
		return identity.Static{ID: *userID}
	}
	return &identity.SupabaseSession{
		URL:         cfg.Supabase.URL,
		AnonKey:     cfg.Supabase.AnonKey,
		AccessToken: os.Getenv("SUPABASE_ACCESS_TOKEN"),
		Client:      clients.API,
	}
}

func buildBackends(ctx context.Context, cfg *config.Config, clients *httputil.Clients) (uploader.ObjectStore, submit.ListingCreator) {
	if *dryRun {
		log.Println("Dry run: uploads and creation are no-ops")
		return uploader.NoOpStore{}, dryRunCreator{}
	}

	var store uploader.ObjectStore
	supabase := storage.NewSupabaseStore(&cfg.Supabase, clients.Upload)
	switch cfg.StorageBackend {
	case "s3":
		s3Store, err := storage.NewS3Store(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("Failed to init S3: %v", err)
		}
		store = s3Store
	default:
		store = supabase
	}

	var creator submit.ListingCreator
	switch cfg.ListingBackend {
	case "postgres":
		pg, err := storage.NewPostgresCreator(ctx, cfg.Supabase.DBURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		creator = pg
	default:
		creator = supabase
	}
	return store, creator
}

type dryRunCreator struct{}

func (dryRunCreator) CreateListing(ctx context.Context, payload *models.ListingPayload) (string, error) {
	log.Printf("Dry run: would create %s (%s) with %d media, %d documents",
		payload.Slug, payload.Reference, len(payload.Media), len(payload.Documents))
	return "dry-run", nil
}

func logEvents(events <-chan models.TaskEvent) {
	for ev := range events {
		switch ev.Status {
		case models.TaskStatusCompleted:
			log.Printf("Uploaded %s -> %s", ev.FileName, ev.URL)
		case models.TaskStatusError:
			log.Printf("Upload failed %s: %v", ev.FileName, ev.Err)
		}
	}
}

func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
