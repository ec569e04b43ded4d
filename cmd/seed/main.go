// Package main provides a tool to seed the venue catalog from a JSON file.
//
// The catalog file is an array of venue records. Records without an ID get
// one generated; records with an ID matching an existing venue update it in
// place, so re-running the seeder against a newer catalog is safe.
//
// Usage:
//
//	go run ./cmd/seed --data-path ~/Marquee/data --venues ./catalog/venues.json
//	go run ./cmd/seed --venues ./catalog/venues.json --dry-run
package main

import (
	"context"
	"encoding/json/v2"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/marqueeapp/marquee-server/internal/domain"
	"github.com/marqueeapp/marquee-server/internal/id"
	"github.com/marqueeapp/marquee-server/internal/store"
)

var (
	dataPath   = flag.String("data-path", "", "Base data path (default: ~/Marquee/data, DATA_PATH)")
	venuesPath = flag.String("venues", "", "Path to the venue catalog JSON file (VENUES_PATH)")
	dryRun     = flag.Bool("dry-run", false, "Parse and validate the catalog without writing")
)

// catalogVenue is one record in the catalog file.
type catalogVenue struct {
	ID      string   `json:"id,omitempty"`
	Name    string   `json:"name"`
	Brand   string   `json:"brand,omitempty"`
	Region  string   `json:"region,omitempty"`
	Address string   `json:"address,omitempty"`
	Lat     float64  `json:"lat"`
	Lng     float64  `json:"lng"`
	Tags    []string `json:"tags"`
}

func main() {
	flag.Parse()

	catalogFile := *venuesPath
	if catalogFile == "" {
		catalogFile = os.Getenv("VENUES_PATH")
	}
	if catalogFile == "" {
		log.Fatal("No catalog file given. Use --venues or VENUES_PATH.")
	}

	data, err := os.ReadFile(catalogFile) //#nosec G304 -- catalog path comes from the operator
	if err != nil {
		log.Fatalf("Failed to read catalog: %v", err)
	}

	var records []catalogVenue
	if err := json.Unmarshal(data, &records); err != nil {
		log.Fatalf("Failed to parse catalog: %v", err)
	}
	if len(records) == 0 {
		log.Fatal("Catalog is empty")
	}

	for i, rec := range records {
		if err := validateRecord(rec); err != nil {
			log.Fatalf("Record %d (%q): %v", i, rec.Name, err)
		}
	}

	fmt.Printf("Parsed %d venues from %s\n", len(records), catalogFile)

	if *dryRun {
		fmt.Println("Dry run, nothing written.")
		return
	}

	base := *dataPath
	if base == "" {
		base = os.Getenv("DATA_PATH")
	}
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to resolve home directory: %v", err)
		}
		base = filepath.Join(home, "Marquee", "data")
	}

	storePath := filepath.Join(base, "store")
	fmt.Printf("Opening store at: %s\n", storePath)

	s, err := store.New(storePath, nil, store.NewNoopEmitter())
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	created, updated := 0, 0
	for _, rec := range records {
		venue := &domain.Venue{
			Name:    rec.Name,
			Brand:   rec.Brand,
			Region:  rec.Region,
			Address: rec.Address,
			Lat:     rec.Lat,
			Lng:     rec.Lng,
			Tags:    rec.Tags,
		}

		if rec.ID != "" {
			venue.ID = rec.ID
			if existing, err := s.GetVenue(ctx, rec.ID); err == nil {
				venue.CreatedAt = existing.CreatedAt
				venue.Touch()
				updated++
			} else {
				venue.InitTimestamps()
				created++
			}
		} else {
			venueID, err := id.Generate("venue")
			if err != nil {
				log.Fatalf("Failed to generate venue ID: %v", err)
			}
			venue.ID = venueID
			venue.InitTimestamps()
			created++
		}

		if err := s.UpsertVenue(ctx, venue); err != nil {
			log.Fatalf("Failed to write venue %q: %v", venue.Name, err)
		}
	}

	total, err := s.CountVenues(ctx)
	if err != nil {
		log.Fatalf("Failed to count venues: %v", err)
	}

	// The server rebuilds the search index on startup when it is empty,
	// and indexes incrementally while running, so no reindex here.
	fmt.Printf("Done. %d created, %d updated, %d venues total.\n", created, updated, total)
}

func validateRecord(rec catalogVenue) error {
	if rec.Name == "" {
		return fmt.Errorf("name is required")
	}
	if rec.Lat < -90 || rec.Lat > 90 {
		return fmt.Errorf("latitude out of range: %f", rec.Lat)
	}
	if rec.Lng < -180 || rec.Lng > 180 {
		return fmt.Errorf("longitude out of range: %f", rec.Lng)
	}
	if len(rec.Tags) == 0 {
		return fmt.Errorf("at least one premium format tag is required")
	}
	return nil
}
