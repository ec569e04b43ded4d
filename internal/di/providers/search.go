package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/marqueeapp/marquee-server/internal/config"
	"github.com/marqueeapp/marquee-server/internal/logger"
	"github.com/marqueeapp/marquee-server/internal/search"
	"github.com/marqueeapp/marquee-server/internal/service"
	"github.com/marqueeapp/marquee-server/internal/store"
)

// SearchIndexHandle wraps the venue search index with shutdown capability.
type SearchIndexHandle struct {
	*search.VenueIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve venue index and wires it to the
// store so venue writes are indexed as they happen.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	index, err := search.NewVenueIndex(search.Options{
		DataPath: cfg.Data.BasePath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	storeHandle.SetSearchIndexer(index)

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{VenueIndex: index}, nil
}

// TriggerSearchReindexIfNeeded rebuilds an empty index when the store
// already holds venues. Happens after an index wipe or version bump.
// Should be called after all services are wired.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	venueService := do.MustInvoke[*service.VenueService](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, _ := venueService.DocumentCount()
	if docCount > 0 {
		return
	}

	ctx := context.Background()
	venues, err := storeHandle.ListVenues(ctx, store.VenueFilter{})
	if err != nil || len(venues) == 0 {
		return
	}

	log.Info("Search index is empty but venues exist, triggering initial reindex",
		"venue_count", len(venues),
	)

	go func() {
		reindexCtx := context.Background()
		if count, err := venueService.ReindexAll(reindexCtx); err != nil {
			log.Error("Initial search reindex failed", "error", err)
		} else {
			log.Info("Initial search reindex completed", "documents", count)
		}
	}()
}
