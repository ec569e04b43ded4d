package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for venue documents.
//
// The mapping is designed with these priorities:
//  1. Fast full-text search on venue names with English stemming
//  2. Address text searchable for "near Shinjuku" style queries
//  3. Exact keyword matching for brand, region, and tag filters
//  4. Term vectors enabled on key fields for highlighting
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()

	// Use English analyzer as default for text fields
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields (full-text searchable) ---

	// Name field - primary search target
	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = en.AnalyzerName
	nameFieldMapping.Store = true
	nameFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	// Address - searchable text
	addressFieldMapping := bleve.NewTextFieldMapping()
	addressFieldMapping.Analyzer = simple.Name // No stemming on street names
	addressFieldMapping.Store = true
	addressFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("address", addressFieldMapping)

	// --- Keyword fields (exact match, facetable) ---

	// ID - stored but not analyzed
	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	// Brand - chain names are exact labels (TOHO, 109 Cinemas)
	brandFieldMapping := bleve.NewTextFieldMapping()
	brandFieldMapping.Analyzer = keyword.Name
	brandFieldMapping.Store = true
	brandFieldMapping.IncludeTermVectors = true // For faceting
	docMapping.AddFieldMappingsAt("brand", brandFieldMapping)

	// Region - for filtering and faceting
	regionFieldMapping := bleve.NewTextFieldMapping()
	regionFieldMapping.Analyzer = keyword.Name
	regionFieldMapping.Store = true
	regionFieldMapping.IncludeTermVectors = true // For faceting
	docMapping.AddFieldMappingsAt("region", regionFieldMapping)

	// Tags - premium format labels, keyword analyzer keeps them intact
	// (e.g., "Dolby Cinema" stays one term)
	tagsFieldMapping := bleve.NewTextFieldMapping()
	tagsFieldMapping.Analyzer = keyword.Name
	tagsFieldMapping.Store = true
	tagsFieldMapping.IncludeTermVectors = true // For faceting
	docMapping.AddFieldMappingsAt("tags", tagsFieldMapping)

	// --- Numeric fields ---

	// Coordinates - stored for display only
	latFieldMapping := bleve.NewNumericFieldMapping()
	latFieldMapping.Store = true
	latFieldMapping.Index = false
	docMapping.AddFieldMappingsAt("lat", latFieldMapping)

	lngFieldMapping := bleve.NewNumericFieldMapping()
	lngFieldMapping.Store = true
	lngFieldMapping.Index = false
	docMapping.AddFieldMappingsAt("lng", lngFieldMapping)

	// Timestamps - for sorting by recency
	createdAtFieldMapping := bleve.NewNumericFieldMapping()
	createdAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("created_at", createdAtFieldMapping)

	updatedAtFieldMapping := bleve.NewNumericFieldMapping()
	updatedAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("updated_at", updatedAtFieldMapping)

	// Register the document mapping
	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
