// Package search queries the hosted vector index for product candidates.
package search

import "context"

// Filter narrows a similarity query with structured catalogue attributes.
// Zero values are ignored.
type Filter struct {
	Category    string
	Subcategory string
	Color       string
	Fabric      string
	Technique   string
	Pattern     string
	PriceMin    float64
	PriceMax    float64
}

// Candidate is one product record returned by the index, sourced verbatim
// from the stored payload.
type Candidate struct {
	ID              string
	ProductID       string
	Name            string
	Category        string
	Subcategory     string
	Color           string
	Fabric          string
	Technique       string
	Pattern         string
	Description     string
	ColorsAvailable string
	Price           float64
	InStock         bool
	Score           float64
}

// Searcher is the vector-search contract. An empty result set is a valid,
// non-error outcome; errors mean the index could not be queried at all.
type Searcher interface {
	Search(ctx context.Context, query string, filter Filter, limit int) ([]Candidate, error)
	Close() error
}
