package search

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"
)

// Config holds Qdrant connection configuration.
type Config struct {
	// URL is the Qdrant server address (e.g. "https://example.qdrant.io:6334").
	URL string

	// Collection is the product collection to query.
	Collection string

	// APIKey is an optional API key.
	APIKey string
}

// QdrantSearcher implements Searcher against a Qdrant collection. The query
// text is embedded first, then run as a similarity query with the extracted
// attributes as a payload filter.
type QdrantSearcher struct {
	client     *qdrant.Client
	collection string
	embedder   Embedder
}

func NewQdrant(cfg Config, embedder Embedder) (*QdrantSearcher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	parsed := cfg.URL
	if !strings.HasPrefix(parsed, "http://") && !strings.HasPrefix(parsed, "https://") {
		parsed = "https://" + parsed
	}
	u, err := url.Parse(parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to parse qdrant url: %w", err)
	}
	host := u.Hostname()
	port := 6334
	if u.Port() != "" {
		p, err := strconv.Atoi(u.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid qdrant port: %w", err)
		}
		port = p
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	return &QdrantSearcher{client: client, collection: cfg.Collection, embedder: embedder}, nil
}

// Search implements Searcher. A blank query never reaches the index.
func (s *QdrantSearcher) Search(ctx context.Context, query string, filter Filter, limit int) ([]Candidate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	limitUint64 := uint64(limit)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limitUint64,
		Filter:         buildFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	results := make([]Candidate, 0, len(points))
	for _, point := range points {
		results = append(results, candidateFromPoint(point))
	}
	return results, nil
}

func (s *QdrantSearcher) Close() error {
	return s.client.Close()
}

// buildFilter converts the extracted attributes into a Qdrant payload filter.
// String attributes become keyword matches; price bounds become one range
// condition.
func buildFilter(filter Filter) *qdrant.Filter {
	var conditions []*qdrant.Condition

	keyword := func(key, value string) {
		if value == "" {
			return
		}
		conditions = append(conditions, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key:   key,
					Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: value}},
				},
			},
		})
	}
	keyword("category", filter.Category)
	keyword("subcategory", filter.Subcategory)
	keyword("color", filter.Color)
	keyword("fabric", filter.Fabric)
	keyword("technique", filter.Technique)
	keyword("pattern", filter.Pattern)

	if filter.PriceMin > 0 || filter.PriceMax > 0 {
		r := &qdrant.Range{}
		if filter.PriceMin > 0 {
			gte := filter.PriceMin
			r.Gte = &gte
		}
		if filter.PriceMax > 0 {
			lte := filter.PriceMax
			r.Lte = &lte
		}
		conditions = append(conditions, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{Key: "price", Range: r},
			},
		})
	}

	if len(conditions) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: conditions}
}

func candidateFromPoint(point *qdrant.ScoredPoint) Candidate {
	c := Candidate{Score: float64(point.Score), InStock: true}
	if point.Id != nil {
		if uuid := point.Id.GetUuid(); uuid != "" {
			c.ID = uuid
		} else if num := point.Id.GetNum(); num != 0 {
			c.ID = fmt.Sprintf("%d", num)
		}
	}
	for k, v := range point.Payload {
		switch k {
		case "product_id":
			c.ProductID = v.GetStringValue()
		case "product_name":
			c.Name = v.GetStringValue()
		case "category":
			c.Category = v.GetStringValue()
		case "subcategory":
			c.Subcategory = v.GetStringValue()
		case "color":
			c.Color = v.GetStringValue()
		case "fabric":
			c.Fabric = v.GetStringValue()
		case "technique":
			c.Technique = v.GetStringValue()
		case "pattern":
			c.Pattern = v.GetStringValue()
		case "description":
			c.Description = v.GetStringValue()
		case "colors_available":
			c.ColorsAvailable = v.GetStringValue()
		case "price":
			c.Price = numericValue(v)
		case "in_stock":
			c.InStock = v.GetBoolValue()
		}
	}
	if c.ProductID == "" {
		c.ProductID = c.ID
	}
	return c
}

// numericValue reads a payload number stored as double, integer, or string.
func numericValue(v *qdrant.Value) float64 {
	if v == nil {
		return 0
	}
	switch val := v.Kind.(type) {
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_IntegerValue:
		return float64(val.IntegerValue)
	case *qdrant.Value_StringValue:
		f, err := strconv.ParseFloat(strings.TrimSpace(val.StringValue), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Compile-time check that QdrantSearcher implements Searcher.
var _ Searcher = (*QdrantSearcher)(nil)
