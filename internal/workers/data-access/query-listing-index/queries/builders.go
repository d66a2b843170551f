package queries

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"propguard-workers/internal/models"
)

var (
	ErrUnknownQueryType = errors.New("unknown query type")
	ErrMissingIndex     = errors.New("index name is required")
	ErrMissingParam     = errors.New("missing required parameter")
	ErrIndexNotFound    = errors.New("index not found")
)

const (
	QueryTypeListingIndex     = "listing_index"
	QueryTypeSimilarListings  = "similar_listings"
	QueryTypeListingsInBounds = "listings_in_bounds"
)

// ListingMapping is the index mapping the builders assume. City and category
// are lowercase keywords and coordinates live in the geo field.
const ListingMapping = `{
	"mappings": {
		"properties": {
			"id":          {"type": "keyword"},
			"address":     {"type": "text"},
			"description": {"type": "text"},
			"price":       {"type": "double"},
			"bedrooms":    {"type": "integer"},
			"bathrooms":   {"type": "integer"},
			"floorArea":   {"type": "double"},
			"category":    {"type": "keyword", "normalizer": "lowercase"},
			"features":    {"type": "keyword", "normalizer": "lowercase"},
			"location": {"properties": {
				"city":     {"type": "keyword", "normalizer": "lowercase"},
				"region":   {"type": "keyword"},
				"postcode": {"type": "keyword"}
			}},
			"geo":       {"type": "geo_point"},
			"riskScore": {"type": "double"},
			"listedAt":  {"type": "date"}
		}
	}
}`

// IndexQuery describes one search against the listing index.
type IndexQuery struct {
	Index     string
	QueryType string
	Filters   models.SearchFilters
	ListingID string
	From      int
	Size      int
}

// BuildQuery builds the search request for iq.
func BuildQuery(iq IndexQuery) (*esapi.SearchRequest, error) {
	if iq.Index == "" {
		return nil, ErrMissingIndex
	}

	body, err := Body(iq)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	return &esapi.SearchRequest{
		Index: []string{iq.Index},
		Body:  bytes.NewReader(data),
		From:  &iq.From,
		Size:  &iq.Size,
	}, nil
}

// Body returns the query DSL for iq.
func Body(iq IndexQuery) (map[string]interface{}, error) {
	switch iq.QueryType {
	case QueryTypeListingIndex:
		if err := iq.Filters.Validate(); err != nil {
			return nil, err
		}
		return buildListingSearchQuery(iq.Filters), nil
	case QueryTypeListingsInBounds:
		if iq.Filters.Bounds == nil {
			return nil, fmt.Errorf("%w: bounds", ErrMissingParam)
		}
		if err := iq.Filters.Validate(); err != nil {
			return nil, err
		}
		return buildListingSearchQuery(models.SearchFilters{Bounds: iq.Filters.Bounds}), nil
	case QueryTypeSimilarListings:
		if strings.TrimSpace(iq.ListingID) == "" {
			return nil, fmt.Errorf("%w: listingId", ErrMissingParam)
		}
		return buildSimilarListingsQuery(iq.Index, iq.ListingID), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownQueryType, iq.QueryType)
}

func buildListingSearchQuery(f models.SearchFilters) map[string]interface{} {
	mustClauses := []interface{}{}
	filterClauses := []interface{}{}

	if keywords := strings.TrimSpace(strings.Join(f.Keywords, " ")); keywords != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  keywords,
				"fields": []string{"address^2", "description", "features"},
				"type":   "best_fields",
			},
		})
	}

	if r := floatRange(f.PriceRange); r != nil {
		filterClauses = append(filterClauses, rangeClause("price", r))
	}
	if r := floatRange(f.FloorArea); r != nil {
		filterClauses = append(filterClauses, rangeClause("floorArea", r))
	}
	if r := intRange(f.Bedrooms); r != nil {
		filterClauses = append(filterClauses, rangeClause("bedrooms", r))
	}
	if r := intRange(f.Bathrooms); r != nil {
		filterClauses = append(filterClauses, rangeClause("bathrooms", r))
	}

	if types := models.ActiveAllowlist(f.PropertyTypes); types != nil {
		cats := make([]string, 0, len(types))
		for _, t := range types {
			if c, ok := models.ParseCategory(t); ok {
				cats = append(cats, string(c))
			}
		}
		filterClauses = append(filterClauses, map[string]interface{}{
			"terms": map[string]interface{}{"category": cats},
		})
	}
	// city or region contains any allowed location
	if locs := models.ActiveAllowlist(f.Locations); locs != nil {
		should := make([]interface{}, 0, 2*len(locs))
		for _, loc := range locs {
			should = append(should, containsClause("location.city", loc), containsClause("location.region", loc))
		}
		filterClauses = append(filterClauses, map[string]interface{}{
			"bool": map[string]interface{}{"should": should, "minimum_should_match": 1},
		})
	}
	// every required feature must be contained in some tag
	for _, feature := range models.NormalizeTags(f.Features) {
		filterClauses = append(filterClauses, containsClause("features", feature))
	}
	if b := f.Bounds; b != nil {
		filterClauses = append(filterClauses, map[string]interface{}{
			"geo_bounding_box": map[string]interface{}{
				"geo": map[string]interface{}{
					"top_left":     map[string]float64{"lat": b.North, "lon": b.West},
					"bottom_right": map[string]float64{"lat": b.South, "lon": b.East},
				},
			},
		})
	}

	if len(mustClauses) == 0 {
		mustClauses = append(mustClauses, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	boolQuery := map[string]interface{}{"must": mustClauses}
	if len(filterClauses) > 0 {
		boolQuery["filter"] = filterClauses
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
	}
	if s := sortClause(f.SortBy, f.SortOrder); s != nil {
		query["sort"] = s
	}
	return query
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

// containsClause is a case-insensitive substring match on a keyword field.
func containsClause(field, value string) map[string]interface{} {
	return map[string]interface{}{
		"wildcard": map[string]interface{}{
			field: map[string]interface{}{
				"value":            "*" + wildcardEscaper.Replace(value) + "*",
				"case_insensitive": true,
			},
		},
	}
}

func buildSimilarListingsQuery(index, listingID string) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"more_like_this": map[string]interface{}{
				"fields": []string{"description", "features", "category", "location.city"},
				"like": []map[string]interface{}{
					{"_index": index, "_id": listingID},
				},
				"min_term_freq":   1,
				"max_query_terms": 12,
				"min_doc_freq":    1,
				"min_word_length": 3,
			},
		},
	}
}

func rangeClause(field string, bounds map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"range": map[string]interface{}{field: bounds},
	}
}

func floatRange(r *models.FloatRange) map[string]interface{} {
	if r == nil {
		return nil
	}
	out := map[string]interface{}{}
	if r.Min > 0 {
		out["gte"] = r.Min
	}
	if r.Max != nil {
		out["lte"] = *r.Max
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func intRange(r *models.IntRange) map[string]interface{} {
	if r == nil {
		return nil
	}
	out := map[string]interface{}{}
	if r.Min > 0 {
		out["gte"] = r.Min
	}
	if r.Max != nil {
		out["lte"] = *r.Max
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// sortClause maps a sort key to index fields. Relevance keeps the default
// _score ordering.
func sortClause(key models.SortKey, order models.SortOrder) []map[string]interface{} {
	var field string
	switch key {
	case models.SortByPrice:
		field = "price"
	case models.SortBySize:
		field = "floorArea"
	case models.SortByDate:
		field = "listedAt"
	default:
		return nil
	}
	if order == "" {
		order = models.SortAsc
		if key == models.SortByDate {
			order = models.SortDesc
		}
	}
	return []map[string]interface{}{
		{field: map[string]interface{}{"order": string(order), "missing": "_last"}},
	}
}
