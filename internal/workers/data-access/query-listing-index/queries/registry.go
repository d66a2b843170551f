package queries

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"

	"propguard-workers/internal/models"
)

type QueryResult struct {
	Listings  []models.Listing
	TotalHits int64
	MaxScore  float64
	Took      int64
}

// Document is a listing as stored in the index. Geo duplicates the
// coordinates in geo_point form.
type Document struct {
	models.Listing
	Geo *GeoPoint `json:"geo,omitempty"`
}

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// NewDocument builds the indexed form of l.
func NewDocument(l models.Listing) Document {
	d := Document{Listing: l}
	if c := l.Location.Coordinates; c != nil {
		d.Geo = &GeoPoint{Lat: c.Lat, Lon: c.Lng}
	}
	return d
}

type searchResponse struct {
	Took int64 `json:"took"`
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		MaxScore *float64 `json:"max_score"`
		Hits     []struct {
			ID     string   `json:"_id"`
			Source Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// ConnectionError wraps a transport failure before any response arrived.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string { return "elasticsearch unreachable: " + e.Err.Error() }

func (e *ConnectionError) Unwrap() error { return e.Err }

func Execute(ctx context.Context, es *elasticsearch.Client, iq IndexQuery) (*QueryResult, error) {
	req, err := BuildQuery(iq)
	if err != nil {
		return nil, err
	}

	res, err := req.Do(ctx, es)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, iq.Index)
	}
	if res.IsError() {
		return nil, fmt.Errorf("search query failed: %s", res.String())
	}

	var r searchResponse
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	listings := make([]models.Listing, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		l := hit.Source.Listing
		if l.ID == "" {
			l.ID = hit.ID
		}
		if l.Location.Coordinates == nil && hit.Source.Geo != nil {
			l.Location.Coordinates = &models.Coordinates{Lat: hit.Source.Geo.Lat, Lng: hit.Source.Geo.Lon}
		}
		if l.Features == nil {
			l.Features = []string{}
		}
		listings = append(listings, l)
	}

	result := &QueryResult{
		Listings:  listings,
		TotalHits: r.Hits.Total.Value,
		Took:      r.Took,
	}
	if r.Hits.MaxScore != nil {
		result.MaxScore = *r.Hits.MaxScore
	}
	return result, nil
}
