// internal/models/query_types.go
package models

type QueryType string

const (
	QueryTypeListingByID     QueryType = "listing_by_id"
	QueryTypeListingsByIDs   QueryType = "listings_by_ids"
	QueryTypeListingSearch   QueryType = "listing_search"
	QueryTypeRecentListings  QueryType = "recent_listings"
	QueryTypeListingsByCity  QueryType = "listings_by_city"
	QueryTypeListingsInBound QueryType = "listings_in_bounds"
)
