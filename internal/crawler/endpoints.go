package crawler

import (
	"fmt"
	"strings"
)

// Default upstream locations.
const (
	DefaultAPIBaseURL  = "https://api.jumpit.co.kr"
	DefaultSiteBaseURL = "https://www.jumpit.co.kr"
	DefaultPlatform    = "jumpit"
)

// Endpoints builds upstream and public URLs.
type Endpoints struct {
	APIBaseURL  string
	SiteBaseURL string
}

// ListingIndex is the listing endpoint without a page parameter; it carries the total count.
func (e Endpoints) ListingIndex() string {
	return strings.TrimRight(e.APIBaseURL, "/") + "/api/positions"
}

// ListingPage is the listing endpoint for one 1-based page.
func (e Endpoints) ListingPage(page int) string {
	return fmt.Sprintf("%s?page=%d", e.ListingIndex(), page)
}

// Detail is the per-listing detail endpoint.
func (e Endpoints) Detail(id ListingID) string {
	return fmt.Sprintf("%s/api/position/%d", strings.TrimRight(e.APIBaseURL, "/"), id)
}

// PostingURL is the public page for a listing.
func (e Endpoints) PostingURL(id ListingID) string {
	return fmt.Sprintf("%s/position/%d", strings.TrimRight(e.SiteBaseURL, "/"), id)
}
