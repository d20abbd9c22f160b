package meli

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"

	"github.com/Sternrassler/meli-trends/pkg/country"
)

// Endpoint labels used in metrics and logs.
const (
	EndpointTrends         = "/trends/{site}"
	EndpointCategoryTrends = "/trends/{site}/{category}"
	EndpointCategories     = "/sites/{site}/categories"
	EndpointHighlights     = "/highlights/{site}/category/{category}"
	EndpointSearch         = "/sites/{site}/search"
	EndpointMe             = "/users/me"
)

// MaxSearchLimit is the largest page the search endpoint serves.
const MaxSearchLimit = 50

var categoryIDPattern = regexp.MustCompile(`^[A-Z]{3}[0-9]+$`)

// ValidCategoryID reports whether id looks like a MercadoLibre category ID.
func ValidCategoryID(id string) bool {
	return categoryIDPattern.MatchString(id)
}

// Trends returns the trending keywords of a site.
func (c *Client) Trends(ctx context.Context, token string, site country.Code) ([]Trend, error) {
	if !site.Valid() {
		return nil, country.ErrInvalid
	}

	var trends []Trend
	path := "/trends/" + url.PathEscape(site.String())
	if err := c.getJSON(ctx, EndpointTrends, path, nil, token, &trends); err != nil {
		return nil, err
	}
	if err := validateTrends(trends); err != nil {
		return nil, err
	}
	return trends, nil
}

// CategoryTrends returns the trending keywords of one category.
func (c *Client) CategoryTrends(ctx context.Context, token string, site country.Code, categoryID string) ([]Trend, error) {
	if !site.Valid() {
		return nil, country.ErrInvalid
	}
	if !ValidCategoryID(categoryID) {
		return nil, ErrInvalidCategory
	}

	var trends []Trend
	path := fmt.Sprintf("/trends/%s/%s", site, url.PathEscape(categoryID))
	if err := c.getJSON(ctx, EndpointCategoryTrends, path, nil, token, &trends); err != nil {
		return nil, err
	}
	if err := validateTrends(trends); err != nil {
		return nil, err
	}
	return trends, nil
}

// Categories returns the top-level categories of a site.
func (c *Client) Categories(ctx context.Context, token string, site country.Code) ([]Category, error) {
	if !site.Valid() {
		return nil, country.ErrInvalid
	}

	var categories []Category
	path := fmt.Sprintf("/sites/%s/categories", site)
	if err := c.getJSON(ctx, EndpointCategories, path, nil, token, &categories); err != nil {
		return nil, err
	}
	if err := validateCategories(categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// Highlights returns the best sellers of a category.
func (c *Client) Highlights(ctx context.Context, token string, site country.Code, categoryID string) (*Highlights, error) {
	if !site.Valid() {
		return nil, country.ErrInvalid
	}
	if !ValidCategoryID(categoryID) {
		return nil, ErrInvalidCategory
	}

	var highlights Highlights
	path := fmt.Sprintf("/highlights/%s/category/%s", site, url.PathEscape(categoryID))
	if err := c.getJSON(ctx, EndpointHighlights, path, nil, token, &highlights); err != nil {
		return nil, err
	}
	if err := validateHighlights(&highlights); err != nil {
		return nil, err
	}
	return &highlights, nil
}

// Search returns the first limit listings for query on a site.
// limit is clamped to [1, MaxSearchLimit].
func (c *Client) Search(ctx context.Context, token string, site country.Code, query string, limit int) (*SearchResult, error) {
	if !site.Valid() {
		return nil, country.ErrInvalid
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	var result SearchResult
	path := fmt.Sprintf("/sites/%s/search", site)
	if err := c.getJSON(ctx, EndpointSearch, path, params, token, &result); err != nil {
		return nil, err
	}
	if err := validateSearch(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Me returns the user that owns token. Used to validate tokens.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	var user User
	if err := c.getJSON(ctx, EndpointMe, "/users/me", nil, token, &user); err != nil {
		return nil, err
	}
	if err := validateUser(&user); err != nil {
		return nil, err
	}
	return &user, nil
}
