package meli

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Trend is one trending search keyword for a site or category.
type Trend struct {
	Keyword string `json:"keyword"`
	URL     string `json:"url"`
}

// Category is a top-level site category.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Highlight is one best-seller entry of a category.
type Highlight struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
	Type     string `json:"type"`
}

// Highlights is the best-seller ranking of a category.
type Highlights struct {
	QueryData struct {
		HighlightType string `json:"highlight_type"`
		Criteria      string `json:"criteria"`
		ID            string `json:"id"`
	} `json:"query_data"`
	Content []Highlight `json:"content"`
}

// Paging describes the window of a search result.
type Paging struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Shipping holds the shipping terms of a listing.
type Shipping struct {
	FreeShipping bool `json:"free_shipping"`
}

// SearchItem is one listing of a search result.
type SearchItem struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Price        float64  `json:"price"`
	CurrencyID   string   `json:"currency_id"`
	SoldQuantity int      `json:"sold_quantity"`
	Permalink    string   `json:"permalink"`
	Shipping     Shipping `json:"shipping"`
}

// SearchResult is a page of listings for a query.
type SearchResult struct {
	SiteID  string       `json:"site_id"`
	Query   string       `json:"query"`
	Paging  Paging       `json:"paging"`
	Results []SearchItem `json:"results"`
}

// User is the account that owns an access token.
type User struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
	SiteID   string `json:"site_id"`
}

// upstreamError is the error body MercadoLibre returns with non-2xx responses.
type upstreamError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// upstreamMessage extracts the error message from an upstream body,
// falling back to the HTTP status text.
func upstreamMessage(body []byte, fallback string) string {
	var e upstreamError
	if err := json.Unmarshal(body, &e); err == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return fallback
}

func validateTrends(trends []Trend) error {
	for i := range trends {
		trends[i].Keyword = strings.TrimSpace(trends[i].Keyword)
		if trends[i].Keyword == "" {
			return fmt.Errorf("%w: trend %d has no keyword", ErrMalformed, i)
		}
	}
	return nil
}

func validateCategories(categories []Category) error {
	for i, c := range categories {
		if c.ID == "" {
			return fmt.Errorf("%w: category %d has no id", ErrMalformed, i)
		}
	}
	return nil
}

func validateHighlights(h *Highlights) error {
	for i, c := range h.Content {
		if c.ID == "" {
			return fmt.Errorf("%w: highlight %d has no id", ErrMalformed, i)
		}
	}
	return nil
}

func validateSearch(r *SearchResult) error {
	if r.Paging.Total < 0 {
		return fmt.Errorf("%w: negative paging total", ErrMalformed)
	}
	for i, item := range r.Results {
		if item.Price < 0 {
			return fmt.Errorf("%w: result %d has negative price", ErrMalformed, i)
		}
	}
	return nil
}

func validateUser(u *User) error {
	if u.ID <= 0 {
		return fmt.Errorf("%w: user has no id", ErrMalformed)
	}
	return nil
}
