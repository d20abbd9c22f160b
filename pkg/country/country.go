// Package country defines the MercadoLibre sites supported by MeLi Trends.
//
// Every API surface that takes a country identifier validates it against the
// fixed allow-list in this package before doing any work.
package country

import (
	"errors"
	"strings"

	"golang.org/x/text/language"
)

// ErrInvalid indicates a country code outside the allow-list.
var ErrInvalid = errors.New("invalid country ID")

// Code is a MercadoLibre site identifier (e.g. "MLA").
type Code string

// Supported site identifiers.
const (
	Argentina Code = "MLA"
	Brazil    Code = "MLB"
	Chile     Code = "MLC"
	Mexico    Code = "MLM"
	Colombia  Code = "MCO"
	Uruguay   Code = "MLU"
	Peru      Code = "MPE"
)

// Default is used when no better site can be inferred.
const Default = Argentina

// Info describes a supported site.
type Info struct {
	Code     Code         `json:"code"`
	Name     string       `json:"name"`
	Locale   language.Tag `json:"locale"`
	Currency string       `json:"currency"`
}

var sites = []Info{
	{Code: Argentina, Name: "Argentina", Locale: language.MustParse("es-AR"), Currency: "ARS"},
	{Code: Brazil, Name: "Brasil", Locale: language.MustParse("pt-BR"), Currency: "BRL"},
	{Code: Chile, Name: "Chile", Locale: language.MustParse("es-CL"), Currency: "CLP"},
	{Code: Mexico, Name: "México", Locale: language.MustParse("es-MX"), Currency: "MXN"},
	{Code: Colombia, Name: "Colombia", Locale: language.MustParse("es-CO"), Currency: "COP"},
	{Code: Uruguay, Name: "Uruguay", Locale: language.MustParse("es-UY"), Currency: "UYU"},
	{Code: Peru, Name: "Perú", Locale: language.MustParse("es-PE"), Currency: "PEN"},
}

var matcher = func() language.Matcher {
	tags := make([]language.Tag, 0, len(sites))
	for _, s := range sites {
		tags = append(tags, s.Locale)
	}
	return language.NewMatcher(tags)
}()

// All returns every supported site in display order.
func All() []Info {
	out := make([]Info, len(sites))
	copy(out, sites)
	return out
}

// Codes returns the allow-list of site identifiers.
func Codes() []Code {
	out := make([]Code, 0, len(sites))
	for _, s := range sites {
		out = append(out, s.Code)
	}
	return out
}

// Valid reports whether c is in the allow-list. Matching is exact.
func (c Code) Valid() bool {
	_, ok := Lookup(c)
	return ok
}

func (c Code) String() string { return string(c) }

// Lookup returns the site metadata for c.
func Lookup(c Code) (Info, bool) {
	for _, s := range sites {
		if s.Code == c {
			return s, true
		}
	}
	return Info{}, false
}

// Parse validates s against the allow-list.
func Parse(s string) (Code, error) {
	c := Code(s)
	if !c.Valid() {
		return "", ErrInvalid
	}
	return c, nil
}

// Match picks the site whose locale best fits an Accept-Language header.
// Falls back to Default when the header is empty, unparseable or matches nothing.
func Match(acceptLanguage string) Code {
	acceptLanguage = strings.TrimSpace(acceptLanguage)
	if acceptLanguage == "" {
		return Default
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default
	}
	return sites[idx].Code
}
