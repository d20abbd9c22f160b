// Package trends holds the enriched trend record model and the server-side
// service that pages through a country's enriched trends with cache-aside.
package trends

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoKeyword is returned for records without a keyword.
var ErrNoKeyword = errors.New("trend record has no keyword")

// Record is one enriched trend. Keyword identifies the record within a
// country's result set; all other fields are descriptive.
//
// Fields this type does not know are kept in Extra and written back on
// marshal, so records survive a round trip through the cache unchanged.
// Known fields holding a zero value that omitempty would drop stay in
// Extra as well.
type Record struct {
	Keyword           string  `json:"keyword"`
	URL               string  `json:"url,omitempty"`
	TotalResults      int     `json:"total_results,omitempty"`
	AvgPrice          float64 `json:"avg_price,omitempty"`
	MinPrice          float64 `json:"min_price,omitempty"`
	MaxPrice          float64 `json:"max_price,omitempty"`
	CurrencyID        string  `json:"currency_id,omitempty"`
	SoldQuantity      int     `json:"sold_quantity,omitempty"`
	FreeShippingRatio float64 `json:"free_shipping_ratio,omitempty"`
	SampleSize        int     `json:"sample_size,omitempty"`
	Enriched          bool    `json:"enriched"`

	Extra map[string]json.RawMessage `json:"-"`
}

// recordFields mirrors Record without its methods.
type recordFields Record

// UnmarshalJSON decodes the typed fields and keeps the rest in Extra.
func (r *Record) UnmarshalJSON(data []byte) error {
	var fields recordFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	emitted, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	var typed map[string]json.RawMessage
	if err := json.Unmarshal(emitted, &typed); err != nil {
		return err
	}
	for name := range typed {
		delete(all, name)
	}
	if len(all) == 0 {
		all = nil
	}

	*r = Record(fields)
	r.Extra = all
	return nil
}

// MarshalJSON writes the typed fields plus Extra.
func (r Record) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(recordFields(r))
	if err != nil || len(r.Extra) == 0 {
		return data, err
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, known := merged[k]; !known {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// Validate checks that the record can take part in keyword dedup.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Keyword) == "" {
		return ErrNoKeyword
	}
	return nil
}

// DecodeRecords decodes a JSON array of records and validates each one.
func DecodeRecords(data []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return records, nil
}

// EncodeRecords encodes records as a JSON array. A nil slice encodes as [].
func EncodeRecords(records []Record) ([]byte, error) {
	if records == nil {
		records = []Record{}
	}
	return json.Marshal(records)
}

// Keywords returns the keyword of each record, in order.
func Keywords(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Keyword
	}
	return out
}
