package trends

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestRecord_RoundTripKeepsUnknownFields(t *testing.T) {
	in := `{"keyword":"iphone 15","url":"https://example.com/iphone","avg_price":1200.5,"enriched":true,"trend_score":7,"tags":["a","b"]}`

	var r Record
	if err := json.Unmarshal([]byte(in), &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if r.Keyword != "iphone 15" || r.AvgPrice != 1200.5 || !r.Enriched {
		t.Errorf("typed fields = %+v", r)
	}
	if len(r.Extra) != 2 {
		t.Errorf("Extra = %v, want trend_score and tags", r.Extra)
	}

	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var want, got map[string]any
	json.Unmarshal([]byte(in), &want)
	json.Unmarshal(out, &got)
	for k, v := range want {
		if _, ok := got[k]; !ok {
			t.Errorf("field %q lost (want %v)", k, v)
		}
	}
}

func TestRecord_RoundTripKeepsZeroValues(t *testing.T) {
	in := `{"keyword":"a","url":"","avg_price":0,"sold_quantity":0,"free_shipping_ratio":0,"enriched":true}`

	records, err := DecodeRecords([]byte("[" + in + "]"))
	if err != nil {
		t.Fatalf("DecodeRecords() error = %v", err)
	}
	out, err := EncodeRecords(records)
	if err != nil {
		t.Fatalf("EncodeRecords() error = %v", err)
	}

	var got []map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, k := range []string{"keyword", "url", "avg_price", "sold_quantity", "free_shipping_ratio", "enriched"} {
		if _, ok := got[0][k]; !ok {
			t.Errorf("field %q lost: %s", k, out)
		}
	}
	if _, ok := got[0]["min_price"]; ok {
		t.Errorf("absent field min_price appeared: %s", out)
	}
}

func TestRecord_TypedValueWinsOverStoredZero(t *testing.T) {
	var r Record
	if err := json.Unmarshal([]byte(`{"keyword":"a","avg_price":0}`), &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	r.AvgPrice = 99.5

	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var back Record
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if back.AvgPrice != 99.5 {
		t.Errorf("AvgPrice = %v, want 99.5", back.AvgPrice)
	}
}

func TestRecord_NoExtra(t *testing.T) {
	var r Record
	if err := json.Unmarshal([]byte(`{"keyword":"mate","enriched":false}`), &r); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if r.Extra != nil {
		t.Errorf("Extra = %v, want nil", r.Extra)
	}

	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(out) != `{"keyword":"mate","enriched":false}` {
		t.Errorf("Marshal() = %s", out)
	}
}

func TestRecord_ExtraDoesNotOverrideTypedFields(t *testing.T) {
	r := Record{
		Keyword: "real",
		Extra:   map[string]json.RawMessage{"keyword": json.RawMessage(`"fake"`)},
	}
	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var back Record
	json.Unmarshal(out, &back)
	if back.Keyword != "real" {
		t.Errorf("Keyword = %q, want real", back.Keyword)
	}
}

func TestDecodeRecords(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantLen int
		wantErr error
	}{
		{name: "empty array", data: `[]`, wantLen: 0},
		{name: "two records", data: `[{"keyword":"a"},{"keyword":"b"}]`, wantLen: 2},
		{name: "missing keyword", data: `[{"keyword":"a"},{"url":"x"}]`, wantErr: ErrNoKeyword},
		{name: "not records", data: `[1,2,3]`, wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := DecodeRecords([]byte(tt.data))
			if tt.name == "not records" {
				if err == nil {
					t.Error("expected decode error")
				}
				return
			}
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeRecords() error = %v", err)
			}
			if len(records) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(records), tt.wantLen)
			}
		})
	}
}

func TestEncodeRecords_NilIsEmptyArray(t *testing.T) {
	data, err := EncodeRecords(nil)
	if err != nil {
		t.Fatalf("EncodeRecords() error = %v", err)
	}
	if string(data) != "[]" {
		t.Errorf("EncodeRecords(nil) = %s, want []", data)
	}
}

func TestKeywords(t *testing.T) {
	got := Keywords([]Record{{Keyword: "a"}, {Keyword: "b"}})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Keywords() = %v", got)
	}
}
