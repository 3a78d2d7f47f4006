package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope is the response wrapper every upstream endpoint answers with
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`

	// Pagination is only read from the drug list, which may place it next
	// to data instead of inside it.
	Pagination json.RawMessage `json:"pagination,omitempty"`
}

// HasData reports whether data is present and not JSON null
func (e *Envelope) HasData() bool {
	trimmed := bytes.TrimSpace(e.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// DecodeData unmarshals data into v, keeping numbers as json.Number
func (e *Envelope) DecodeData(v interface{}) error {
	if !e.HasData() {
		return fmt.Errorf("envelope has no data")
	}
	dec := json.NewDecoder(bytes.NewReader(e.Data))
	dec.UseNumber()
	return dec.Decode(v)
}

// DrugPage is one page of the upstream drug list
type DrugPage struct {
	Drugs      []Drug
	Pagination json.RawMessage
}

// ParseDrugPage extracts drugs and pagination from a /drugs envelope.
// data is either {drugs, pagination} or a bare array of records.
// Pagination is copied byte for byte.
func ParseDrugPage(env *Envelope) (*DrugPage, error) {
	page := &DrugPage{Drugs: []Drug{}, Pagination: env.Pagination}
	if !env.HasData() {
		return page, nil
	}

	trimmed := bytes.TrimSpace(env.Data)
	if trimmed[0] == '[' {
		if err := env.DecodeData(&page.Drugs); err != nil {
			return nil, fmt.Errorf("decode drug list: %w", err)
		}
		return page, nil
	}

	var body struct {
		Drugs      []Drug          `json:"drugs"`
		Pagination json.RawMessage `json:"pagination"`
	}
	if err := env.DecodeData(&body); err != nil {
		return nil, fmt.Errorf("decode drug page: %w", err)
	}
	if body.Drugs != nil {
		page.Drugs = body.Drugs
	}
	if len(body.Pagination) > 0 {
		page.Pagination = body.Pagination
	}
	return page, nil
}
