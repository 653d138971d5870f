package crawler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Document is the persisted shape of a batch: {"result": [...]}.
type Document struct {
	Result []Record `json:"result"`
}

// EncodeDocument writes records as an indented document. HTML escaping is
// off so listing text is stored verbatim; a nil batch encodes as an empty array.
func EncodeDocument(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(Document{Result: records}); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return nil
}

// DecodeDocument parses a document written by EncodeDocument.
func DecodeDocument(r io.Reader) ([]Record, error) {
	var raw struct {
		Result *[]Record `json:"result"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if raw.Result == nil {
		return nil, errors.New("decode document: result missing")
	}
	return *raw.Result, nil
}
