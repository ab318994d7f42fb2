package objmap

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// MarshalJSON encodes the map as a single keyed-record object, the
// interchange format shared with the frontend exporter. encoding/json
// sorts map keys, so output is deterministic.
func (m *Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.records)
}

// UnmarshalJSON decodes a keyed-record object.
func (m *Map) UnmarshalJSON(data []byte) error {
	var records map[string]*Record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("object map: %w", err)
	}
	for k, r := range records {
		if r == nil {
			return fmt.Errorf("object map: null record for key %q", k)
		}
	}
	*m = *FromRecords(records)
	return nil
}

// WriteJSON writes the map to w, indented for offline inspection.
func WriteJSON(w io.Writer, m *Map) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("encode object map: %w", err)
	}
	return nil
}

// WriteJSONFile writes the map to path, creating or truncating it.
func WriteJSONFile(path string, m *Map) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(f, m); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// ReadJSON decodes a map from r.
func ReadJSON(r io.Reader) (*Map, error) {
	var m Map
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode object map: %w", err)
	}
	return &m, nil
}

// ReadJSONFile loads a map from path.
func ReadJSONFile(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	m, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
