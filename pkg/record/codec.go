package record

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"
)

// ReadJSON decodes a JSON array of objects into a batch. Numbers decode as
// float64.
func ReadJSON(r io.Reader) (Batch, error) {
	var rows []map[string]any
	if err := jsonAPI.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decoding batch: %w", err)
	}
	batch := make(Batch, len(rows))
	for i, row := range rows {
		if row == nil {
			row = map[string]any{}
		}
		batch[i] = row
	}
	return batch, nil
}

// ReadJSONFile reads a JSON batch from filename.
func ReadJSONFile(filename string) (Batch, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("opening batch file: %w", err)
	}
	defer f.Close()

	batch, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	return batch, nil
}

// WriteJSON encodes v as indented JSON. Non-finite numbers are written as
// null, matching what JSON can carry.
func WriteJSON(w io.Writer, v any) error {
	enc := jsonAPI.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jsonSafe(v)); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}

func jsonSafe(v any) any {
	switch t := v.(type) {
	case Batch:
		out := make([]any, len(t))
		for i, r := range t {
			out[i] = jsonSafe(r)
		}
		return out
	case Record:
		return jsonSafe(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = jsonSafe(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = jsonSafe(e)
		}
		return out
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
	case float32:
		if math.IsNaN(float64(t)) || math.IsInf(float64(t), 0) {
			return nil
		}
	}
	return v
}
