package array

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

type denseJSON struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// MarshalJSON encodes d as {"shape": [...], "data": [...]}.
func (d *Dense) MarshalJSON() ([]byte, error) {
	return json.Marshal(denseJSON{Shape: d.shape, Data: d.data})
}

// UnmarshalJSON accepts the object form written by MarshalJSON or a bare
// list of numbers, which decodes as a 1-D array.
func (d *Dense) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	var v denseJSON
	if len(b) > 0 && b[0] == '[' {
		if err := json.Unmarshal(b, &v.Data); err != nil {
			return fmt.Errorf("failed to decode array data: %w", err)
		}
		v.Shape = []int{len(v.Data)}
	} else if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("failed to decode array: %w", err)
	}
	if err := CheckShape(v.Shape, len(v.Data)); err != nil {
		return err
	}
	d.shape, d.data = v.Shape, v.Data
	return nil
}
