package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Optional distinguishes an absent JSON field from an explicit null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if o == nil {
		return fmt.Errorf("optional receiver is nil")
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("optional cannot parse empty input")
	}
	o.Set = true
	if bytes.Equal(trimmed, []byte("null")) {
		o.Value = nil
		return nil
	}
	var value T
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return err
	}
	o.Value = &value
	return nil
}

// Or returns the supplied value when the field was present, otherwise current.
func (o Optional[T]) Or(current *T) *T {
	if !o.Set {
		return current
	}
	return o.Value
}
