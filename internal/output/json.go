package output

import (
	"encoding/json"
)

// JSON renders any value as indented JSON. Nil slices render as [].
func JSON[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	return marshal(items)
}

func marshal(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
