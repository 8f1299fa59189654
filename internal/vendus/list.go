package vendus

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeList извлекает записи из ответа списка.
// Vendus отдает либо массив, либо объект с массивом под ключом сущности ({"products":[...]}).
func DecodeList(raw json.RawMessage, key string) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode %s list: %w", key, err)
		}
		return items, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", key, err)
	}
	inner, ok := wrapped[key]
	if !ok {
		return nil, nil
	}
	return DecodeList(inner, key)
}
