package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tbourn/go-pos-client/internal/domain"
)

// DecodeList accepts either a bare JSON array or a paginated
// {"items": [...], "total": n} object and normalizes both into a Page.
// A missing total defaults to the number of items; null decodes to an empty
// page.
func DecodeList[T any](raw []byte) (domain.Page[T], error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return domain.Page[T]{Items: []T{}}, nil
	}

	switch raw[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return domain.Page[T]{}, fmt.Errorf("decode list: %w", err)
		}
		if items == nil {
			items = []T{}
		}
		return domain.Page[T]{Items: items, Total: len(items)}, nil
	case '{':
		var env struct {
			Items []T  `json:"items"`
			Total *int `json:"total"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return domain.Page[T]{}, fmt.Errorf("decode page: %w", err)
		}
		if env.Items == nil {
			env.Items = []T{}
		}
		total := len(env.Items)
		if env.Total != nil {
			total = *env.Total
		}
		return domain.Page[T]{Items: env.Items, Total: total}, nil
	}
	return domain.Page[T]{}, fmt.Errorf("decode list: unexpected JSON %q", string(raw[:1]))
}
