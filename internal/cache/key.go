package cache

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Key derives the logical key for base parameterized by params, so distinct
// filter combinations cache independently:
//
//	Key(SalesList, domain.SaleFilters{Page: 2}) == "sales_list_3f1c…"
//
// nil params, or params that encode to an empty object, yield base itself.
// The suffix is the xxhash64 of the JSON encoding; encoding/json orders
// struct fields by declaration and map keys lexically, so equal params
// always hash alike.
func Key(base string, params any) string {
	if params == nil {
		return base
	}
	b, err := json.Marshal(params)
	if err != nil {
		return base
	}
	switch string(b) {
	case "null", "{}", `""`:
		return base
	}
	return fmt.Sprintf("%s_%016x", base, xxhash.Sum64(b))
}
