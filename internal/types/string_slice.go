package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
)

// StringSlice stores a JSON array in a TEXT column.
// Implements sql.Scanner and driver.Valuer so database/sql can persist it.
type StringSlice []string

// Scan implements the sql.Scanner interface.
func (s *StringSlice) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		if len(v) == 0 {
			*s = nil
			return nil
		}
		return json.Unmarshal(v, s)
	case string:
		if v == "" {
			*s = nil
			return nil
		}
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("types.StringSlice: unsupported Scan type %T", src)
	}
}

// Value implements the driver.Valuer interface. An empty slice is stored as NULL.
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return nil, nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Contains reports whether v is in the slice.
func (s StringSlice) Contains(v string) bool {
	return slices.Contains(s, v)
}
