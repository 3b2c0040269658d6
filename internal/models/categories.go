package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Categories is an ordered list of category labels stored as a JSON array.
type Categories []string

// Value implements driver.Valuer. A nil list is stored as an empty array.
func (c Categories) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(c))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal categories: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (c *Categories) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*c = Categories{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported categories column type %T", src)
	}

	if len(raw) == 0 {
		*c = Categories{}
		return nil
	}

	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to unmarshal categories: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*c = out
	return nil
}
