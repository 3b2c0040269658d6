// Package pagination encodes keyset positions into opaque cursors.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	cursorSeparator = "|"
	timeFormat      = time.RFC3339Nano
)

// ErrInvalidCursor is wrapped by every DecodeCursor failure.
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is the (updated_at, id) position of the last item of a page.
type Cursor struct {
	UpdatedAt time.Time
	ID        int64
}

// Encode returns the opaque form of c.
func (c Cursor) Encode() string {
	key := c.UpdatedAt.UTC().Format(timeFormat) + cursorSeparator + strconv.FormatInt(c.ID, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

// DecodeCursor parses a cursor produced by Encode.
func DecodeCursor(encoded string) (Cursor, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: bad encoding: %v", ErrInvalidCursor, err)
	}

	ts, idStr, ok := strings.Cut(string(decoded), cursorSeparator)
	if !ok {
		return Cursor{}, fmt.Errorf("%w: missing separator", ErrInvalidCursor)
	}

	updatedAt, err := time.Parse(timeFormat, ts)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: bad timestamp: %v", ErrInvalidCursor, err)
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return Cursor{}, fmt.Errorf("%w: bad id %q", ErrInvalidCursor, idStr)
	}

	return Cursor{UpdatedAt: updatedAt.UTC(), ID: id}, nil
}
