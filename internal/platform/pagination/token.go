package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type timeCursor struct {
	At time.Time `json:"t"`
	ID string    `json:"id"`
}

// EncodeTimeCursor serialises a (timestamp, document id) cursor into a URL-safe page token.
func EncodeTimeCursor(at time.Time, id string) string {
	data, err := json.Marshal(timeCursor{At: at.UTC(), ID: id})
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeTimeCursor parses a page token produced by EncodeTimeCursor.
func DecodeTimeCursor(token string) (time.Time, string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return time.Time{}, "", nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %v", ErrInvalidPageToken, err)
	}
	var cursor timeCursor
	if err := json.Unmarshal(decoded, &cursor); err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %v", ErrInvalidPageToken, err)
	}
	if cursor.ID == "" || cursor.At.IsZero() {
		return time.Time{}, "", fmt.Errorf("%w: incomplete cursor", ErrInvalidPageToken)
	}
	return cursor.At, cursor.ID, nil
}
