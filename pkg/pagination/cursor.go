package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenTTL bounds how long a continuation token stays usable.
const TokenTTL = 24 * time.Hour

// PageToken is an opaque continuation token handed to clients.
type PageToken string

// Cursor is the keyset position after the last item of a page, ordered by
// (created_at desc, _id desc). Times are kept in milliseconds, the precision
// MongoDB stores dates with.
type Cursor struct {
	ID       primitive.ObjectID `json:"id"`
	At       int64              `json:"at"`
	IssuedAt int64              `json:"iat"`
}

func NewCursor(id primitive.ObjectID, createdAt time.Time) Cursor {
	return Cursor{ID: id, At: createdAt.UnixMilli(), IssuedAt: time.Now().UnixMilli()}
}

func (c Cursor) Token() (PageToken, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return PageToken(base64.RawURLEncoding.EncodeToString(raw)), nil
}

// Position returns the id and creation time the cursor points after.
func (c *Cursor) Position() (primitive.ObjectID, time.Time) {
	return c.ID, time.UnixMilli(c.At)
}

// Decode parses the token. An empty token yields a nil cursor, meaning the first page.
func (t PageToken) Decode() (*Cursor, error) {
	if t == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(string(t))
	if err != nil {
		return nil, ErrInvalidToken
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil || c.ID.IsZero() {
		return nil, ErrInvalidToken
	}
	if time.Since(time.UnixMilli(c.IssuedAt)) > TokenTTL {
		return nil, ErrInvalidToken
	}
	return &c, nil
}
