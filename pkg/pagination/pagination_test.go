package pagination

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCursorToken(t *testing.T) {
	id := primitive.NewObjectID()
	at := time.Date(2026, 3, 1, 9, 30, 0, 123_000_000, time.UTC)

	token, err := NewCursor(id, at).Token()
	require.NoError(t, err)

	cursor, err := token.Decode()
	require.NoError(t, err)
	gotID, gotAt := cursor.Position()
	assert.Equal(t, id, gotID)
	assert.True(t, at.Equal(gotAt))

	first, err := PageToken("").Decode()
	require.NoError(t, err)
	assert.Nil(t, first)
}

func TestCursorToken_Invalid(t *testing.T) {
	encode := func(v any) PageToken {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		return PageToken(base64.RawURLEncoding.EncodeToString(b))
	}

	cases := map[string]PageToken{
		"not base64": "%%%",
		"not json":   PageToken(base64.RawURLEncoding.EncodeToString([]byte("nope"))),
		"bad id":     encode(map[string]any{"id": "xyz", "iat": time.Now().UnixMilli()}),
		"missing id": encode(map[string]any{"at": 1, "iat": time.Now().UnixMilli()}),
		"stale": encode(Cursor{
			ID:       primitive.NewObjectID(),
			IssuedAt: time.Now().Add(-TokenTTL - time.Hour).UnixMilli(),
		}),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := token.Decode()
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPageRequest(t *testing.T) {
	req := NewPageRequest(0, 0)
	assert.Equal(t, 1, req.Number)
	assert.Equal(t, DefaultPageSize, req.Size)
	assert.Equal(t, int64(0), req.Skip())

	req = NewPageRequest(3, 500)
	assert.Equal(t, int64(MaxPageSize), req.Limit())
	assert.Equal(t, int64(200), req.Skip())
}

func TestNewPage(t *testing.T) {
	page := NewPage([]int{1, 2}, 21, NewPageRequest(1, 10))
	assert.Equal(t, int64(3), page.TotalPages)
	assert.Equal(t, []int{1, 2}, page.Items)

	empty := NewPage[string](nil, 0, NewPageRequest(1, 10))
	assert.NotNil(t, empty.Items)
	assert.Equal(t, int64(0), empty.TotalPages)
}
