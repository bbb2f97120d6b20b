package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	id        string
	createdAt time.Time
}

func TestNormalizeSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, NormalizeSize(0))
	assert.Equal(t, DefaultPageSize, NormalizeSize(-3))
	assert.Equal(t, 7, NormalizeSize(7))
	assert.Equal(t, MaxPageSize, NormalizeSize(1000))
}

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 5, 9, 0, 0, 123, time.FixedZone("WIB", 7*3600))
	token, err := EncodeCursor(NewCursor("42", at))
	require.NoError(t, err)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor.ID)

	parsed, err := cursor.Time()
	require.NoError(t, err)
	assert.True(t, parsed.Equal(at))

	_, err = DecodeCursor("not a token")
	assert.Error(t, err)
}

func TestPageTrimsLookaheadRow(t *testing.T) {
	base := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	rows := []*row{
		{id: "3", createdAt: base.Add(2 * time.Minute)},
		{id: "2", createdAt: base.Add(time.Minute)},
		{id: "1", createdAt: base},
	}
	cursorOf := func(r *row) Cursor { return NewCursor(r.id, r.createdAt) }

	page, info := Page(rows, 2, cursorOf)
	require.Len(t, page, 2)
	assert.True(t, info.HasMore)

	cursor, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "2", cursor.ID)

	page, info = Page(rows, 3, cursorOf)
	assert.Len(t, page, 3)
	assert.False(t, info.HasMore)
	assert.Empty(t, info.NextPageToken)
}
