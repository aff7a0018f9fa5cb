package pagination_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/returns-engine/pkg/db/dbtest"
	"github.com/angelmondragon/returns-engine/pkg/db/models"
	"github.com/angelmondragon/returns-engine/pkg/enums"
	"github.com/angelmondragon/returns-engine/pkg/pagination"
)

func TestCursorEncodingIsURLSafe(t *testing.T) {
	in := pagination.Cursor{CreatedAt: time.Date(2026, 3, 1, 9, 30, 0, 123, time.FixedZone("ICT", 7*3600)), ID: uuid.New()}
	encoded := in.Encode()
	assert.NotContains(t, encoded, "=")
	assert.NotContains(t, encoded, "+")
	assert.NotContains(t, encoded, "/")

	out, err := pagination.ParseCursor(encoded)
	require.NoError(t, err)
	assert.True(t, out.CreatedAt.Equal(in.CreatedAt))
	assert.Equal(t, time.UTC, out.CreatedAt.Location())
	assert.Equal(t, in.ID, out.ID)
}

func TestParseCursorRejectsForeignInput(t *testing.T) {
	c, err := pagination.ParseCursor("  ")
	require.NoError(t, err)
	assert.Nil(t, c)

	for _, raw := range []string{
		"not base64!",
		base64.RawURLEncoding.EncodeToString([]byte("2026-01-01T00:00:00Z|" + uuid.NewString())),
		base64.RawURLEncoding.EncodeToString([]byte("v2|2026-01-01T00:00:00Z|" + uuid.NewString())),
		base64.RawURLEncoding.EncodeToString([]byte("v1|yesterday|" + uuid.NewString())),
		base64.RawURLEncoding.EncodeToString([]byte("v1|2026-01-01T00:00:00Z|nope")),
	} {
		_, err := pagination.ParseCursor(raw)
		assert.ErrorIs(t, err, pagination.ErrInvalidCursor, raw)
	}
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, pagination.DefaultLimit, pagination.NormalizeLimit(0))
	assert.Equal(t, pagination.DefaultLimit, pagination.NormalizeLimit(-3))
	assert.Equal(t, pagination.MaxLimit, pagination.NormalizeLimit(500))
	assert.Equal(t, 7, pagination.NormalizeLimit(7))
}

func TestKeysetWalksEveryRowOnceAcrossTies(t *testing.T) {
	conn := dbtest.Open(t)
	user := dbtest.User(t, conn, enums.UserRoleUser)
	tie := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		createdAt := tie
		if i >= 3 {
			createdAt = tie.Add(-time.Duration(i) * time.Minute)
		}
		require.NoError(t, conn.Create(&models.Notification{
			UserID:    user.ID,
			Type:      enums.NotificationTypeReturnUpdate,
			Title:     "t",
			Message:   "m",
			CreatedAt: createdAt,
		}).Error)
	}

	key := func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	}
	seen := map[uuid.UUID]bool{}
	var cursor *pagination.Cursor
	pages := 0
	for {
		var rows []models.Notification
		require.NoError(t, pagination.Keyset(conn.Model(&models.Notification{}), cursor, 2).Find(&rows).Error)
		page, next := pagination.Page(rows, 2, key)
		pages++
		for _, n := range page {
			assert.False(t, seen[n.ID], "row %s served twice", n.ID)
			seen[n.ID] = true
		}
		if next == nil {
			break
		}
		cursor = next
	}
	assert.Len(t, seen, 5)
	assert.Equal(t, 3, pages)
}
