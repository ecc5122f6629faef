package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/yr-meteogram/internal/meteogram"
)

func testEntry(id, uniqueID string, created time.Time) meteogram.Entry {
	return meteogram.Entry{
		ID:       id,
		Domain:   meteogram.Domain,
		Title:    "Oslo",
		UniqueID: uniqueID,
		Data: meteogram.EntryData{
			LocationID: "2-5847504",
			Flags:      meteogram.Settings{}.Flags(),
		},
		CreatedAt: created,
	}
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestMemoryStore_AddGet(t *testing.T) {
	s := NewMemoryStore()
	e := testEntry("a", "u-a", t0)

	require.NoError(t, s.Add(e))

	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, e, got)

	_, err = s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_RejectsDuplicates(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Add(testEntry("a", "u-a", t0)))

	assert.ErrorIs(t, s.Add(testEntry("a", "u-b", t0)), meteogram.ErrAlreadyConfigured)
	assert.ErrorIs(t, s.Add(testEntry("b", "u-a", t0)), meteogram.ErrAlreadyConfigured)
	assert.Error(t, s.Add(testEntry("", "u-c", t0)))
	assert.Len(t, s.List(), 1)
}

func TestMemoryStore_ListOrder(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Add(testEntry("c", "u-c", t0.Add(time.Hour))))
	require.NoError(t, s.Add(testEntry("b", "u-b", t0)))
	require.NoError(t, s.Add(testEntry("a", "u-a", t0)))

	var ids []string
	for _, e := range s.List() {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestMemoryStore_FindByUniqueID(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Add(testEntry("a", "u-a", t0)))

	got, ok := s.FindByUniqueID("u-a")
	require.True(t, ok)
	assert.Equal(t, "a", got.ID)

	_, ok = s.FindByUniqueID("u-x")
	assert.False(t, ok)
}

func TestMemoryStore_UpdateOptionsLeavesDataAlone(t *testing.T) {
	s := NewMemoryStore()
	e := testEntry("a", "u-a", t0)
	require.NoError(t, s.Add(e))

	opts := meteogram.Flags{DarkMode: meteogram.Bool(true)}
	updated, err := s.UpdateOptions("a", opts)
	require.NoError(t, err)
	assert.Equal(t, opts, updated.Options)
	assert.Equal(t, e.Data, updated.Data)

	_, err = s.UpdateOptions("missing", opts)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Add(testEntry("a", "u-a", t0)))

	got, err := s.Get("a")
	require.NoError(t, err)
	*got.Data.DarkMode = true

	again, err := s.Get("a")
	require.NoError(t, err)
	assert.False(t, *again.Data.DarkMode)
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Add(testEntry("a", "u-a", t0)))

	require.NoError(t, s.Delete("a"))
	assert.Empty(t, s.List())
	assert.ErrorIs(t, s.Delete("a"), ErrNotFound)

	// The unique id is free again.
	assert.NoError(t, s.Add(testEntry("b", "u-a", t0)))
}
