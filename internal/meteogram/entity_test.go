package meteogram_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/yr-meteogram/internal/meteogram"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		settings meteogram.Settings
		want     string
	}{
		{meteogram.Settings{}, "Meteogram"},
		{meteogram.Settings{DarkMode: true}, "Meteogram Dark"},
		{meteogram.Settings{Crop: true}, "Meteogram Cropped"},
		{meteogram.Settings{MakeTransparent: true}, "Meteogram Transparent"},
		{meteogram.Settings{DarkMode: true, MakeTransparent: true}, "Meteogram Dark Transparent"},
		{meteogram.Settings{DarkMode: true, Crop: true, MakeTransparent: true}, "Meteogram Dark Cropped Transparent"},
		{meteogram.Settings{UnhideDarkObjects: true}, "Meteogram"},
		{meteogram.Settings{DarkMode: true, UnhideDarkObjects: true}, "Meteogram Dark"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, meteogram.DisplayName(tt.settings), "%+v", tt.settings)
	}
}

func TestImageEntity_BeforeFirstSuccess(t *testing.T) {
	c := meteogram.NewCoordinator("entry-1", newMapStore(osloEntry(meteogram.Flags{})), &stubFetcher{err: errors.New("down")})
	require.Error(t, c.Refresh(context.Background()))

	e := meteogram.NewImageEntity(c, osloName)

	assert.Nil(t, e.Image())
	assert.Nil(t, e.ImageLastUpdated())
	assert.Equal(t, "Yr Meteogram", e.DeviceInfo().Name)
	assert.Equal(t, "image.yr_meteogram_meteogram", e.EntityID())
	assert.Equal(t, "entry-1_image", e.UniqueID())
	assert.Equal(t, "image/svg+xml", e.ContentType())
}

func TestImageEntity_DerivesFromCoordinator(t *testing.T) {
	entries := newMapStore(osloEntry(meteogram.Flags{DarkMode: meteogram.Bool(true)}))
	c := meteogram.NewCoordinator("entry-1", entries, &stubFetcher{svg: "<svg><title>Oslo</title></svg>"})
	require.NoError(t, c.Refresh(context.Background()))

	e := meteogram.NewImageEntity(c, osloName)

	assert.Equal(t, []byte("<svg><title>Oslo</title></svg>"), e.Image())
	require.NotNil(t, e.ImageLastUpdated())
	ts, _ := c.LastUpdateSuccessTime()
	assert.Equal(t, ts, *e.ImageLastUpdated())

	assert.Equal(t, "Meteogram Dark", e.Name())
	assert.Equal(t, meteogram.DeviceInfo{
		Identifiers:  [][2]string{{"yr_meteogram", "2-5847504"}},
		Name:         "Oslo",
		Manufacturer: "Yr.no",
		Model:        "Meteogram",
	}, e.DeviceInfo())
	assert.Equal(t, "image.oslo_meteogram_dark", e.EntityID())

	// Options change the name but never the entity id.
	_, err := entries.UpdateOptions("entry-1", meteogram.Flags{DarkMode: meteogram.Bool(false), Crop: meteogram.Bool(true)})
	require.NoError(t, err)
	assert.Equal(t, "Meteogram Cropped", e.Name())
	assert.Equal(t, "image.oslo_meteogram_dark", e.EntityID())
}

func TestImageEntity_DeviceInfoOutlivesEntry(t *testing.T) {
	entries := newMapStore(osloEntry(meteogram.Flags{}))
	c := meteogram.NewCoordinator("entry-1", entries, &stubFetcher{svg: "<svg/>"})
	require.NoError(t, c.Refresh(context.Background()))
	e := meteogram.NewImageEntity(c, osloName)

	require.NoError(t, entries.Delete("entry-1"))

	assert.Equal(t, [][2]string{{"yr_meteogram", "2-5847504"}}, e.DeviceInfo().Identifiers)
	assert.Equal(t, "Oslo", e.DeviceInfo().Name)
}

func TestImageEntity_ExtractorFailureFallsBack(t *testing.T) {
	c := meteogram.NewCoordinator("entry-1", newMapStore(osloEntry(meteogram.Flags{})), &stubFetcher{svg: "<svg/>"})
	require.NoError(t, c.Refresh(context.Background()))

	e := meteogram.NewImageEntity(c, func(string) (string, error) { return "", errors.New("no name") })

	assert.Equal(t, "Yr Meteogram", e.DeviceInfo().Name)
	assert.Equal(t, []byte("<svg/>"), e.Image())
}

func TestImageEntity_EntityIDKeepsUnicodeLetters(t *testing.T) {
	c := meteogram.NewCoordinator("entry-1", newMapStore(osloEntry(meteogram.Flags{})), &stubFetcher{svg: "<svg/>"})
	require.NoError(t, c.Refresh(context.Background()))

	e := meteogram.NewImageEntity(c, func(string) (string, error) { return "Tromsø, Troms", nil })

	assert.Equal(t, "image.tromsø_troms_meteogram", e.EntityID())
}
