package yr

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/i474232898/yr-meteogram/internal/meteogram"
)

func TestTransform_PlainIsUnchanged(t *testing.T) {
	assert.Equal(t, osloSVG, Transform(osloSVG, meteogram.Settings{}))
	assert.Equal(t, osloSVG, Transform(osloSVG, meteogram.Settings{UnhideDarkObjects: true}), "unhide alone does nothing")
}

func TestTransform_MakeTransparent(t *testing.T) {
	got := Transform(osloSVG, meteogram.Settings{MakeTransparent: true})

	assert.Contains(t, got, `<rect width="782" height="391" fill="none"/>`)
	assert.Contains(t, got, `fill="#21292b"`, "only the background rect changes")
}

func TestTransform_MakeTransparentAddsFill(t *testing.T) {
	got := Transform(`<svg><rect width="1"/><rect fill="#000000"/></svg>`, meteogram.Settings{MakeTransparent: true})

	assert.Equal(t, `<svg><rect width="1" fill="none"/><rect fill="#000000"/></svg>`, got)
}

func TestTransform_Crop(t *testing.T) {
	got := Transform(osloSVG, meteogram.Settings{Crop: true})

	assert.Contains(t, got, `viewBox="0 36 782 327"`)
	assert.Contains(t, got, `height="327"`)
	assert.Contains(t, got, `width="782"`)
}

func TestTransform_CropKeepsUnits(t *testing.T) {
	got := Transform(`<svg height="782px" viewBox="0 0 100 782"></svg>`, meteogram.Settings{Crop: true})

	assert.Equal(t, `<svg height="718px" viewBox="0 36 100 718"></svg>`, got)
}

func TestTransform_CropWithoutViewBox(t *testing.T) {
	got := Transform(`<svg width="200" height="100"></svg>`, meteogram.Settings{Crop: true})

	assert.Equal(t, `<svg width="200" height="36" viewBox="0 36 200 36"></svg>`, got)
}

func TestTransform_CropTooSmallIsNoop(t *testing.T) {
	in := `<svg viewBox="0 0 10 50"></svg>`
	assert.Equal(t, in, Transform(in, meteogram.Settings{Crop: true}))
}

func TestTransform_DarkMode(t *testing.T) {
	in := `<svg><rect fill="#FFFFFF"/><path stroke="#000"/><text style="fill:#56616c">Oslo</text><path fill="white"/></svg>`

	got := Transform(in, meteogram.Settings{DarkMode: true})

	assert.Equal(t, `<svg><rect fill="#1b1b1b"/><path stroke="#e1e4e6"/><text style="fill:#a3aeb8">Oslo</text><path fill="#1b1b1b"/></svg>`, got)
}

func TestTransform_UnhideDarkObjects(t *testing.T) {
	in := `<svg><path fill="#333333"/><path fill="#ff0000"/></svg>`

	hidden := Transform(in, meteogram.Settings{DarkMode: true})
	assert.Equal(t, in, hidden)

	unhidden := Transform(in, meteogram.Settings{DarkMode: true, UnhideDarkObjects: true})
	assert.Equal(t, `<svg><path fill="#c3d0d8"/><path fill="#ff0000"/></svg>`, unhidden)
}

func TestTransform_AllFlags(t *testing.T) {
	got := Transform(osloSVG, meteogram.Settings{DarkMode: true, Crop: true, MakeTransparent: true})

	assert.Contains(t, got, `viewBox="0 36 782 327"`)
	assert.Contains(t, got, `fill="none"`)
	assert.Contains(t, got, `fill="#e1e4e6">Oslo`)
	assert.NotContains(t, got, "#1b1b1b", "transparent background is not repainted")
}

func TestNormalizeColor(t *testing.T) {
	assert.Equal(t, "#aabbcc", normalizeColor("#ABC"))
	assert.Equal(t, "#ffffff", normalizeColor("White"))
	assert.Equal(t, "#123456", normalizeColor("#123456"))
}

func TestLuminance(t *testing.T) {
	assert.InDelta(t, 1.0, luminance("#ffffff"), 1e-9)
	assert.InDelta(t, 0.0, luminance("#000000"), 1e-9)
	assert.Equal(t, 1.0, luminance("bogus"))
}
