package meteogram

import (
	"fmt"
	"time"
)

const (
	// Domain identifies this integration in unique ids and device identifiers.
	Domain = "yr_meteogram"

	// UpdateInterval is the fixed cadence at which every entry is refreshed.
	UpdateInterval = 30 * time.Minute

	// ContentTypeSVG is the content type of every cached image.
	ContentTypeSVG = "image/svg+xml"
)

// Defaults used when neither the overlay nor the original data set a flag.
const (
	DefaultDarkMode          = false
	DefaultCrop              = false
	DefaultMakeTransparent   = false
	DefaultUnhideDarkObjects = false
)

// Flags holds the four optional rendering flags. A nil field means "not set"
// so the resolver can fall through to the next tier.
type Flags struct {
	DarkMode          *bool `json:"dark_mode,omitempty" yaml:"dark_mode,omitempty"`
	Crop              *bool `json:"crop,omitempty" yaml:"crop,omitempty"`
	MakeTransparent   *bool `json:"make_transparent,omitempty" yaml:"make_transparent,omitempty"`
	UnhideDarkObjects *bool `json:"unhide_dark_objects,omitempty" yaml:"unhide_dark_objects,omitempty"`
}

// EntryData is the original configuration captured when the entry was created.
// LocationID never changes for the lifetime of an entry.
type EntryData struct {
	LocationID string `json:"location_id" yaml:"location_id"`
	Flags      `yaml:",inline"`
}

// Entry is a persisted configuration record: the original data plus an
// overlay of options that can be edited later.
type Entry struct {
	ID        string    `json:"entry_id" yaml:"entry_id"`
	Domain    string    `json:"domain" yaml:"domain"`
	Title     string    `json:"title" yaml:"title"`
	UniqueID  string    `json:"unique_id" yaml:"unique_id"`
	Data      EntryData `json:"data" yaml:"data"`
	Options   Flags     `json:"options" yaml:"options"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Settings is the effective rendering configuration after resolution.
// The zero value is the plain (un-flagged) meteogram.
type Settings struct {
	DarkMode          bool `json:"dark_mode"`
	Crop              bool `json:"crop"`
	MakeTransparent   bool `json:"make_transparent"`
	UnhideDarkObjects bool `json:"unhide_dark_objects"`
}

// Flags returns the settings with every flag explicitly set.
func (s Settings) Flags() Flags {
	return Flags{
		DarkMode:          Bool(s.DarkMode),
		Crop:              Bool(s.Crop),
		MakeTransparent:   Bool(s.MakeTransparent),
		UnhideDarkObjects: Bool(s.UnhideDarkObjects),
	}
}

// UniqueID returns the key used to reject duplicate entries: the same location
// may be configured more than once as long as the flags differ.
func UniqueID(locationID string, s Settings) string {
	return fmt.Sprintf("%s_%t_%t_%t_%t", locationID, s.DarkMode, s.Crop, s.MakeTransparent, s.UnhideDarkObjects)
}

// DeviceInfo describes the device an image entity belongs to.
type DeviceInfo struct {
	Identifiers  [][2]string `json:"identifiers"`
	Name         string      `json:"name"`
	Manufacturer string      `json:"manufacturer"`
	Model        string      `json:"model"`
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}
