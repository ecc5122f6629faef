package meteogram

import (
	"strings"
	"time"
	"unicode"
)

const (
	fallbackDeviceName = "Yr Meteogram"
	manufacturer       = "Yr.no"
	model              = "Meteogram"
	baseEntityName     = "Meteogram"
)

// ImageEntity is the read-only view of a coordinator exposed to clients.
// Apart from the entity id, every field is derived on access.
type ImageEntity struct {
	coordinator *Coordinator
	extract     NameExtractor
	entityID    string
	locationID  string
}

// NewImageEntity creates the entity for a coordinator. The entity id and the
// location id are captured once; the location id never changes for an entry.
func NewImageEntity(c *Coordinator, extract NameExtractor) *ImageEntity {
	e := &ImageEntity{
		coordinator: c,
		extract:     extract,
	}
	if entry, err := c.Entry(); err == nil {
		e.locationID = entry.Data.LocationID
	}
	e.entityID = "image." + slugify(e.DeviceInfo().Name+" "+e.Name())
	return e
}

// EntityID returns the id assigned at registration.
func (e *ImageEntity) EntityID() string {
	return e.entityID
}

// UniqueID returns the stable id of the entity.
func (e *ImageEntity) UniqueID() string {
	return e.coordinator.EntryID() + "_image"
}

// ContentType is always SVG.
func (e *ImageEntity) ContentType() string {
	return ContentTypeSVG
}

// Name composes the display name from the active rendering flags.
func (e *ImageEntity) Name() string {
	return DisplayName(e.coordinator.Settings())
}

// Image returns the cached SVG bytes, nil when there is no image yet.
func (e *ImageEntity) Image() []byte {
	return e.coordinator.Data()
}

// ImageLastUpdated returns the time of the last successful fetch, nil before one.
func (e *ImageEntity) ImageLastUpdated() *time.Time {
	ts, ok := e.coordinator.LastUpdateSuccessTime()
	if !ok {
		return nil
	}
	return &ts
}

// DeviceInfo identifies the device by location id and labels it with the
// location name parsed from the cached image when possible.
func (e *ImageEntity) DeviceInfo() DeviceInfo {
	return DeviceInfo{
		Identifiers:  [][2]string{{Domain, e.locationID}},
		Name:         e.locationName(),
		Manufacturer: manufacturer,
		Model:        model,
	}
}

func (e *ImageEntity) locationName() string {
	data := e.coordinator.Data()
	if len(data) == 0 || e.extract == nil {
		return fallbackDeviceName
	}
	name, err := e.extract(string(data))
	if err != nil || name == "" {
		return fallbackDeviceName
	}
	return name
}

// DisplayName is "Meteogram" followed by Dark, Cropped and Transparent for each
// active flag, in that order. UnhideDarkObjects does not contribute.
func DisplayName(s Settings) string {
	parts := []string{baseEntityName}
	if s.DarkMode {
		parts = append(parts, "Dark")
	}
	if s.Crop {
		parts = append(parts, "Cropped")
	}
	if s.MakeTransparent {
		parts = append(parts, "Transparent")
	}
	return strings.Join(parts, " ")
}

func slugify(s string) string {
	var b strings.Builder
	sep := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			sep = false
			continue
		}
		sep = true
	}
	return b.String()
}
