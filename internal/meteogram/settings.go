package meteogram

// Resolve computes the effective settings of an entry. Each flag is taken from
// the options overlay when set, else from the original data, else the default.
func Resolve(e Entry) Settings {
	return Settings{
		DarkMode:          pick(e.Options.DarkMode, e.Data.DarkMode, DefaultDarkMode),
		Crop:              pick(e.Options.Crop, e.Data.Crop, DefaultCrop),
		MakeTransparent:   pick(e.Options.MakeTransparent, e.Data.MakeTransparent, DefaultMakeTransparent),
		UnhideDarkObjects: pick(e.Options.UnhideDarkObjects, e.Data.UnhideDarkObjects, DefaultUnhideDarkObjects),
	}
}

// ResolveFlags applies the same precedence to a bare set of flags, as used for
// form input that did not go through an entry yet.
func ResolveFlags(f Flags) Settings {
	return Resolve(Entry{Data: EntryData{Flags: f}})
}

func pick(overlay, original *bool, def bool) bool {
	if overlay != nil {
		return *overlay
	}
	if original != nil {
		return *original
	}
	return def
}
