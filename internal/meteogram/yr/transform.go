package yr

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/i474232898/yr-meteogram/internal/meteogram"
)

// Height of the header band (location name, logo) and the footer band
// (legend, credits) of a Yr meteogram, in SVG user units.
const (
	cropTop    = 36.0
	cropBottom = 28.0
)

const (
	darkBackground = "#1b1b1b"
	darkForeground = "#e1e4e6"
	unhiddenColor  = "#c3d0d8"

	// Colours darker than this stay invisible on the dark background.
	hiddenLuminance = 0.2
)

// darkPalette maps the light theme colours to their dark counterparts.
var darkPalette = map[string]string{
	"#ffffff": darkBackground,
	"#000000": darkForeground,
	"#21292b": darkForeground,
	"#56616c": "#a3aeb8",
}

var (
	rootTagRe  = regexp.MustCompile(`<svg\b[^>]*>`)
	firstRect  = regexp.MustCompile(`<rect\b[^>]*>`)
	colorRe    = regexp.MustCompile(`\b(fill|stroke|stop-color)(\s*=\s*"|\s*:\s*)(#[0-9A-Fa-f]{6}|#[0-9A-Fa-f]{3}|white|black)\b`)
	numberRe   = regexp.MustCompile(`^\s*([0-9]*\.?[0-9]+)`)
	viewBoxSep = regexp.MustCompile(`[\s,]+`)
)

// Transform applies the rendering settings to a meteogram document.
// The zero Settings value returns svg unchanged.
func Transform(svg string, s meteogram.Settings) string {
	if s.MakeTransparent {
		svg = makeTransparent(svg)
	}
	if s.Crop {
		svg = crop(svg)
	}
	if s.DarkMode {
		svg = darken(svg, s.UnhideDarkObjects)
	}
	return svg
}

// makeTransparent clears the fill of the background, which is the first rect.
func makeTransparent(svg string) string {
	loc := firstRect.FindStringIndex(svg)
	if loc == nil {
		return svg
	}
	tag := setAttr(svg[loc[0]:loc[1]], "fill", "none")
	return svg[:loc[0]] + tag + svg[loc[1]:]
}

// crop trims the header and footer bands off the root viewBox and scales the
// height to match.
func crop(svg string) string {
	loc := rootTagRe.FindStringIndex(svg)
	if loc == nil {
		return svg
	}
	tag := svg[loc[0]:loc[1]]

	box, ok := viewBox(tag)
	if !ok {
		return svg
	}
	newHeight := box[3] - cropTop - cropBottom
	if newHeight <= 0 {
		return svg
	}

	if h, ok := getAttr(tag, "height"); ok {
		if m := numberRe.FindStringSubmatch(h); m != nil {
			old, _ := strconv.ParseFloat(m[1], 64)
			scaled := old * newHeight / box[3]
			tag = setAttr(tag, "height", formatNumber(scaled)+strings.TrimPrefix(h, m[0]))
		}
	}
	tag = setAttr(tag, "viewBox", fmt.Sprintf("%s %s %s %s",
		formatNumber(box[0]),
		formatNumber(box[1]+cropTop),
		formatNumber(box[2]),
		formatNumber(newHeight),
	))
	return svg[:loc[0]] + tag + svg[loc[1]:]
}

// viewBox reads the root viewBox, falling back to width and height.
func viewBox(tag string) ([4]float64, bool) {
	var box [4]float64
	if vb, ok := getAttr(tag, "viewBox"); ok {
		parts := viewBoxSep.Split(strings.TrimSpace(vb), -1)
		if len(parts) != 4 {
			return box, false
		}
		for i, p := range parts {
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return box, false
			}
			box[i] = f
		}
		return box, true
	}

	w, okW := getAttr(tag, "width")
	h, okH := getAttr(tag, "height")
	if !okW || !okH {
		return box, false
	}
	mw, mh := numberRe.FindStringSubmatch(w), numberRe.FindStringSubmatch(h)
	if mw == nil || mh == nil {
		return box, false
	}
	box[2], _ = strconv.ParseFloat(mw[1], 64)
	box[3], _ = strconv.ParseFloat(mh[1], 64)
	return box, true
}

// darken swaps the light palette for the dark one. With unhide set, colours
// that would still vanish against the dark background are lifted.
func darken(svg string, unhide bool) string {
	return colorRe.ReplaceAllStringFunc(svg, func(m string) string {
		sub := colorRe.FindStringSubmatch(m)
		color := normalizeColor(sub[3])
		if mapped, ok := darkPalette[color]; ok {
			return sub[1] + sub[2] + mapped
		}
		if unhide && luminance(color) < hiddenLuminance {
			return sub[1] + sub[2] + unhiddenColor
		}
		return m
	})
}

func normalizeColor(c string) string {
	c = strings.ToLower(c)
	switch c {
	case "white":
		return "#ffffff"
	case "black":
		return "#000000"
	}
	if len(c) == 4 {
		return "#" + strings.Repeat(c[1:2], 2) + strings.Repeat(c[2:3], 2) + strings.Repeat(c[3:4], 2)
	}
	return c
}

// luminance is the relative luminance of a #rrggbb colour.
func luminance(hex string) float64 {
	if len(hex) != 7 {
		return 1
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return 1
	}
	channel := func(c uint64) float64 {
		f := float64(c) / 255
		if f <= 0.03928 {
			return f / 12.92
		}
		return math.Pow((f+0.055)/1.055, 2.4)
	}
	r, g, b := channel(v>>16&0xff), channel(v>>8&0xff), channel(v&0xff)
	return 0.2126*r + 0.7152*g + 0.0722*b
}

func attrRe(name string) *regexp.Regexp {
	return regexp.MustCompile(`(\s` + regexp.QuoteMeta(name) + `\s*=\s*)"([^"]*)"`)
}

// getAttr reads a double-quoted attribute of a single start tag.
func getAttr(tag, name string) (string, bool) {
	m := attrRe(name).FindStringSubmatch(tag)
	if m == nil {
		return "", false
	}
	return m[2], true
}

// setAttr replaces or appends a double-quoted attribute of a single start tag.
func setAttr(tag, name, value string) string {
	re := attrRe(name)
	if re.MatchString(tag) {
		return re.ReplaceAllString(tag, "${1}\""+strings.ReplaceAll(value, "$", "$$")+"\"")
	}
	end := len(tag) - 1
	if strings.HasSuffix(tag, "/>") {
		end = len(tag) - 2
	}
	return tag[:end] + " " + name + "=\"" + value + "\"" + tag[end:]
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
