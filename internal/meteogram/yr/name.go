package yr

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

var errNoLocationName = errors.New("no location name in document")

// LocationName extracts the location name from a meteogram document: the
// first non-blank <title>, else the first non-blank <text>, else the first
// non-blank character data anywhere. It implements meteogram.NameExtractor.
func LocationName(svg string) (string, error) {
	d := xml.NewDecoder(strings.NewReader(svg))
	d.Entity = xml.HTMLEntity

	var (
		stack               []string
		title, text, anyTxt string
	)
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse meteogram: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			s := strings.Join(strings.Fields(string(t)), " ")
			if s == "" || len(stack) == 0 {
				continue
			}
			switch {
			case title == "" && inElement(stack, "title"):
				title = s
			case text == "" && inElement(stack, "text"):
				text = s
			}
			if anyTxt == "" {
				anyTxt = s
			}
		}
	}

	for _, name := range []string{title, text, anyTxt} {
		if name != "" {
			return name, nil
		}
	}
	return "", errNoLocationName
}

func inElement(stack []string, name string) bool {
	for _, el := range stack {
		if el == name {
			return true
		}
	}
	return false
}
