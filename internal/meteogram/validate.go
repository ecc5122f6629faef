package meteogram

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Validator checks user input against the remote service before an entry is
// created.
type Validator struct {
	fetcher Fetcher
	extract NameExtractor
	log     *zap.Logger
}

// NewValidator creates a new Validator.
func NewValidator(fetcher Fetcher, extract NameExtractor, log *zap.Logger) *Validator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{
		fetcher: fetcher,
		extract: extract,
		log:     log,
	}
}

// Validate fetches the meteogram for locationID with the requested settings and
// returns the location name to use as the entry title.
//
// A failing first fetch yields ErrValidation. The title comes from a second,
// plain fetch because the name extractor expects the canonical document; any
// failure from that point on yields ErrUnexpected.
func (v *Validator) Validate(ctx context.Context, locationID string, s Settings) (string, error) {
	if _, err := v.fetcher.FetchSVG(ctx, locationID, s); err != nil {
		v.log.Error("validation fetch failed",
			zap.String("location_id", locationID),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}

	svg, err := v.fetcher.FetchSVG(ctx, locationID, Settings{})
	if err != nil {
		return "", fmt.Errorf("%w: fetch canonical meteogram: %v", ErrUnexpected, err)
	}

	title, err := v.extract(svg)
	if err != nil {
		return "", fmt.Errorf("%w: extract location name: %v", ErrUnexpected, err)
	}
	return title, nil
}
