package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// ImageRequest is a validated, provider-ready image generation request.
type ImageRequest struct {
	Prompt     string
	Amount     int
	Resolution Resolution
}

// Image is a single generated image locator. URL is either a remote URL or a data URL, depending on the
// provider.
type Image struct {
	URL string `json:"url"`
}

// Resolution is an image size in WIDTHxHEIGHT form.
type Resolution string

// Resolutions is the set of sizes a deployment accepts.
type Resolutions []Resolution

// Amount limits, inclusive.
const (
	MinImageAmount     = 1
	MaxImageAmount     = 10
	DefaultImageAmount = 1
)

// DefaultResolution is used when a request does not name one.
const DefaultResolution Resolution = "512x512"

// DefaultResolutions are the sizes accepted when the configuration does not override them.
var DefaultResolutions = Resolutions{"256x256", "512x512", "1024x1024", "1792x1024", "1024x1792"}

// Validation errors.
var (
	ErrEmptyPrompt       = errors.New("prompt is required")
	ErrInvalidAmount     = errors.New("amount must be between 1 and 10")
	ErrInvalidResolution = errors.New("resolution is not supported")
)

// Contains reports whether r is part of the set.
func (rs Resolutions) Contains(r Resolution) bool {
	return slices.Contains(rs, r)
}

func (rs Resolutions) String() string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = string(r)
	}
	return strings.Join(parts, ", ")
}

// Dimensions splits r into width and height. It returns ok false when r is not in WIDTHxHEIGHT form.
func (r Resolution) Dimensions() (width, height int, ok bool) {
	w, h, found := strings.Cut(string(r), "x")
	if !found {
		return 0, 0, false
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return 0, 0, false
	}
	height, err = strconv.Atoi(h)
	if err != nil || height <= 0 {
		return 0, 0, false
	}
	return width, height, true
}

// ParseAmount decodes the amount field of an image request. The field may be absent or null (meaning the
// default), a JSON number, or a numeric JSON string, which is what HTML forms post. Anything that is not an
// integer in [MinImageAmount, MaxImageAmount] yields ErrInvalidAmount.
func ParseAmount(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return DefaultImageAmount, nil
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalidAmount, raw)
		}
		text = strings.TrimSpace(text)
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAmount, raw)
	}
	if f < MinImageAmount || f > MaxImageAmount {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAmount, raw)
	}
	return int(f), nil
}

// ParseResolution resolves the resolution field of an image request against the accepted set. A nil value
// means the field was absent and selects DefaultResolution, or the first accepted size when the set does
// not include it. An empty string is rejected.
func ParseResolution(value *string, accepted Resolutions) (Resolution, error) {
	if value == nil {
		if accepted.Contains(DefaultResolution) || len(accepted) == 0 {
			return DefaultResolution, nil
		}
		return accepted[0], nil
	}
	r := Resolution(*value)
	if !accepted.Contains(r) {
		return "", fmt.Errorf("%w: %q", ErrInvalidResolution, *value)
	}
	return r, nil
}
