package transform

import (
	"strconv"
	"strings"
)

// mediaMatches evaluates a media query list against the viewport. Features
// it cannot evaluate are treated as matching.
func mediaMatches(prelude string, vp Viewport) bool {
	queries := splitSelectors(strings.ToLower(prelude))
	if len(queries) == 0 {
		return true
	}
	for _, q := range queries {
		if mediaQueryMatches(q, vp) {
			return true
		}
	}
	return false
}

func mediaQueryMatches(q string, vp Viewport) bool {
	q = strings.TrimSpace(q)
	negate := false
	if rest, ok := strings.CutPrefix(q, "not "); ok {
		negate, q = true, rest
	}
	q = strings.TrimPrefix(q, "only ")

	result := true
	for _, part := range strings.Split(q, " and ") {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
		case strings.HasPrefix(part, "("):
			if !featureMatches(strings.TrimSuffix(strings.TrimPrefix(part, "("), ")"), vp) {
				result = false
			}
		case part != "all" && part != "screen":
			result = false
		}
	}
	if negate {
		return !result
	}
	return result
}

func featureMatches(feature string, vp Viewport) bool {
	name, value, ok := strings.Cut(feature, ":")
	if !ok {
		return true
	}
	name, value = strings.TrimSpace(name), strings.TrimSpace(value)

	switch name {
	case "orientation":
		if vp.Width >= vp.Height {
			return value == "landscape"
		}
		return value == "portrait"
	case "prefers-color-scheme":
		return value == "light"
	case "prefers-reduced-motion":
		return value == "no-preference"
	}

	px, ok := lengthPX(value)
	if !ok {
		return true
	}
	w, h := float64(vp.Width), float64(vp.Height)
	switch name {
	case "min-width":
		return w >= px
	case "max-width":
		return w <= px
	case "width":
		return w == px
	case "min-height":
		return h >= px
	case "max-height":
		return h <= px
	case "height":
		return h == px
	}
	return true
}

// lengthPX converts px, em and rem lengths to pixels (1em = 16px).
func lengthPX(v string) (float64, bool) {
	unit := 1.0
	switch {
	case strings.HasSuffix(v, "rem"):
		v, unit = strings.TrimSuffix(v, "rem"), 16
	case strings.HasSuffix(v, "em"):
		v, unit = strings.TrimSuffix(v, "em"), 16
	case strings.HasSuffix(v, "px"):
		v = strings.TrimSuffix(v, "px")
	case v == "0":
	default:
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f * unit, true
}
