package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ResolveRemaining interprets the stored remaining-quantity field. A blank or
// absent value means "no progress recorded yet" and defaults to the full
// impressions count, never to zero. The store may hand the value back as a
// number or as text with thousands separators; both parse to the same result.
func ResolveRemaining(stored interface{}, impressions int64) (int64, error) {
	if stored == nil {
		return impressions, nil
	}
	if s, ok := stored.(string); ok && strings.TrimSpace(s) == "" {
		return impressions, nil
	}
	return ParseQuantity(stored)
}

// ParseQuantity coerces a raw field value to an integer quantity. Comma
// separators are stripped before parsing. Anything that does not parse as a
// finite number is a MalformedQuantityError.
func ParseQuantity(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, &MalformedQuantityError{Raw: fmt.Sprint(v)}
		}
		return int64(math.Round(v)), nil
	case string:
		cleaned := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, &MalformedQuantityError{Raw: v}
		}
		return int64(math.Round(f)), nil
	default:
		return 0, &MalformedQuantityError{Raw: fmt.Sprint(raw)}
	}
}
