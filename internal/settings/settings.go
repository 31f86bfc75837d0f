// Package settings holds the user's bionic reading preferences and the
// stores they are persisted in.
package settings

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/dgallion1/bionic/internal/bionic"
)

// Persisted field names.
const (
	KeyEnabled   = "bionicEnabled"
	KeyBoldRatio = "boldRatio"
)

// Settings is a snapshot of the user's preferences.
type Settings struct {
	Enabled   bool `json:"bionicEnabled"`
	BoldRatio int  `json:"boldRatio"`
}

// Store loads and saves Settings. Load returns Default() when nothing is
// stored yet.
type Store interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
}

func Default() Settings {
	return Settings{Enabled: true, BoldRatio: bionic.DefaultRatio}
}

// Normalize clamps the ratio into 1..100. A zero ratio means unset and
// becomes the default.
func (s Settings) Normalize() Settings {
	if s.BoldRatio == 0 {
		s.BoldRatio = bionic.DefaultRatio
	}
	s.BoldRatio = bionic.ClampRatio(s.BoldRatio)
	return s
}

// FromMap decodes loosely typed stored values. Missing or malformed fields
// fall back to their defaults; nothing here fails.
func FromMap(m map[string]any) Settings {
	s := Default()
	if v, ok := m[KeyEnabled]; ok {
		if b, ok := toBool(v); ok {
			s.Enabled = b
		}
	}
	if v, ok := m[KeyBoldRatio]; ok {
		if n, ok := toInt(v); ok {
			s.BoldRatio = n
		}
	}
	return s.Normalize()
}

// ToMap is the inverse of FromMap.
func (s Settings) ToMap() map[string]any {
	return map[string]any{
		KeyEnabled:   s.Enabled,
		KeyBoldRatio: s.BoldRatio,
	}
}

// LooseBool decodes a single loosely typed flag. ok is false for nil or a
// value of the wrong type.
func LooseBool(v any) (b bool, ok bool) { return toBool(v) }

// LooseInt decodes a single loosely typed integer, rounding fractions.
func LooseInt(v any) (n int, ok bool) { return toInt(v) }

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return parsed, err == nil
	}
	return false, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		if n > math.MaxInt32 {
			return math.MaxInt32, true
		}
		if n < math.MinInt32 {
			return math.MinInt32, true
		}
		return int(math.Round(n)), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		return parsed, err == nil
	}
	return 0, false
}
