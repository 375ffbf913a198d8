package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Knouxai/Knoux-versa-sub002/internal/domain"
)

const defaultFreeTextLen = 500

func checkSpec(spec domain.SettingSpec) error {
	if strings.TrimSpace(spec.Key) == "" {
		return fmt.Errorf("setting without key")
	}
	switch spec.Kind {
	case domain.SettingIntRange:
		if spec.Min > spec.Max {
			return fmt.Errorf("setting %q: min %d above max %d", spec.Key, spec.Min, spec.Max)
		}
	case domain.SettingEnumChoice:
		if len(spec.Options) == 0 {
			return fmt.Errorf("setting %q: no options", spec.Key)
		}
	case domain.SettingBool, domain.SettingFreeText:
	default:
		return fmt.Errorf("setting %q: unknown kind %q", spec.Key, spec.Kind)
	}
	if _, err := defaultValue(spec); err != nil {
		return fmt.Errorf("setting %q: default: %w", spec.Key, err)
	}
	return nil
}

func defaultValue(spec domain.SettingSpec) (domain.SettingValue, error) {
	switch spec.Kind {
	case domain.SettingIntRange:
		if spec.Default == "" {
			return domain.IntValue(spec.Min), nil
		}
		return coerce(spec, spec.Default)
	case domain.SettingEnumChoice:
		if spec.Default == "" {
			return domain.ChoiceValue(spec.Options[0]), nil
		}
		return coerce(spec, spec.Default)
	case domain.SettingBool:
		if spec.Default == "" {
			return domain.BoolValue(false), nil
		}
		return coerce(spec, spec.Default)
	default:
		return coerce(spec, spec.Default)
	}
}

// ResolveSettings validates raw values against specs. Unknown keys are
// rejected and missing keys take their defaults.
func ResolveSettings(specs []domain.SettingSpec, raw map[string]any) (domain.Settings, error) {
	for key := range raw {
		if !slices.ContainsFunc(specs, func(s domain.SettingSpec) bool { return s.Key == key }) {
			return nil, invalid(KindInvalidSetting, key, "unknown setting")
		}
	}
	if len(specs) == 0 {
		return nil, nil
	}
	out := make(domain.Settings, len(specs))
	for _, spec := range specs {
		v, ok := raw[spec.Key]
		if !ok || v == nil {
			def, err := defaultValue(spec)
			if err != nil {
				return nil, invalid(KindInvalidSetting, spec.Key, "%v", err)
			}
			out[spec.Key] = def
			continue
		}
		val, err := coerce(spec, v)
		if err != nil {
			return nil, invalid(KindInvalidSetting, spec.Key, "%v", err)
		}
		out[spec.Key] = val
	}
	return out, nil
}

func coerce(spec domain.SettingSpec, v any) (domain.SettingValue, error) {
	switch spec.Kind {
	case domain.SettingIntRange:
		n, err := toInt(v)
		if err != nil {
			return domain.SettingValue{}, err
		}
		if n < spec.Min || n > spec.Max {
			return domain.SettingValue{}, fmt.Errorf("%d outside [%d, %d]", n, spec.Min, spec.Max)
		}
		return domain.IntValue(n), nil
	case domain.SettingEnumChoice:
		s, err := toText(v)
		if err != nil {
			return domain.SettingValue{}, err
		}
		if !slices.Contains(spec.Options, s) {
			return domain.SettingValue{}, fmt.Errorf("%q not one of %s", s, strings.Join(spec.Options, ", "))
		}
		return domain.ChoiceValue(s), nil
	case domain.SettingBool:
		switch b := v.(type) {
		case bool:
			return domain.BoolValue(b), nil
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(b))
			if err != nil {
				return domain.SettingValue{}, fmt.Errorf("%q is not a boolean", b)
			}
			return domain.BoolValue(parsed), nil
		}
		return domain.SettingValue{}, fmt.Errorf("expected boolean, got %T", v)
	case domain.SettingFreeText:
		s, ok := v.(string)
		if !ok {
			return domain.SettingValue{}, fmt.Errorf("expected text, got %T", v)
		}
		limit := spec.MaxLen
		if limit <= 0 {
			limit = defaultFreeTextLen
		}
		if utf8.RuneCountInString(s) > limit {
			return domain.SettingValue{}, fmt.Errorf("longer than %d characters", limit)
		}
		return domain.TextValue(s), nil
	}
	return domain.SettingValue{}, fmt.Errorf("unknown kind %q", spec.Kind)
}

func toInt(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not an integer", n)
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", n)
		}
		return parsed, nil
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}

// toText accepts strings and integral numbers so numeric enum options
// survive a JSON round trip.
func toText(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s), nil
	case float64, int, int64, json.Number:
		n, err := toInt(s)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	}
	return "", fmt.Errorf("expected text, got %T", v)
}
