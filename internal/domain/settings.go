package domain

import (
	"encoding/json"
	"fmt"
)

// SettingKind is the closed set of per-tool setting types.
type SettingKind string

const (
	SettingIntRange   SettingKind = "int_range"
	SettingEnumChoice SettingKind = "enum_choice"
	SettingBool       SettingKind = "bool"
	SettingFreeText   SettingKind = "free_text"
)

// SettingSpec declares one tool setting. Only the fields relevant to Kind are used.
type SettingSpec struct {
	Key     string      `yaml:"key" json:"key"`
	Label   string      `yaml:"label" json:"label"`
	Kind    SettingKind `yaml:"kind" json:"kind"`
	Min     int64       `yaml:"min,omitempty" json:"min,omitempty"`
	Max     int64       `yaml:"max,omitempty" json:"max,omitempty"`
	Options []string    `yaml:"options,omitempty" json:"options,omitempty"`
	MaxLen  int         `yaml:"max_len,omitempty" json:"maxLen,omitempty"`
	// Default is the textual default, parsed according to Kind.
	Default string `yaml:"default,omitempty" json:"default,omitempty"`
}

// SettingValue is a typed setting value.
type SettingValue struct {
	Kind SettingKind
	Int  int64
	Text string
	Bool bool
}

// IntValue builds an int_range value.
func IntValue(v int64) SettingValue { return SettingValue{Kind: SettingIntRange, Int: v} }

// ChoiceValue builds an enum_choice value.
func ChoiceValue(v string) SettingValue { return SettingValue{Kind: SettingEnumChoice, Text: v} }

// BoolValue builds a bool value.
func BoolValue(v bool) SettingValue { return SettingValue{Kind: SettingBool, Bool: v} }

// TextValue builds a free_text value.
func TextValue(v string) SettingValue { return SettingValue{Kind: SettingFreeText, Text: v} }

// Native returns the value as a plain JSON-compatible Go value.
func (v SettingValue) Native() any {
	switch v.Kind {
	case SettingIntRange:
		return v.Int
	case SettingBool:
		return v.Bool
	default:
		return v.Text
	}
}

func (v SettingValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}

func (v SettingValue) String() string {
	return fmt.Sprint(v.Native())
}

// Settings holds validated values keyed by SettingSpec.Key.
type Settings map[string]SettingValue

// Native converts the settings to a map of plain values.
func (s Settings) Native() map[string]any {
	if len(s) == 0 {
		return nil
	}
	out := make(map[string]any, len(s))
	for k, v := range s {
		out[k] = v.Native()
	}
	return out
}
