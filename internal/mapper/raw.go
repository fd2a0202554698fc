package mapper

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RawSnapshot mirrors the account-context payload: buildings containing both
// unit kinds in one response, each unit as an array of name/value settings.
type RawSnapshot struct {
	Buildings []RawBuilding `json:"buildings"`
}

// RawBuilding is one building as sent on the wire.
type RawBuilding struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	AirToAir   []RawUnit `json:"airToAir"`
	AirToWater []RawUnit `json:"airToWater"`
}

// RawUnit is one unit as sent on the wire. State and capabilities arrive as an
// untyped settings array with mixed string/bool/number encodings.
type RawUnit struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Offline        bool      `json:"offline"`
	HasError       bool      `json:"hasError"`
	SignalStrength int       `json:"signalStrength"`
	Settings       []Setting `json:"settings"`
}

// Setting is a single name/value pair. Value is kept raw because the vendor
// encodes booleans as the strings "True"/"False" in some firmwares, as real
// JSON booleans in others, and numbers either quoted or bare.
type Setting struct {
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// settingBag indexes a settings array by name for flattening.
type settingBag map[string]json.RawMessage

func bagOf(settings []Setting) settingBag {
	bag := make(settingBag, len(settings))
	for _, s := range settings {
		bag[s.Name] = s.Value
	}
	return bag
}

// boolSetting decodes a boolean under any of the vendor's encodings: JSON
// true/false, the strings "True"/"False" (any case), or 0/1.
func (b settingBag) boolSetting(name string, fallback bool) (bool, error) {
	raw, ok := b[name]
	if !ok {
		return fallback, nil
	}

	var v bool
	if err := json.Unmarshal(raw, &v); err == nil {
		return v, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
		return false, fmt.Errorf("setting %s: unrecognized boolean %q", name, s)
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n != 0, nil
	}
	return false, fmt.Errorf("setting %s: unrecognized boolean %s", name, string(raw))
}

// floatSetting decodes a number sent either bare or quoted.
func (b settingBag) floatSetting(name string, fallback float64) (float64, error) {
	raw, ok := b[name]
	if !ok {
		return fallback, nil
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return v, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("setting %s: unrecognized number %q", name, s)
		}
		return v, nil
	}
	return 0, fmt.Errorf("setting %s: unrecognized number %s", name, string(raw))
}

// intSetting decodes an integer sent either bare or quoted.
func (b settingBag) intSetting(name string, fallback int) (int, error) {
	f, err := b.floatSetting(name, float64(fallback))
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// stringSetting decodes a plain string value.
func (b settingBag) stringSetting(name, fallback string) (string, error) {
	raw, ok := b[name]
	if !ok {
		return fallback, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("setting %s: not a string: %s", name, string(raw))
	}
	return strings.TrimSpace(s), nil
}
