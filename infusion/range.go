// Package infusion implements the continuous-infusion rate engine: parsing dose ranges,
// discretizing them into selectable rates and converting a per-kg rate into mL/h.
package infusion

import (
	"regexp"
	"strconv"
)

// Unit is a per-kg dose-rate unit
type Unit string

const (
	McgPerKgPerHour   Unit = "mcg/kg/h"
	McgPerKgPerMinute Unit = "mcg/kg/min"
	MgPerKgPerHour    Unit = "mg/kg/h"
	UnitsPerKgPerHour Unit = "units/kg/h"
)

// SupportedUnits lists the units the engine can convert to a volumetric rate
var SupportedUnits = []Unit{McgPerKgPerHour, McgPerKgPerMinute, MgPerKgPerHour, UnitsPerKgPerHour}

// IsSupported reports whether the unit can be normalized to mg/h (or units/h)
func (u Unit) IsSupported() bool {
	for _, s := range SupportedUnits {
		if u == s {
			return true
		}
	}
	return false
}

// AmountUnit is the absolute unit of drug added to the diluent
func (u Unit) AmountUnit() string {
	if u == UnitsPerKgPerHour {
		return "units"
	}
	return "mg"
}

// Range is a dose range per kg with its unit
type Range struct {
	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
	Unit Unit    `json:"unit" yaml:"unit"`
}

// Pre-compiled patterns for legacy route text
var (
	rangeRegex = regexp.MustCompile(`(\d+\.?\d*)-(\d+\.?\d*)`)
	unitRegex  = regexp.MustCompile(`(mcg/kg/h|mcg/kg/min|mg/kg/h|units/kg/h)`)
)

// ParseRange extracts a "min-max" range and a unit token from free route text.
// The boolean is false when either part is missing; callers then show the text as is.
func ParseRange(route string) (Range, bool) {
	m := rangeRegex.FindStringSubmatch(route)
	if m == nil {
		return Range{}, false
	}

	u := unitRegex.FindString(route)
	if u == "" {
		return Range{}, false
	}

	minDose, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Range{}, false
	}
	maxDose, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return Range{}, false
	}

	return Range{Min: minDose, Max: maxDose, Unit: Unit(u)}, true
}

// String renders the range the way it is shown next to the rate selector
func (r Range) String() string {
	return strconv.FormatFloat(r.Min, 'f', -1, 64) + "-" + strconv.FormatFloat(r.Max, 'f', -1, 64) + " " + string(r.Unit)
}
