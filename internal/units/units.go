// Package units provides shared constants, validation and conversion for
// the length unit of tracking coordinates and the speed units used for
// display.
package units

import "strings"

// Speed unit constants
const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

// Length unit constants for tracking coordinates
const (
	Meters = "m"
	Yards  = "yd"
	Feet   = "ft"
)

// ValidUnits contains all valid speed unit values
var ValidUnits = []string{MPS, MPH, KMPH, KPH}

// ValidLengthUnits contains all valid length unit values
var ValidLengthUnits = []string{Meters, Yards, Feet}

var metersPer = map[string]float64{
	Meters: 1,
	Yards:  0.9144,
	Feet:   0.3048,
}

// IsValid checks if the given speed unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// IsValidLength checks if the given length unit is supported
func IsValidLength(unit string) bool {
	_, ok := metersPer[unit]
	return ok
}

// GetValidUnitsString returns a comma-separated string of valid speed units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// GetValidLengthUnitsString returns a comma-separated string of valid length units
func GetValidLengthUnitsString() string {
	return strings.Join(ValidLengthUnits, ", ")
}

// ToMeters converts a length in the given unit to meters. Unknown units are
// treated as meters.
func ToMeters(v float64, lengthUnit string) float64 {
	if f, ok := metersPer[lengthUnit]; ok {
		return v * f
	}
	return v
}

// ConvertSpeed converts a speed from meters per second to the target units
func ConvertSpeed(speedMPS float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return speedMPS
	case MPH:
		return speedMPS * 2.2369362920544
	case KMPH, KPH:
		return speedMPS * 3.6
	default:
		return speedMPS
	}
}

// ConvertToMPS converts a speed in the given units back to meters per second
func ConvertToMPS(speed float64, fromUnits string) float64 {
	switch fromUnits {
	case MPH:
		return speed / 2.2369362920544
	case KMPH, KPH:
		return speed / 3.6
	default:
		return speed
	}
}

// ConvertTrackingSpeed converts a speed measured in tracking length units
// per second into the target display units.
func ConvertTrackingSpeed(speed float64, lengthUnit, targetUnits string) float64 {
	return ConvertSpeed(ToMeters(speed, lengthUnit), targetUnits)
}

// SpeedLabel returns the display suffix for a speed unit, e.g. "m/s".
func SpeedLabel(unit string) string {
	switch unit {
	case MPH:
		return "mph"
	case KMPH, KPH:
		return "km/h"
	default:
		return "m/s"
	}
}

// LengthLabel returns the display suffix for a length unit.
func LengthLabel(unit string) string {
	if IsValidLength(unit) {
		return unit
	}
	return Meters
}
