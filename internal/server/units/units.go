// Package units converts weights between kilograms and pounds.
//
// Pounds to kilograms keeps one decimal, kilograms to pounds keeps none.
package units

import (
	"fmt"
	"strconv"
)

const KgPerLb = 0.45359237

const (
	Kg = "kg"
	Lb = "lb"
)

// Round rounds x to the given number of decimals, ties to even on the exact
// binary value.
func Round(x float64, decimals int) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(x, 'f', decimals, 64), 64)
	return v
}

// ConvertToMetric converts pounds to kilograms, one decimal.
func ConvertToMetric(lb float64) float64 {
	return Round(lb*KgPerLb, 1)
}

// ConvertToEnglish converts kilograms to pounds, whole pounds.
func ConvertToEnglish(kg float64) float64 {
	return Round(kg/KgPerLb, 0)
}

// Convert expresses weight, stored with unit storedMetric, in the unit
// wantMetric. Nothing is rounded when the units already agree.
func Convert(weight float64, storedMetric, wantMetric bool) float64 {
	switch {
	case storedMetric == wantMetric:
		return weight
	case wantMetric:
		return ConvertToMetric(weight)
	default:
		return ConvertToEnglish(weight)
	}
}

// Name returns "kg" or "lb".
func Name(metric bool) string {
	if metric {
		return Kg
	}
	return Lb
}

// Parse maps "kg" to true and "lb" to false. Anything else is an error.
func Parse(s string) (bool, error) {
	switch s {
	case Kg:
		return true, nil
	case Lb:
		return false, nil
	}
	return false, fmt.Errorf("unknown units %q", s)
}
