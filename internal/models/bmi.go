// ABOUTME: BMI computation and fixed-threshold category bucketing.
// ABOUTME: BMI is derived at query time from the latest height and weight samples.
package models

import "math"

// BMICategory is a WHO-style body mass index bucket.
type BMICategory string

const (
	BMIUnderweight BMICategory = "underweight"
	BMIHealthy     BMICategory = "healthy"
	BMIOverweight  BMICategory = "overweight"
	BMIObese       BMICategory = "obese"
)

// AllBMICategories lists categories in ascending BMI order.
var AllBMICategories = []BMICategory{BMIUnderweight, BMIHealthy, BMIOverweight, BMIObese}

// PlausibleHeightCm rejects garbage heights.
func PlausibleHeightCm(h float64) bool { return h >= 50 && h <= 250 }

// PlausibleWeightKg rejects garbage weights.
func PlausibleWeightKg(w float64) bool { return w >= 10 && w <= 400 }

// BMI returns weight_kg / height_m^2. ok is false for non-positive inputs.
func BMI(heightCm, weightKg float64) (bmi float64, ok bool) {
	if heightCm <= 0 || weightKg <= 0 {
		return 0, false
	}
	h := heightCm / 100
	return weightKg / (h * h), true
}

// CategorizeBMI buckets bmi: <18.5, [18.5,25), [25,30), >=30.
func CategorizeBMI(bmi float64) BMICategory {
	switch {
	case bmi < 18.5:
		return BMIUnderweight
	case bmi < 25:
		return BMIHealthy
	case bmi < 30:
		return BMIOverweight
	default:
		return BMIObese
	}
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
