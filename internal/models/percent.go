package models

// RoundPercent returns round(100*part/whole) with halves rounded up, or 0 when whole is 0.
func RoundPercent(part, whole int) int {
	if whole <= 0 || part <= 0 {
		return 0
	}
	if part > whole {
		part = whole
	}
	return (200*part + whole) / (2 * whole)
}
