// Package turn holds the seat arithmetic shared by pack passing and auction rotation.
package turn

import "github.com/Mazen286/cubecraft/internal/draftsvc/models"

// Next returns the seat one step from seat in dir, wrapping around n seats.
func Next(seat, n int, dir models.Direction) int {
	if n <= 0 {
		return 0
	}
	return ((seat+int(dir))%n + n) % n
}

// NextEligible steps from start in dir and returns the first seat that
// satisfies eligible. At most n seats are visited, so start itself is
// the last candidate.
func NextEligible(start, n int, dir models.Direction, eligible func(seat int) bool) (int, bool) {
	seat := start
	for i := 0; i < n; i++ {
		seat = Next(seat, n, dir)
		if eligible(seat) {
			return seat, true
		}
	}
	return 0, false
}
