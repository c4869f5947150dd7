package tracking

import (
	"fmt"
	"math"
	"strings"
)

// Evaluate turns fetched center records into user-facing messages.
//
// A session with capacity > 0 contributes a "found" fragment and sets anyFound.
// A fully booked session contributes a fragment only when verbose is true, so
// background runs stay quiet about sold-out centers. A center produces one
// message when it has at least one fragment; centers without sessions produce
// nothing. Message order follows center order, fragment order follows session
// order. The function is pure: same input, same output.
func Evaluate(centers []Center, verbose bool) (messages []string, anyFound bool) {
	for _, c := range centers {
		var frags strings.Builder
		total := 0
		for _, s := range c.Sessions {
			capacity := int(math.Floor(s.AvailableCapacity))
			if capacity > 0 {
				anyFound = true
				total += capacity
				fmt.Fprintf(&frags, "\n\n%d Available\n%s - %d+\nVaccine: %s\nSlots:\n%s",
					capacity, s.Date, s.MinAgeLimit, s.Vaccine, strings.Join(s.Slots, ", "))
			} else if verbose {
				fmt.Fprintf(&frags, "\n\nBooked\n%s - %d+\nVaccine: %s",
					s.Date, s.MinAgeLimit, s.Vaccine)
			}
		}
		if frags.Len() == 0 {
			continue
		}
		header := "Booked"
		if total > 0 {
			header = fmt.Sprintf("%d Available", total)
		}
		messages = append(messages, fmt.Sprintf("<b>%s</b>\n%s\n%s\n%d\n\n%s to %s\nFees: %s%s",
			header, c.Name, c.Address, c.Pincode, c.From, c.To, c.FeeType, frags.String()))
	}
	return messages, anyFound
}
