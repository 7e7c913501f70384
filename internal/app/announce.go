package app

import (
	"fmt"

	"github.com/FriedrichWeinmann/sendping/internal/domain"
)

// FormatAnnouncement renders the live line written for one attempt.
func FormatAnnouncement(target string, a domain.Attempt) string {
	timeout := a.Timeout.Milliseconds()
	if a.Outcome.Succeeded {
		return fmt.Sprintf("%s #%d: reply from %s bytes=%d time=%dms timeout=%dms",
			target, a.Seq, a.Outcome.RespondingAddress, a.Outcome.Bytes, a.Outcome.RoundTripMillis, timeout)
	}
	return fmt.Sprintf("%s #%d: request failed: %s timeout=%dms",
		target, a.Seq, a.Outcome.FailureStatus, timeout)
}
