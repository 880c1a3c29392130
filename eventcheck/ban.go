package eventcheck

import (
	"errors"

	"github.com/chronos-foundation/chronos-base/eventcheck/hbcheck"
	"github.com/chronos-foundation/chronos-base/eventcheck/timecheck"
)

var (
	ErrAlreadyProcessedHeartbeat = errors.New("heartbeat is processed already")
)

// IsBan reports whether the rejection reason warrants banning the sender.
// Duplicates, lagging sequences and clock skew happen to honest peers under
// network delay; a forged signature does not.
func IsBan(err error) bool {
	if err == ErrAlreadyProcessedHeartbeat ||
		errors.Is(err, hbcheck.ErrNonMonotonicSeq) ||
		errors.Is(err, hbcheck.ErrStaleFinalityRef) ||
		errors.Is(err, timecheck.ErrFutureTimestamp) ||
		errors.Is(err, timecheck.ErrStaleTimestamp) {
		return false
	}
	return err != nil
}
