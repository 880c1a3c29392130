package eventcheck

import (
	"github.com/chronos-foundation/chronos-base/eventcheck/hbcheck"
	"github.com/chronos-foundation/chronos-base/eventcheck/timecheck"
	"github.com/chronos-foundation/chronos-base/inter"
)

// Checkers is the collection of all the heartbeat checkers
type Checkers struct {
	Heartbeats *hbcheck.Checker
	Timestamps *timecheck.Checker
}

// Validate runs all the checks on an incoming heartbeat
func (v *Checkers) Validate(hb *inter.Heartbeat, now int64) error {
	if err := v.Timestamps.Validate(int64(hb.Time), now); err != nil {
		return err
	}
	if err := v.Heartbeats.Validate(hb); err != nil {
		return err
	}
	return nil
}
