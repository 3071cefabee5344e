// Package state holds process-wide values shared between the chat sessions
// and the workers.
package state

import (
	"sync/atomic"
	"time"
)

// Shared is passed explicitly to every component that reads or writes the
// alerting gate. Writes are full overwrites; the last one wins.
type Shared struct {
	alerting atomic.Bool
	started  time.Time
}

func New(alerting bool) *Shared {
	s := &Shared{started: time.Now()}
	s.alerting.Store(alerting)
	return s
}

func (s *Shared) Alerting() bool { return s.alerting.Load() }

func (s *Shared) SetAlerting(on bool) { s.alerting.Store(on) }

// Uptime is the time elapsed since New was called.
func (s *Shared) Uptime() time.Duration { return time.Since(s.started) }
