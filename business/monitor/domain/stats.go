package domain

import "time"

// CycleStats summarizes one poll cycle. The error list never aborts the
// cycle; every failed step appends to it and processing continues with the
// next independent step.
type CycleStats struct {
	StartedAt     time.Time
	Duration      time.Duration
	PricesStored  int
	StaleDropped  int
	SpreadsOpened int
	SpreadsClosed int
	SimTradesOK   int
	SimTradesErr  int
	Errors        []string
}

// AddError appends an error message to the cycle's error list.
func (s *CycleStats) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}

// Failed reports whether any step of the cycle recorded an error.
func (s *CycleStats) Failed() bool {
	return len(s.Errors) > 0
}
