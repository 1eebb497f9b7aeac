package monitor

import "time"

// Status is the last observed health of the backing services.
type Status struct {
	Store      bool      `json:"store"`
	Cache      bool      `json:"cache"`
	Outbox     bool      `json:"outbox"`
	OutboxSize int       `json:"outbox_size"`
	LastCheck  time.Time `json:"last_check"`
}

// Healthy reports whether requests can be served. The cache is optional.
func (s Status) Healthy() bool {
	return s.Store
}
