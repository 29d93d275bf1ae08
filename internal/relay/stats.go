package relay

import "sync/atomic"

type Stats struct {
	handled     atomic.Uint64
	failed      atomic.Uint64
	units       atomic.Uint64
	attachments atomic.Uint64
}

type Snapshot struct {
	Handled     uint64 `json:"handled"`
	Failed      uint64 `json:"failed"`
	Units       uint64 `json:"units"`
	Attachments uint64 `json:"attachments"`
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Handled:     s.handled.Load(),
		Failed:      s.failed.Load(),
		Units:       s.units.Load(),
		Attachments: s.attachments.Load(),
	}
}

// Map is the snapshot in the form the control socket returns.
func (s Snapshot) Map() map[string]uint64 {
	return map[string]uint64{
		"handled":     s.Handled,
		"failed":      s.Failed,
		"units":       s.Units,
		"attachments": s.Attachments,
	}
}
