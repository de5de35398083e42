package domain

import "time"

// StatusEvent notifies observers that a script's run state changed.
// Events for a given identity are delivered in the order their causing
// transitions occurred; no ordering is guaranteed across identities.
type StatusEvent struct {
	Identity   ScriptIdentity `json:"identity"`
	State      RunState       `json:"state"`
	Generation uint64         `json:"generation"`
	At         time.Time      `json:"at"`
}

// HistoryEntry is an append-only record of a settled run.
type HistoryEntry struct {
	Identity  ScriptIdentity `json:"identity"`
	Outcome   Outcome        `json:"outcome"`
	StartedAt time.Time      `json:"started_at"`
	EndedAt   time.Time      `json:"ended_at"`
}
