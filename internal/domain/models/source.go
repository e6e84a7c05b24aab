package models

import (
	"sort"
	"time"
)

// SourceStatus is the health of a feed source as seen by the last collection attempt.
type SourceStatus string

const (
	SourceActive SourceStatus = "active"
	SourceError  SourceStatus = "error"
)

// Source is a configured external feed endpoint.
type Source struct {
	ID              string
	Name            string
	URL             string
	Enabled         bool
	LastCollectedAt *time.Time
	TotalCollected  uint64
	Status          SourceStatus
	LastError       *string
}

// SourcePatch describes the fields the collection scheduler changes after one attempt.
// Nil fields are left untouched; CollectedDelta is added to TotalCollected.
type SourcePatch struct {
	LastCollectedAt *time.Time
	Status          *SourceStatus
	LastError       *string
	ClearError      bool
	CollectedDelta  uint64
}

// SortByStaleness orders sources oldest LastCollectedAt first, never-collected sources
// ahead of everything else. The sort is stable so ties keep store order.
func SortByStaleness(sources []Source) {
	sort.SliceStable(sources, func(i, j int) bool {
		a, b := sources[i].LastCollectedAt, sources[j].LastCollectedAt
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return true
		case b == nil:
			return false
		default:
			return a.Before(*b)
		}
	})
}
