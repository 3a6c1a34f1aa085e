// Package prefs holds the per-user preference state: favorite diseases, the
// compare list and recent searches. The transitions here are pure; callers
// persist the result under the storage preference keys.
package prefs

import (
	"errors"
	"strings"
)

const (
	MaxCompare = 4
	MinCompare = 2
	MaxHistory = 10
)

var (
	ErrCompareFull        = errors.New("compare list is full")
	ErrNotEnoughToCompare = errors.New("at least two diseases are needed to compare")
)

// State is one user's preferences.
type State struct {
	Favorites []int    `json:"favorites"`
	Compare   []int    `json:"compare"`
	History   []string `json:"history"`
}

// IsFavorite reports whether id is a favorite.
func (s *State) IsFavorite(id int) bool {
	return indexOf(s.Favorites, id) >= 0
}

// ToggleFavorite adds id to the favorites or removes it, and reports
// whether it is a favorite afterwards.
func (s *State) ToggleFavorite(id int) bool {
	if i := indexOf(s.Favorites, id); i >= 0 {
		s.Favorites = append(s.Favorites[:i:i], s.Favorites[i+1:]...)
		return false
	}
	s.Favorites = append(s.Favorites, id)
	return true
}

// InCompare reports whether id is on the compare list.
func (s *State) InCompare(id int) bool {
	return indexOf(s.Compare, id) >= 0
}

// AddCompare appends id to the compare list. Adding an id already present
// is a no-op; adding to a full list returns ErrCompareFull and leaves the
// list unchanged.
func (s *State) AddCompare(id int) error {
	if s.InCompare(id) {
		return nil
	}
	if len(s.Compare) >= MaxCompare {
		return ErrCompareFull
	}
	s.Compare = append(s.Compare, id)
	return nil
}

// RemoveCompare drops id from the compare list and reports whether it was there.
func (s *State) RemoveCompare(id int) bool {
	i := indexOf(s.Compare, id)
	if i < 0 {
		return false
	}
	s.Compare = append(s.Compare[:i:i], s.Compare[i+1:]...)
	return true
}

func (s *State) ClearCompare() {
	s.Compare = nil
}

// CanCompare returns ErrNotEnoughToCompare unless at least two diseases are
// on the compare list.
func (s *State) CanCompare() error {
	if len(s.Compare) < MinCompare {
		return ErrNotEnoughToCompare
	}
	return nil
}

// RecordSearch puts term at the front of the history. An earlier entry
// equal to it ignoring case is removed, and the history is capped at
// MaxHistory. Blank terms are ignored.
func (s *State) RecordSearch(term string) {
	term = strings.TrimSpace(term)
	if term == "" {
		return
	}
	history := make([]string, 0, MaxHistory)
	history = append(history, term)
	for _, h := range s.History {
		if len(history) == MaxHistory {
			break
		}
		if strings.EqualFold(h, term) {
			continue
		}
		history = append(history, h)
	}
	s.History = history
}

func (s *State) ClearHistory() {
	s.History = nil
}

// Normalize repairs state read from storage: duplicate and non-positive ids
// are dropped, and the compare list and history are trimmed to their limits.
func (s *State) Normalize() {
	s.Favorites = uniqueIDs(s.Favorites, 0)
	s.Compare = uniqueIDs(s.Compare, MaxCompare)
	history := s.History
	s.History = nil
	for i := len(history) - 1; i >= 0; i-- {
		s.RecordSearch(history[i])
	}
}

func uniqueIDs(ids []int, limit int) []int {
	var out []int
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func indexOf(ids []int, id int) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
