package game

import "sort"

// Scores maps participant IDs to points. Absent entries mean zero.
// All methods are pure: they never mutate the receiver.
type Scores map[string]int

// Get returns the participant's score, zero if absent.
func (s Scores) Get(id string) int {
	return s[id]
}

// Clone returns an independent copy. A nil receiver clones to an empty map.
func (s Scores) Clone() Scores {
	out := make(Scores, len(s))
	for id, points := range s {
		out[id] = points
	}
	return out
}

// Award returns a copy with one point added for every listed participant,
// creating entries at zero first where absent.
func (s Scores) Award(participants Participants) Scores {
	out := s.Clone()
	for id := range participants {
		out[id]++
	}
	return out
}

// Equal reports whether both maps hold the same entries.
// Entries explicitly set to zero compare equal to absent entries.
func (s Scores) Equal(other Scores) bool {
	for id, points := range s {
		if other.Get(id) != points {
			return false
		}
	}
	for id, points := range other {
		if s.Get(id) != points {
			return false
		}
	}
	return true
}

// Diff returns the per-participant change from prev to s.
// Participants whose score is unchanged are omitted.
func (s Scores) Diff(prev Scores) Scores {
	out := make(Scores)
	for id, points := range s {
		if d := points - prev.Get(id); d != 0 {
			out[id] = d
		}
	}
	for id, points := range prev {
		if _, ok := s[id]; !ok && points != 0 {
			out[id] = -points
		}
	}
	return out
}

// Ranked returns participant IDs ordered by descending score,
// ties broken by ID for deterministic output.
func (s Scores) Ranked() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if s[ids[i]] != s[ids[j]] {
			return s[ids[i]] > s[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}
