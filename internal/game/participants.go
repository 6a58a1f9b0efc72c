package game

import "sort"

// Participants is a set of participant IDs.
type Participants map[string]struct{}

// NewParticipants builds a set from the given IDs.
func NewParticipants(ids ...string) Participants {
	p := make(Participants, len(ids))
	for _, id := range ids {
		p[id] = struct{}{}
	}
	return p
}

// Has reports set membership.
func (p Participants) Has(id string) bool {
	_, ok := p[id]
	return ok
}

// Clone returns an independent copy. A nil receiver clones to an empty set.
func (p Participants) Clone() Participants {
	out := make(Participants, len(p))
	for id := range p {
		out[id] = struct{}{}
	}
	return out
}

// Union returns a new set holding every member of both sets.
func (p Participants) Union(other Participants) Participants {
	out := p.Clone()
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// Intersect returns a new set holding the members common to both sets.
func (p Participants) Intersect(other Participants) Participants {
	out := make(Participants)
	for id := range p {
		if other.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Sorted returns the member IDs in lexicographic order.
// Used wherever deterministic serialization or output is needed.
func (p Participants) Sorted() []string {
	ids := make([]string, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
