package model

import (
	"encoding/json"
	"sort"
	"strings"
)

// ActorSet is an immutable, sorted set of actor identifiers. Every method
// returns a new set and leaves the receiver untouched, so a set captured in
// one request snapshot can never change under another.
type ActorSet []string

// NewActorSet builds a set from ids, dropping blanks and duplicates.
func NewActorSet(ids ...string) ActorSet {
	if len(ids) == 0 {
		return ActorSet{}
	}
	seen := make(map[string]bool, len(ids))
	ret := make(ActorSet, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ret = append(ret, id)
	}
	sort.Strings(ret)
	return ret
}

// Contains reports whether id is a member.
func (s ActorSet) Contains(id string) bool {
	i := sort.SearchStrings(s, id)
	return i < len(s) && s[i] == id
}

// Len returns the number of members.
func (s ActorSet) Len() int { return len(s) }

// IsEmpty reports whether the set has no members.
func (s ActorSet) IsEmpty() bool { return len(s) == 0 }

// With returns s ∪ ids.
func (s ActorSet) With(ids ...string) ActorSet {
	return NewActorSet(append(s.Slice(), ids...)...)
}

// Without returns s \ ids.
func (s ActorSet) Without(ids ...string) ActorSet {
	return s.Minus(NewActorSet(ids...))
}

// Union returns s ∪ other.
func (s ActorSet) Union(other ActorSet) ActorSet {
	return s.With(other...)
}

// Minus returns s \ other.
func (s ActorSet) Minus(other ActorSet) ActorSet {
	ret := make(ActorSet, 0, len(s))
	for _, id := range s {
		if !other.Contains(id) {
			ret = append(ret, id)
		}
	}
	return ret
}

// Intersect returns s ∩ other.
func (s ActorSet) Intersect(other ActorSet) ActorSet {
	ret := make(ActorSet, 0)
	for _, id := range s {
		if other.Contains(id) {
			ret = append(ret, id)
		}
	}
	return ret
}

// Equal reports whether both sets have the same members.
func (s ActorSet) Equal(other ActorSet) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Slice returns a copy of the members.
func (s ActorSet) Slice() []string {
	return append([]string{}, s...)
}

// UnmarshalJSON normalises the decoded ids into a set.
func (s *ActorSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewActorSet(ids...)
	return nil
}

// MarshalJSON encodes nil sets as an empty array.
func (s ActorSet) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}
