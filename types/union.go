package types

import (
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

// Union is "one of" two or more distinct member types. Unions never contain
// unions, and members are kept in canonical order, so two unions built from
// the same members in any order are the same *Union.
type Union struct {
	members []Type
	k       string
}

var unions struct {
	sync.Mutex
	m map[uint64][]*Union
}

// NewUnion returns the union of members. Nested unions are flattened and
// congruent members are merged. If a single distinct member remains it is
// returned as is. NewUnion panics if given no members.
func NewUnion(members ...Type) Type {
	if len(members) == 0 {
		panic("types: union of no members")
	}
	var flat []Type
	for _, m := range members {
		if m == nil {
			panic("types: nil union member")
		}
		flat = append(flat, Members(m)...)
	}
	var distinct []Type
	for _, m := range flat {
		if slices.IndexFunc(distinct, m.Is) < 0 {
			distinct = append(distinct, m)
		}
	}
	if len(distinct) == 1 {
		return distinct[0]
	}
	slices.SortFunc(distinct, func(a, b Type) bool { return a.key() < b.key() })
	return internUnion(distinct)
}

func internUnion(members []Type) *Union {
	k := "(" + strings.Join(lo.Map(members, func(t Type, _ int) string { return t.key() }), "|") + ")"
	h := xxhash.Sum64String(k)
	unions.Lock()
	defer unions.Unlock()
	for _, u := range unions.m[h] {
		if u.k == k {
			return u
		}
	}
	if unions.m == nil {
		unions.m = make(map[uint64][]*Union)
	}
	u := &Union{members: members, k: k}
	unions.m[h] = append(unions.m[h], u)
	return u
}

// Members returns the members of t if it is a union, or t alone otherwise.
func Members(t Type) []Type {
	if u, ok := t.(*Union); ok {
		return u.members
	}
	return []Type{t}
}

func (u *Union) Members() []Type { return slices.Clone(u.members) }

// Is reports congruence. Against another union, every member of each must
// have a congruent counterpart in the other. Against a single type, the
// union must reduce to exactly that one member.
func (u *Union) Is(t Type) bool {
	if u == t {
		return true
	}
	if v, ok := t.(*Union); ok {
		return covers(u.members, v.members) && covers(v.members, u.members)
	}
	return lo.EveryBy(u.members, t.Is)
}

func covers(a, b []Type) bool {
	return lo.EveryBy(a, func(m Type) bool { return slices.IndexFunc(b, m.Is) >= 0 })
}

func (u *Union) ContainsNull() bool {
	return slices.Contains(u.members, Type(Null))
}

// WithoutNull returns the union with Null removed. If only one member
// remains, that member is returned.
func (u *Union) WithoutNull() Type {
	rest := lo.Reject(u.members, func(m Type, _ int) bool { return m == Null })
	if len(rest) == 0 {
		return Null
	}
	return NewUnion(rest...)
}

func (u *Union) String() string { return joinStrings(u.members, " | ") }

func (u *Union) key() string { return u.k }

// ContainsNull reports whether t is Null or a union with a Null member.
func ContainsNull(t Type) bool {
	switch t := t.(type) {
	case *Union:
		return t.ContainsNull()
	}
	return t == Null
}

// WithoutNull removes Null from a union. Other types are returned unchanged.
func WithoutNull(t Type) Type {
	if u, ok := t.(*Union); ok {
		return u.WithoutNull()
	}
	return t
}

// Optional returns the union of t and Null.
func Optional(t Type) Type { return NewUnion(t, Null) }
