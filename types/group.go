package types

import (
	"fmt"
	"strings"
)

// Group names one of the two symmetric classes of workers contending for the shared resource.
type Group int

const (
	GroupA Group = iota
	GroupB
)

// Groups lists both groups in index order.
var Groups = [2]Group{GroupA, GroupB}

func (g Group) Valid() bool {
	return g == GroupA || g == GroupB
}

// Opposite returns the competing group. Opposite(Opposite(g)) == g.
func (g Group) Opposite() Group {

	if g == GroupA {
		return GroupB
	}
	return GroupA
}

// Index maps the group onto 0 or 1, for use with per-group arrays.
func (g Group) Index() int {
	return int(g)
}

func (g Group) String() string {

	switch g {
	case GroupA:
		return "A"
	case GroupB:
		return "B"
	}
	return fmt.Sprintf("Group(%d)", int(g))
}

func ParseGroup(s string) (Group, error) {

	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return GroupA, nil
	case "B":
		return GroupB, nil
	}
	return 0, fmt.Errorf("unknown group %q, want A or B", s)
}

func (g Group) MarshalText() ([]byte, error) {

	if !g.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid group %d", int(g))
	}
	return []byte(g.String()), nil
}

func (g *Group) UnmarshalText(b []byte) error {

	parsed, err := ParseGroup(string(b))
	if err != nil {
		return err
	}
	*g = parsed
	return nil
}
