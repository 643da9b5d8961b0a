package tasklock

// Role is the capacity a requester claims for a single request. A request
// authenticates as exactly one role; claiming both is rejected.
type Role int

const (
	RoleAuthor Role = iota
	RoleContributor
)

func (r Role) String() string {
	switch r {
	case RoleAuthor:
		return "author"
	case RoleContributor:
		return "contributor"
	}
	return "unknown"
}

// RoleState is the standing of one principal on one project.
type RoleState int

const (
	RoleStateNone RoleState = iota
	RoleStateInvited
	RoleStateContributor
)

func (s RoleState) String() string {
	switch s {
	case RoleStateInvited:
		return "invited"
	case RoleStateContributor:
		return "contributor"
	}
	return "none"
}

// RoleLists are the stored role assignments of a single resource. Todos and
// users carry an author only; projects additionally carry contributors and
// pending invitations. The author never appears in either list, and no
// principal appears in both.
type RoleLists struct {
	Author       string
	Contributors []string
	Invitations  []string
}

// StateOf returns name's standing. The author is reported as RoleStateNone;
// authorship is not a transition state.
func (rl RoleLists) StateOf(name string) RoleState {
	for _, c := range rl.Contributors {
		if c == name {
			return RoleStateContributor
		}
	}
	for _, i := range rl.Invitations {
		if i == name {
			return RoleStateInvited
		}
	}
	return RoleStateNone
}

// RoleDelta describes a single role-list transition for one principal. The
// store applies it conditionally: if the principal's standing no longer
// matches From at write time, the application fails with ErrConflict.
type RoleDelta struct {
	Principal string
	From      RoleState
	To        RoleState
}
