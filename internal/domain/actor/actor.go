package actor

import (
	"github.com/google/uuid"
)

// Authority is a closed set of roles an actor may hold.
type Authority string

const (
	AuthorityRequester    Authority = "REQUESTER"
	AuthoritySpaceManager Authority = "SPACE_MANAGER"
	AuthorityTechManager  Authority = "TECH_MANAGER"
	AuthoritySuperuser    Authority = "SUPERUSER"
)

// ParseAuthority maps a claim string to an Authority.
func ParseAuthority(s string) (Authority, bool) {
	switch a := Authority(s); a {
	case AuthorityRequester, AuthoritySpaceManager, AuthorityTechManager, AuthoritySuperuser:
		return a, true
	default:
		return "", false
	}
}

// Capability is an action guarded by authority.
type Capability int

const (
	// CapChangeStatus allows moving a booking through the workflow.
	CapChangeStatus Capability = iota
	// CapSetSpaceApproval allows raising or lowering the space flag.
	CapSetSpaceApproval
	// CapSetTechApproval allows raising or lowering the technical flag.
	CapSetTechApproval
	// CapResolveConflict allows deciding a conflict record.
	CapResolveConflict
	// CapManageCapacity allows editing the technical capacity config.
	CapManageCapacity
)

// String returns a readable capability name.
func (c Capability) String() string {
	switch c {
	case CapChangeStatus:
		return "change_status"
	case CapSetSpaceApproval:
		return "set_space_approval"
	case CapSetTechApproval:
		return "set_tech_approval"
	case CapResolveConflict:
		return "resolve_conflict"
	case CapManageCapacity:
		return "manage_capacity"
	default:
		return "unknown"
	}
}

// grants lists which authorities hold each capability. SUPERUSER holds all
// of them and is not repeated here.
var grants = map[Capability][]Authority{
	CapChangeStatus:     {AuthoritySpaceManager, AuthorityTechManager},
	CapSetSpaceApproval: {AuthoritySpaceManager},
	CapSetTechApproval:  {AuthorityTechManager},
	CapResolveConflict:  {AuthoritySpaceManager},
	CapManageCapacity:   {},
}

// Actor is the resolved identity performing a mutating call.
type Actor struct {
	ID          uuid.UUID
	Authorities []Authority
}

// Has reports whether the actor holds a.
func (a Actor) Has(authority Authority) bool {
	for _, held := range a.Authorities {
		if held == authority {
			return true
		}
	}
	return false
}

// Can reports whether the actor may perform c.
func (a Actor) Can(c Capability) bool {
	if a.Has(AuthoritySuperuser) {
		return true
	}
	for _, needed := range grants[c] {
		if a.Has(needed) {
			return true
		}
	}
	return false
}

// Principal is the unverified caller identity handed over by transport.
type Principal struct {
	Subject     string
	Authorities []string
}
