package cote

// Role is the fixed tag a node is created with. Per spec §9 ("Dynamic
// dispatch on role"), role is encoded as a plain value and every
// operation branches on it explicitly rather than through a class
// hierarchy of per-role node types.
type Role string

const (
	RolePub Role = "pub"
	RoleSub Role = "sub"
	RoleReq Role = "req"
	RoleRep Role = "rep"
	RoleMon Role = "mon"
)

func (r Role) valid() bool {
	switch r {
	case RolePub, RoleSub, RoleReq, RoleRep, RoleMon:
		return true
	default:
		return false
	}
}

// acceptsSubscriptions reports whether Subscribe/Unsubscribe are valid
// for this role (spec §4.5: "Only roles SUB and REP accept
// subscriptions").
func (r Role) acceptsSubscriptions() bool {
	return r == RoleSub || r == RoleRep
}

// isOutboundConsumer reports whether this role initiates outbound
// connections discovered via the peer matcher (spec §4.6 step 5).
func (r Role) isOutboundConsumer() bool {
	return r == RoleSub || r == RoleReq
}

// bindsListener reports whether this role binds a transport listener
// before starting discovery (spec §4.2 "Start ordering").
func (r Role) bindsListener() bool {
	return r == RolePub || r == RoleRep
}
