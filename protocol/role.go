package protocol

// Role selects which side of the link a node plays. It is fixed when the node
// is constructed.
type Role uint8

const (
	RoleGateway Role = 0
	RoleHub     Role = 1
)

func (r Role) String() string {
	switch r {
	case RoleGateway:
		return "gateway"
	case RoleHub:
		return "hub"
	default:
		return "unknown"
	}
}

// ParseRole maps a configuration value onto a Role.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "gateway":
		return RoleGateway, true
	case "hub":
		return RoleHub, true
	default:
		return 0, false
	}
}

// Liveness is the observed reachability of a peer. It is derived on demand
// from the last-seen timestamp and never stored.
type Liveness uint8

const (
	Unreachable Liveness = 0
	Reachable   Liveness = 1
)

func (l Liveness) String() string {
	if l == Reachable {
		return "reachable"
	}
	return "unreachable"
}
