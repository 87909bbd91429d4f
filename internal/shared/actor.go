package shared

// Role enumerates the access levels known to the system.
type Role string

const (
	// RoleRequester may draft, edit, submit and cancel their own requisitions.
	RoleRequester Role = "requester"
	// RoleFinance may additionally approve, reject, cancel and convert.
	RoleFinance Role = "finance"
	// RoleAdmin carries the same procurement rights as finance.
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleRequester, RoleFinance, RoleAdmin:
		return true
	}
	return false
}

// Elevated reports whether the role carries finance/admin rights.
func (r Role) Elevated() bool {
	return r == RoleFinance || r == RoleAdmin
}

// Actor identifies the authenticated caller of an operation. It is threaded
// explicitly into every workflow call; there is no ambient request state.
type Actor struct {
	ID   int64
	Role Role
}
