package domain

import "time"

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleSeller   Role = "SELLER"
	RoleAdmin    Role = "ADMIN"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleCustomer, RoleSeller, RoleAdmin:
		return r, true
	}
	return "", false
}

// Capability is what an operation requires of the caller's role.
type Capability string

const (
	CapCart          Capability = "cart:write"
	CapCheckout      Capability = "checkout"
	CapOrdersRead    Capability = "orders:read"
	CapProfile       Capability = "profile"
	CapCatalogManage Capability = "catalog:manage"
	CapUsersManage   Capability = "users:manage"
)

var roleCaps = map[Role][]Capability{
	RoleCustomer: {CapCart, CapCheckout, CapOrdersRead, CapProfile},
	RoleSeller:   {CapCart, CapCheckout, CapOrdersRead, CapProfile, CapCatalogManage},
	RoleAdmin:    {CapCart, CapCheckout, CapOrdersRead, CapProfile, CapUsersManage},
}

// Can reports whether the role grants every capability in req.
func (r Role) Can(req ...Capability) bool {
	have := roleCaps[r]
	for _, c := range req {
		found := false
		for _, h := range have {
			if h == c {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}
