package auth

import (
	"context"
	"strings"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
)

type Role string

const (
	RoleCustomer     Role = "customer"
	RoleAdmin        Role = "admin"
	RoleSalesManager Role = "sales_manager"
)

type Permission string

const (
	PermSetOrderStatus Permission = "orders:set-status"
	PermListAllOrders  Permission = "orders:list-all"
	PermApplyDiscount  Permission = "orders:apply-discount"
)

var rolePermissions = map[Role][]Permission{
	RoleCustomer:     nil,
	RoleAdmin:        {PermSetOrderStatus, PermListAllOrders},
	RoleSalesManager: {PermApplyDiscount},
}

// ParseRole normalizes a role header value. Unknown or empty values map to
// RoleCustomer. "Sales Manager" is accepted as written by older clients.
func ParseRole(v string) Role {
	s := strings.ToLower(strings.TrimSpace(v))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	switch Role(s) {
	case RoleAdmin, RoleSalesManager:
		return Role(s)
	default:
		return RoleCustomer
	}
}

func (r Role) Can(p Permission) bool {
	for _, have := range rolePermissions[r] {
		if have == p {
			return true
		}
	}
	return false
}

type Identity struct {
	UserID string
	Role   Role
}

func (id Identity) Authenticated() bool {
	return id.UserID != ""
}

// Require checks that id is authenticated and its role grants p.
func Require(id Identity, p Permission) error {
	if !id.Authenticated() {
		return apperr.New(apperr.ErrUnauthenticated, "authentication required")
	}
	if !id.Role.Can(p) {
		return apperr.New(apperr.ErrForbidden, "%s", deniedMessage(p))
	}
	return nil
}

func deniedMessage(p Permission) string {
	switch p {
	case PermApplyDiscount:
		return "Only Sales Manager can apply discount."
	default:
		return "You do not have permission to perform this action."
	}
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the caller identity, or an anonymous customer when none
// was attached.
func FromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(ctxKey{}).(Identity); ok {
		return id
	}
	return Identity{Role: RoleCustomer}
}
