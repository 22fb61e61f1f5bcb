package user

import (
	"context"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (User, error)
	// GetManagerOf returns the direct manager of the given employee, if any.
	GetManagerOf(ctx context.Context, employeeID string) (User, error)
	// ListByRoles returns active users holding any of the given roles.
	ListByRoles(ctx context.Context, roles ...Role) ([]User, error)
	Create(ctx context.Context, newUser User) (User, error)
}
