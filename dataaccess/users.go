package dataaccess

import (
	"context"

	"foodconnect/models"
)

type Users struct {
	base
}

func NewUsers(d Deps) *Users {
	return &Users{base{d}}
}

func (u *Users) Profile(ctx context.Context, id string) (*models.User, error) {
	return u.Store.UserByID(ctx, id)
}

// List returns every account, or only those with role when it is set
func (u *Users) List(ctx context.Context, role models.UserRole) ([]models.User, error) {
	return u.Store.ListUsers(ctx, role)
}

func (u *Users) Delete(ctx context.Context, id string) error {
	if err := u.Store.DeleteUser(ctx, id); err != nil {
		return u.fail("Failed to delete user", err, "user_id", id)
	}
	u.Log.Info("user deleted", "user_id", id)
	u.invalidate(ctx, "restaurant:"+id, "vendor-profile:"+id, "customer-orders:"+id)
	return nil
}
