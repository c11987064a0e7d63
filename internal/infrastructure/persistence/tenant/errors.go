package tenant

import (
	"errors"
	"fmt"
)

// ErrMissingTenant is returned when a tenant-scoped join row is about to be
// created without a tenant ID in context.
var ErrMissingTenant = errors.New("tenant ID is not set")

// MissingTenantError reports which relation and join table rejected the write.
// It unwraps to ErrMissingTenant.
type MissingTenantError struct {
	Relation  string
	JoinTable string
}

func (e *MissingTenantError) Error() string {
	switch {
	case e.Relation != "" && e.JoinTable != "":
		return fmt.Sprintf("%s: cannot create %s row for relation %s", ErrMissingTenant, e.JoinTable, e.Relation)
	case e.JoinTable != "":
		return fmt.Sprintf("%s: cannot create %s row", ErrMissingTenant, e.JoinTable)
	default:
		return ErrMissingTenant.Error()
	}
}

func (e *MissingTenantError) Unwrap() error {
	return ErrMissingTenant
}
