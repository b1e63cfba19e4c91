package organization

import (
	"context"

	"github.com/google/uuid"
)

type OrganizationFilter struct {
	Status string
	Name   string
	Type   string
}

type CategoryFilter struct {
	OrganizationIDs []uuid.UUID
	Status          string
	Type            string
}

type OrganizationRepository interface {
	Create(ctx context.Context, o *Organization) error
	GetByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	List(ctx context.Context, f OrganizationFilter, limit, offset int) ([]*Organization, int, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, c *Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*Category, error)
	Update(ctx context.Context, c *Category) error
	List(ctx context.Context, f CategoryFilter, limit, offset int) ([]*Category, int, error)
}
