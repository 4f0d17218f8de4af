package scheduling

import (
	"context"
)

// Repository reads and writes schedules. Implementations take the caller's
// backend credentials from ctx.
type Repository interface {
	List(ctx context.Context) ([]Record, error)
	ListCompleted(ctx context.Context) ([]Record, error)
	Get(ctx context.Context, id string) (*Record, error)
	Create(ctx context.Context, in CreateInput) (*Record, error)
	Update(ctx context.Context, id string, in UpdateInput) (*Record, error)
	Allocate(ctx context.Context, id string, chiefID string, in AllocateInput) (*Record, error)
}
