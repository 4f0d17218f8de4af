package team

import (
	"context"
	"net/url"

	"github.com/akin/akin/internal/platform/backend"
)

type Repository interface {
	List(ctx context.Context) ([]Technician, error)
	Create(ctx context.Context, in Input) (*Technician, error)
	Update(ctx context.Context, id string, in Input) (*Technician, error)
	Delete(ctx context.Context, id string) error
}

type httpRepo struct {
	client *backend.Client
}

// NewHTTPRepository returns a Repository backed by /lab-technicians.
func NewHTTPRepository(client *backend.Client) Repository {
	return &httpRepo{client: client}
}

func technicianPath(id string) string {
	return "/lab-technicians/" + url.PathEscape(id)
}

func (r *httpRepo) List(ctx context.Context) ([]Technician, error) {
	var out backend.List[Technician]
	if err := r.client.Get(ctx, backend.CredentialsFromContext(ctx), "/lab-technicians", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *httpRepo) Create(ctx context.Context, in Input) (*Technician, error) {
	var t Technician
	if err := r.client.Post(ctx, backend.CredentialsFromContext(ctx), "/lab-technicians", in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *httpRepo) Update(ctx context.Context, id string, in Input) (*Technician, error) {
	var t Technician
	if err := r.client.Patch(ctx, backend.CredentialsFromContext(ctx), technicianPath(id), in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *httpRepo) Delete(ctx context.Context, id string) error {
	return r.client.Delete(ctx, backend.CredentialsFromContext(ctx), technicianPath(id))
}
