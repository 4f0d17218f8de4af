package patient

import (
	"context"
	"net/url"

	"github.com/akin/akin/internal/platform/backend"
)

type Repository interface {
	List(ctx context.Context) ([]Patient, error)
	Get(ctx context.Context, id string) (*Patient, error)
}

type httpRepo struct {
	client *backend.Client
}

// NewHTTPRepository returns a Repository backed by the backend's /pacients
// resource.
func NewHTTPRepository(client *backend.Client) Repository {
	return &httpRepo{client: client}
}

func (r *httpRepo) List(ctx context.Context) ([]Patient, error) {
	var out backend.List[Patient]
	if err := r.client.Get(ctx, backend.CredentialsFromContext(ctx), "/pacients", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *httpRepo) Get(ctx context.Context, id string) (*Patient, error) {
	var p Patient
	if err := r.client.Get(ctx, backend.CredentialsFromContext(ctx), "/pacients/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
