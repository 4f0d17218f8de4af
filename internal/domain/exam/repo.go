package exam

import (
	"context"
	"net/url"

	"github.com/akin/akin/internal/platform/backend"
)

type Repository interface {
	List(ctx context.Context) ([]Exam, error)
	Get(ctx context.Context, id string) (*Exam, error)
	Update(ctx context.Context, id string, in UpdateInput) (*Exam, error)
}

type httpRepo struct {
	client *backend.Client
}

// NewHTTPRepository returns a Repository backed by the backend's /exams
// resource.
func NewHTTPRepository(client *backend.Client) Repository {
	return &httpRepo{client: client}
}

func (r *httpRepo) List(ctx context.Context) ([]Exam, error) {
	var out backend.List[Exam]
	if err := r.client.Get(ctx, backend.CredentialsFromContext(ctx), "/exams", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *httpRepo) Get(ctx context.Context, id string) (*Exam, error) {
	var e Exam
	if err := r.client.Get(ctx, backend.CredentialsFromContext(ctx), "/exams/"+url.PathEscape(id), nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *httpRepo) Update(ctx context.Context, id string, in UpdateInput) (*Exam, error) {
	var e Exam
	if err := r.client.Patch(ctx, backend.CredentialsFromContext(ctx), "/exams/"+url.PathEscape(id), in, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
