package notification

import (
	"context"
	"net/url"

	"github.com/akin/akin/internal/platform/backend"
)

type Repository interface {
	List(ctx context.Context) ([]Notification, error)
	Create(ctx context.Context, in CreateInput) (*Notification, error)
	MarkRead(ctx context.Context, id string) (*Notification, error)
}

type httpRepo struct {
	client *backend.Client
}

// NewHTTPRepository returns a Repository backed by /notifications.
func NewHTTPRepository(client *backend.Client) Repository {
	return &httpRepo{client: client}
}

func (r *httpRepo) List(ctx context.Context) ([]Notification, error) {
	var out backend.List[Notification]
	if err := r.client.Get(ctx, backend.CredentialsFromContext(ctx), "/notifications", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *httpRepo) Create(ctx context.Context, in CreateInput) (*Notification, error) {
	var n Notification
	if err := r.client.Post(ctx, backend.CredentialsFromContext(ctx), "/notifications", in, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *httpRepo) MarkRead(ctx context.Context, id string) (*Notification, error) {
	var n Notification
	path := "/notifications/" + url.PathEscape(id) + "/read"
	if err := r.client.Patch(ctx, backend.CredentialsFromContext(ctx), path, nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}
