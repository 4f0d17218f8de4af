package scheduling

import (
	"context"
	"net/url"

	"github.com/akin/akin/internal/platform/backend"
)

type httpRepo struct {
	client *backend.Client
}

// NewHTTPRepository returns a Repository backed by the lab backend's
// /schedulings resource.
func NewHTTPRepository(client *backend.Client) Repository {
	return &httpRepo{client: client}
}

func schedulingPath(id string, rest ...string) string {
	p := "/schedulings/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

func (r *httpRepo) List(ctx context.Context) ([]Record, error) {
	var out backend.List[Record]
	if err := r.client.Get(ctx, backend.CredentialsFromContext(ctx), "/schedulings", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *httpRepo) ListCompleted(ctx context.Context) ([]Record, error) {
	var out backend.List[Record]
	if err := r.client.Get(ctx, backend.CredentialsFromContext(ctx), "/schedulings/completed", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *httpRepo) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	if err := r.client.Get(ctx, backend.CredentialsFromContext(ctx), schedulingPath(id), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *httpRepo) Create(ctx context.Context, in CreateInput) (*Record, error) {
	var rec Record
	if err := r.client.Post(ctx, backend.CredentialsFromContext(ctx), "/schedulings", in, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *httpRepo) Update(ctx context.Context, id string, in UpdateInput) (*Record, error) {
	var rec Record
	if err := r.client.Patch(ctx, backend.CredentialsFromContext(ctx), schedulingPath(id), in, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *httpRepo) Allocate(ctx context.Context, id string, chiefID string, in AllocateInput) (*Record, error) {
	body := struct {
		AllocateInput
		ChiefID string `json:"allocatedChiefId"`
	}{in, chiefID}
	var rec Record
	if err := r.client.Patch(ctx, backend.CredentialsFromContext(ctx), schedulingPath(id, "allocate"), body, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
