package ports

import (
	"context"

	"github.com/aretw0/flowfsm/pkg/domain"
)

// ContextStore keeps live contexts by id. It is not durable: stored values are
// the running instances themselves.
type ContextStore interface {
	// Put registers c. Returns domain.ErrContextExists if the id is taken.
	Put(ctx context.Context, c *domain.Context) error
	// Get returns domain.ErrContextNotFound for unknown ids.
	Get(ctx context.Context, id string) (*domain.Context, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
}
