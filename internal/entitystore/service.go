package entitystore

import "context"

// Service is the remote CRUD contract a Store mediates. One
// implementation exists per entity type; the platform's REST client
// in internal/sdk satisfies it for every master-data resource.
//
// Save is a single operation for create and update: an entity whose
// identifier is the zero value is created, anything else updates the
// existing record. The distinction is made by the remote service, not
// by the store.
type Service[T any, K comparable] interface {
	// GetAll fetches the full collection for this entity type.
	GetAll(ctx context.Context) Result[[]T]

	// GetByID fetches a single entity.
	GetByID(ctx context.Context, id K) Result[T]

	// Save creates or updates an entity and returns the stored form
	// (with server-assigned identifier on create).
	Save(ctx context.Context, entity T) Result[T]

	// UpdateActiveStatus flips the soft-delete flag on a record.
	UpdateActiveStatus(ctx context.Context, id K, active bool) (bool, error)

	// NextCode asks the server for the next advisory code with the
	// given prefix and zero-pad width. The code is not reserved; two
	// concurrent callers may receive the same suggestion and the
	// eventual Save is the authority that rejects duplicates.
	NextCode(ctx context.Context, prefix string, padWidth int) (string, error)
}
