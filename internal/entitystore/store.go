package entitystore

import (
	"context"
	"fmt"
	"sync"
)

// Store is a reusable client-side state container for one entity
// type. It owns an in-memory list of entities plus loading/error
// state and keeps the list consistent with the latest known server
// state using optimistic merges keyed on identifier equality.
//
// Each page or dialog constructs its own Store; there is no
// process-wide shared cache. The store never serializes overlapping
// calls; callers are expected to avoid issuing concurrent mutating
// operations (typically by disabling actions while Loading is true);
// if they do overlap, whichever resolves last wins the list.
type Store[T any, K comparable] struct {
	svc  Service[T, K]
	idOf func(T) K

	mu       sync.Mutex
	entities []T
	loading  bool
	err      string
}

// New creates a store over the given remote service. idOf extracts
// the identifier from an entity; entities are opaque otherwise.
func New[T any, K comparable](svc Service[T, K], idOf func(T) K) *Store[T, K] {
	return &Store[T, K]{svc: svc, idOf: idOf}
}

// Entities returns a copy of the current in-memory list.
func (s *Store[T, K]) Entities() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]T(nil), s.entities...)
}

// Loading reports whether an operation is in flight.
func (s *Store[T, K]) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the message of the most recent failed operation, or ""
// if the last operation succeeded. It is cleared at the start of
// every operation attempt.
func (s *Store[T, K]) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// begin marks an operation in flight and clears the previous error.
func (s *Store[T, K]) begin() {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
}

// fail records a failed operation and resets the loading flag.
func (s *Store[T, K]) fail(message string) {
	if message == "" {
		message = genericFailureMessage
	}
	s.mu.Lock()
	s.loading = false
	s.err = message
	s.mu.Unlock()
}

// FetchList replaces the in-memory list with the full server
// collection. On failure the previous list is left untouched and the
// failure message is recorded in Err; FetchList itself never returns
// an error, it resolves with the resulting list either way.
func (s *Store[T, K]) FetchList(ctx context.Context) []T {
	s.begin()

	res := guard(func() Result[[]T] { return s.svc.GetAll(ctx) })
	if !res.Success || res.Data == nil {
		s.fail(res.ErrorMessage)
		return s.Entities()
	}

	s.mu.Lock()
	s.entities = append([]T(nil), (*res.Data)...)
	list := append([]T(nil), s.entities...)
	s.loading = false
	s.mu.Unlock()
	return list
}

// GetByID fetches a single entity from the remote service. The
// in-memory list is not consulted or mutated.
func (s *Store[T, K]) GetByID(ctx context.Context, id K) (T, bool) {
	s.begin()

	res := guard(func() Result[T] { return s.svc.GetByID(ctx, id) })
	if !res.Success || res.Data == nil {
		s.fail(res.ErrorMessage)
		var zero T
		return zero, false
	}

	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
	return *res.Data, true
}

// Save sends the entity to the remote save endpoint and merges the
// stored form into the list: an entity with a matching identifier is
// replaced in place, otherwise the new entity is appended. The order
// of the other entries is preserved and no entry is ever duplicated.
// The remote envelope is passed through unchanged; Save never panics
// and is never retried.
func (s *Store[T, K]) Save(ctx context.Context, entity T) Result[T] {
	s.begin()

	res := guard(func() Result[T] { return s.svc.Save(ctx, entity) })
	if res.Success && res.Data == nil {
		// A success envelope without data violates the contract;
		// surface it as a failure rather than corrupting the list.
		res = Fail[T]("remote save returned no entity")
	}
	if !res.Success {
		s.fail(res.ErrorMessage)
		return res
	}

	saved := *res.Data
	id := s.idOf(saved)

	s.mu.Lock()
	replaced := false
	for i := range s.entities {
		if s.idOf(s.entities[i]) == id {
			s.entities[i] = saved
			replaced = true
			break
		}
	}
	if !replaced {
		s.entities = append(s.entities, saved)
	}
	s.loading = false
	s.mu.Unlock()
	return res
}

// Delete asks the remote service to deactivate the record, then
// removes it from the in-memory list. The server record is merely
// flagged inactive; dropping it locally is a deliberate optimistic
// choice so deactivated records vanish from active-management views
// without a follow-up fetch.
func (s *Store[T, K]) Delete(ctx context.Context, id K) bool {
	s.begin()

	ok, err := guard2(func() (bool, error) { return s.svc.UpdateActiveStatus(ctx, id, false) })
	if err != nil || !ok {
		s.fail(messageOf(err))
		return false
	}

	s.mu.Lock()
	kept := s.entities[:0]
	for _, e := range s.entities {
		if s.idOf(e) != id {
			kept = append(kept, e)
		}
	}
	s.entities = kept
	s.loading = false
	s.mu.Unlock()
	return true
}

// UpdateStatus flips the active flag on the remote record without
// touching the in-memory list; callers re-fetch or save to see the
// new flag.
func (s *Store[T, K]) UpdateStatus(ctx context.Context, id K, active bool) bool {
	s.begin()

	ok, err := guard2(func() (bool, error) { return s.svc.UpdateActiveStatus(ctx, id, active) })
	if err != nil || !ok {
		s.fail(messageOf(err))
		return false
	}

	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
	return true
}

// NextCode fetches the next advisory code for this entity type. The
// code is a suggestion only; nothing is reserved server-side.
func (s *Store[T, K]) NextCode(ctx context.Context, prefix string, padWidth int) (string, bool) {
	s.begin()

	code, err := guard2(func() (string, error) { return s.svc.NextCode(ctx, prefix, padWidth) })
	if err != nil {
		s.fail(messageOf(err))
		return "", false
	}

	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
	return code, true
}

// guard runs a remote call that reports failure through the envelope,
// converting a panic into a failure envelope so store operations
// always resolve.
func guard[T any](call func() Result[T]) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = Fail[T](recoveredMessage(r))
		}
	}()
	res = call()
	if !res.Success && res.ErrorMessage == "" {
		res.ErrorMessage = genericFailureMessage
	}
	return res
}

// guard2 runs a remote call that reports failure through a bare
// (value, error) pair, converting a panic into an error.
func guard2[V any](call func() (V, error)) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s", recoveredMessage(r))
		}
	}()
	return call()
}

func recoveredMessage(r any) string {
	switch v := r.(type) {
	case error:
		if msg := v.Error(); msg != "" {
			return msg
		}
	case string:
		if v != "" {
			return v
		}
	}
	return genericFailureMessage
}

// messageOf normalizes an error (possibly nil, when the remote call
// reported a bare false) into the stored failure message.
func messageOf(err error) string {
	if err == nil {
		return genericFailureMessage
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return genericFailureMessage
}
