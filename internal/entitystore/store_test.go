package entitystore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   int64
	Name string
}

func itemID(i item) int64 { return i.ID }

// fakeService scripts remote behavior per test.
type fakeService struct {
	getAll       func(ctx context.Context) Result[[]item]
	getByID      func(ctx context.Context, id int64) Result[item]
	save         func(ctx context.Context, e item) Result[item]
	updateStatus func(ctx context.Context, id int64, active bool) (bool, error)
	nextCode     func(ctx context.Context, prefix string, width int) (string, error)
}

func (f *fakeService) GetAll(ctx context.Context) Result[[]item] {
	return f.getAll(ctx)
}

func (f *fakeService) GetByID(ctx context.Context, id int64) Result[item] {
	return f.getByID(ctx, id)
}

func (f *fakeService) Save(ctx context.Context, e item) Result[item] {
	return f.save(ctx, e)
}

func (f *fakeService) UpdateActiveStatus(ctx context.Context, id int64, active bool) (bool, error) {
	return f.updateStatus(ctx, id, active)
}

func (f *fakeService) NextCode(ctx context.Context, prefix string, width int) (string, error) {
	return f.nextCode(ctx, prefix, width)
}

func seeded(t *testing.T, svc *fakeService, items []item) *Store[item, int64] {
	t.Helper()
	store := New[item, int64](svc, itemID)
	svc.getAll = func(context.Context) Result[[]item] {
		return OK(append([]item(nil), items...))
	}
	got := store.FetchList(context.Background())
	require.Equal(t, items, got)
	return store
}

func TestFetchListReplacesList(t *testing.T) {
	svc := &fakeService{}
	store := seeded(t, svc, []item{{ID: 1, Name: "A"}})

	svc.getAll = func(context.Context) Result[[]item] {
		return OK([]item{{ID: 2, Name: "B"}, {ID: 3, Name: "C"}})
	}

	got := store.FetchList(context.Background())
	assert.Equal(t, []item{{ID: 2, Name: "B"}, {ID: 3, Name: "C"}}, got)
	assert.Empty(t, store.Err())
	assert.False(t, store.Loading())
}

func TestFailedFetchPreservesPriorList(t *testing.T) {
	svc := &fakeService{}
	before := []item{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}
	store := seeded(t, svc, before)

	svc.getAll = func(context.Context) Result[[]item] {
		return Fail[[]item]("backend unavailable")
	}

	got := store.FetchList(context.Background())
	assert.Equal(t, before, got)
	assert.Equal(t, before, store.Entities())
	assert.Equal(t, "backend unavailable", store.Err())
	assert.False(t, store.Loading())
}

func TestSaveAppendsNewEntity(t *testing.T) {
	svc := &fakeService{}
	store := seeded(t, svc, nil)

	svc.save = func(_ context.Context, e item) Result[item] {
		// server assigns the identifier on create
		return OK(item{ID: 7, Name: e.Name})
	}

	res := store.Save(context.Background(), item{ID: 0, Name: "Foo"})
	require.True(t, res.Success)
	assert.Equal(t, []item{{ID: 7, Name: "Foo"}}, store.Entities())
}

func TestSaveReplacesInPlace(t *testing.T) {
	svc := &fakeService{}
	store := seeded(t, svc, []item{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}})

	svc.save = func(_ context.Context, e item) Result[item] {
		return OK(e)
	}

	res := store.Save(context.Background(), item{ID: 2, Name: "B2"})
	require.True(t, res.Success)
	assert.Equal(t, []item{{ID: 1, Name: "A"}, {ID: 2, Name: "B2"}}, store.Entities())
}

func TestSaveNeverDuplicatesIdentifiers(t *testing.T) {
	svc := &fakeService{}
	store := seeded(t, svc, nil)

	svc.save = func(_ context.Context, e item) Result[item] {
		return OK(e)
	}

	ids := []int64{3, 1, 2, 1, 3, 3, 2}
	for n, id := range ids {
		res := store.Save(context.Background(), item{ID: id, Name: fmt.Sprintf("v%d", n)})
		require.True(t, res.Success)

		seen := map[int64]int{}
		for _, e := range store.Entities() {
			seen[e.ID]++
		}
		for id, count := range seen {
			assert.Equal(t, 1, count, "id %d appears %d times", id, count)
		}
	}

	// first-appearance order is preserved across replacements
	var order []int64
	for _, e := range store.Entities() {
		order = append(order, e.ID)
	}
	assert.Equal(t, []int64{3, 1, 2}, order)
}

func TestSaveFailurePassesEnvelopeThrough(t *testing.T) {
	svc := &fakeService{}
	before := []item{{ID: 1, Name: "A"}}
	store := seeded(t, svc, before)

	svc.save = func(context.Context, item) Result[item] {
		return Fail[item]("duplicate code")
	}

	res := store.Save(context.Background(), item{ID: 0, Name: "dup"})
	assert.False(t, res.Success)
	assert.Equal(t, "duplicate code", res.ErrorMessage)
	assert.Equal(t, before, store.Entities())
	assert.Equal(t, "duplicate code", store.Err())
}

func TestSaveRecoversPanicIntoFailure(t *testing.T) {
	svc := &fakeService{}
	store := seeded(t, svc, nil)

	svc.save = func(context.Context, item) Result[item] {
		panic(errors.New("connection reset"))
	}

	res := store.Save(context.Background(), item{ID: 0, Name: "x"})
	assert.False(t, res.Success)
	assert.Equal(t, "connection reset", res.ErrorMessage)
	assert.False(t, store.Loading())
}

func TestSaveNormalizesMessagelessFailures(t *testing.T) {
	svc := &fakeService{}
	store := seeded(t, svc, nil)

	svc.save = func(context.Context, item) Result[item] {
		return Result[item]{Success: false}
	}

	res := store.Save(context.Background(), item{ID: 0, Name: "x"})
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.ErrorMessage)

	// success without data is equally malformed and must not corrupt the list
	svc.save = func(context.Context, item) Result[item] {
		return Result[item]{Success: true}
	}
	res = store.Save(context.Background(), item{ID: 0, Name: "x"})
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.ErrorMessage)
	assert.Empty(t, store.Entities())
}

func TestLoadingFlagTogglesDuringCall(t *testing.T) {
	svc := &fakeService{}
	store := New[item, int64](svc, itemID)

	var duringFetch bool
	svc.getAll = func(context.Context) Result[[]item] {
		duringFetch = store.Loading()
		return OK[[]item](nil)
	}
	store.FetchList(context.Background())
	assert.True(t, duringFetch)
	assert.False(t, store.Loading())

	// failure path resets the flag too
	svc.getAll = func(context.Context) Result[[]item] {
		return Fail[[]item]("down")
	}
	store.FetchList(context.Background())
	assert.False(t, store.Loading())

	// as does a panic
	svc.getAll = func(context.Context) Result[[]item] {
		panic("boom")
	}
	store.FetchList(context.Background())
	assert.False(t, store.Loading())
	assert.Equal(t, "boom", store.Err())
}

func TestErrClearedAtStartOfNextOperation(t *testing.T) {
	svc := &fakeService{}
	store := New[item, int64](svc, itemID)

	svc.getAll = func(context.Context) Result[[]item] {
		return Fail[[]item]("transient")
	}
	store.FetchList(context.Background())
	require.Equal(t, "transient", store.Err())

	svc.getAll = func(context.Context) Result[[]item] {
		return OK([]item{{ID: 1, Name: "A"}})
	}
	store.FetchList(context.Background())
	assert.Empty(t, store.Err())
}

func TestDeleteRemovesFromListOnSoftDeactivate(t *testing.T) {
	svc := &fakeService{}
	store := seeded(t, svc, []item{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}})

	var gotActive bool
	svc.updateStatus = func(_ context.Context, id int64, active bool) (bool, error) {
		gotActive = active
		return true, nil
	}

	ok := store.Delete(context.Background(), 1)
	require.True(t, ok)
	// delete rides the status endpoint with active=false
	assert.False(t, gotActive)
	assert.Equal(t, []item{{ID: 2, Name: "B"}}, store.Entities())
}

func TestFailedDeleteLeavesListUnchanged(t *testing.T) {
	svc := &fakeService{}
	before := []item{{ID: 1, Name: "A"}}
	store := seeded(t, svc, before)

	svc.updateStatus = func(context.Context, int64, bool) (bool, error) {
		return false, nil
	}
	assert.False(t, store.Delete(context.Background(), 1))
	assert.Equal(t, before, store.Entities())
	assert.NotEmpty(t, store.Err())

	svc.updateStatus = func(context.Context, int64, bool) (bool, error) {
		return false, errors.New("record is referenced")
	}
	assert.False(t, store.Delete(context.Background(), 1))
	assert.Equal(t, before, store.Entities())
	assert.Equal(t, "record is referenced", store.Err())
}

func TestUpdateStatusDoesNotTouchList(t *testing.T) {
	svc := &fakeService{}
	before := []item{{ID: 1, Name: "A"}}
	store := seeded(t, svc, before)

	svc.updateStatus = func(context.Context, int64, bool) (bool, error) {
		return true, nil
	}

	assert.True(t, store.UpdateStatus(context.Background(), 1, true))
	assert.Equal(t, before, store.Entities())
}

func TestGetByIDDoesNotMutateList(t *testing.T) {
	svc := &fakeService{}
	before := []item{{ID: 1, Name: "A"}}
	store := seeded(t, svc, before)

	svc.getByID = func(_ context.Context, id int64) Result[item] {
		return OK(item{ID: id, Name: "fresh"})
	}

	got, ok := store.GetByID(context.Background(), 9)
	require.True(t, ok)
	assert.Equal(t, item{ID: 9, Name: "fresh"}, got)
	assert.Equal(t, before, store.Entities())

	svc.getByID = func(context.Context, int64) Result[item] {
		return Fail[item]("no such record")
	}
	_, ok = store.GetByID(context.Background(), 9)
	assert.False(t, ok)
	assert.Equal(t, "no such record", store.Err())
}

func TestNextCodeIsAdvisoryOnly(t *testing.T) {
	svc := &fakeService{}
	store := seeded(t, svc, nil)

	calls := 0
	svc.nextCode = func(_ context.Context, prefix string, width int) (string, error) {
		calls++
		return "ABC0001", nil
	}

	first, ok := store.NextCode(context.Background(), "ABC", 4)
	require.True(t, ok)
	second, ok := store.NextCode(context.Background(), "ABC", 4)
	require.True(t, ok)

	// no client-side reservation or uniqueness check: both calls go
	// through and may legitimately return the same suggestion
	assert.Equal(t, 2, calls)
	assert.Equal(t, first, second)
	assert.Equal(t, "ABC0001", first)
}

func TestNextCodeFailure(t *testing.T) {
	svc := &fakeService{}
	store := seeded(t, svc, nil)

	svc.nextCode = func(context.Context, string, int) (string, error) {
		return "", errors.New("generator offline")
	}

	_, ok := store.NextCode(context.Background(), "ABC", 4)
	assert.False(t, ok)
	assert.Equal(t, "generator offline", store.Err())
}

func TestIndependentStoresDoNotShareState(t *testing.T) {
	svc := &fakeService{}
	svc.getAll = func(context.Context) Result[[]item] {
		return OK([]item{{ID: 1, Name: "A"}})
	}

	a := New[item, int64](svc, itemID)
	b := New[item, int64](svc, itemID)

	a.FetchList(context.Background())
	assert.Len(t, a.Entities(), 1)
	assert.Empty(t, b.Entities())
}
