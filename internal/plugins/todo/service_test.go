package todo

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/keyxmakerx/todoapi/internal/apperror"
	"github.com/keyxmakerx/todoapi/internal/pagination"
)

// --- In-memory Repository ---

// memRepo implements TodoRepository over a map. The *Fn fields, when set,
// override the matching method so tests can inject failures.
type memRepo struct {
	rows    map[int64]Todo
	nextID  int64
	updates int

	updateFn func(ctx context.Context, todo *Todo) error
	listFn   func(ctx context.Context, opts pagination.Options) ([]Todo, error)
	findFn   func(ctx context.Context, id int64) (*Todo, error)
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[int64]Todo{}}
}

func (m *memRepo) Create(_ context.Context, todo *Todo) error {
	m.nextID++
	todo.ID = m.nextID
	m.rows[todo.ID] = *todo
	return nil
}

func (m *memRepo) FindByID(ctx context.Context, id int64) (*Todo, error) {
	if m.findFn != nil {
		return m.findFn(ctx, id)
	}
	t, ok := m.rows[id]
	if !ok {
		return nil, apperror.NewNotFound("todo not found")
	}
	return &t, nil
}

func (m *memRepo) Update(ctx context.Context, todo *Todo) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, todo)
	}
	if _, ok := m.rows[todo.ID]; !ok {
		return apperror.NewNotFound("todo not found")
	}
	m.updates++
	m.rows[todo.ID] = *todo
	return nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return apperror.NewNotFound("todo not found")
	}
	delete(m.rows, id)
	return nil
}

func (m *memRepo) Count(_ context.Context) (int, error) {
	return len(m.rows), nil
}

func (m *memRepo) List(ctx context.Context, opts pagination.Options) ([]Todo, error) {
	if m.listFn != nil {
		return m.listFn(ctx, opts)
	}
	all := make([]Todo, 0, len(m.rows))
	for _, t := range m.rows {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool {
		if opts.Order == pagination.Asc {
			return all[i].ID < all[j].ID
		}
		return all[i].ID > all[j].ID
	})

	start := opts.Offset()
	if start >= len(all) {
		return nil, nil
	}
	end := start + opts.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

// --- Test Helpers ---

// testClock is a settable clock for deterministic timestamps.
type testClock struct{ t time.Time }

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTodoService(repo *memRepo) (*todoService, *testClock) {
	clock := &testClock{t: time.Date(2026, 3, 14, 9, 26, 53, 589000000, time.UTC)}
	svc := NewTodoService(repo).(*todoService)
	svc.now = clock.now
	return svc, clock
}

func strPtr(s string) *string { return &s }

func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// --- Create / Get Tests ---

func TestCreateThenGet_RoundTrip(t *testing.T) {
	repo := newMemRepo()
	svc, clock := newTestTodoService(repo)

	created, err := svc.Create(context.Background(), CreateTodoInput{Title: "t", Description: strPtr("d")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := svc.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "t" || got.Description == nil || *got.Description != "d" {
		t.Errorf("unexpected task: %+v", got)
	}
	if got.CompletedAt != nil {
		t.Error("expected completedAt to be null")
	}
	if !got.CreatedAt.Equal(got.UpdatedAt) {
		t.Errorf("expected createdAt == updatedAt, got %v / %v", got.CreatedAt, got.UpdatedAt)
	}
	if got.CreatedAt.Format(time.DateOnly) != clock.now().Format(time.DateOnly) {
		t.Errorf("expected creation on %v, got %v", clock.now(), got.CreatedAt)
	}
	if got.CreatedAt.Nanosecond() != 0 {
		t.Error("expected timestamps truncated to the second")
	}
}

func TestGet_NotFound(t *testing.T) {
	svc, _ := newTestTodoService(newMemRepo())
	_, err := svc.Get(context.Background(), 99)
	assertAppError(t, err, http.StatusNotFound)
}

func TestGet_StorageFailure(t *testing.T) {
	repo := newMemRepo()
	repo.findFn = func(context.Context, int64) (*Todo, error) {
		return nil, errors.New("connection refused")
	}
	svc, _ := newTestTodoService(repo)

	_, err := svc.Get(context.Background(), 1)
	assertAppError(t, err, http.StatusUnprocessableEntity)
}

// --- Update Tests ---

func TestUpdate_NoOpIsIdempotent(t *testing.T) {
	repo := newMemRepo()
	svc, clock := newTestTodoService(repo)

	created, err := svc.Create(context.Background(), CreateTodoInput{Title: "same", Description: strPtr("desc")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	req := UpdateTodoRequest{}
	req.Title.Set, req.Title.Value = true, "same"
	req.Description.Set, req.Description.Value = true, "desc"

	for i := 0; i < 3; i++ {
		clock.advance(time.Minute)
		result, err := svc.Update(context.Background(), created.ID, req)
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		if result.IsDirty {
			t.Errorf("update %d: expected isDirty=false", i)
		}
		if len(result.Dirty) != 0 {
			t.Errorf("update %d: expected empty dirty map, got %v", i, result.Dirty)
		}
		if result.Dirty == nil {
			t.Errorf("update %d: expected a non-nil dirty map", i)
		}
		if !result.Data.UpdatedAt.Equal(created.UpdatedAt) {
			t.Errorf("update %d: updatedAt moved to %v", i, result.Data.UpdatedAt)
		}
	}

	if repo.updates != 0 {
		t.Errorf("expected no storage writes, got %d", repo.updates)
	}
}

func TestUpdate_EmptyPatchIsNoOp(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestTodoService(repo)
	created, _ := svc.Create(context.Background(), CreateTodoInput{Title: "x"})

	result, err := svc.Update(context.Background(), created.ID, UpdateTodoRequest{})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if result.IsDirty || repo.updates != 0 {
		t.Error("expected an empty patch to change nothing")
	}
}

func TestUpdate_DirtyMatchesChangedFields(t *testing.T) {
	repo := newMemRepo()
	svc, clock := newTestTodoService(repo)

	created, err := svc.Create(context.Background(), CreateTodoInput{Title: "before", Description: strPtr("keep me")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	clock.advance(time.Hour)
	req := UpdateTodoRequest{}
	req.Title.Set, req.Title.Value = true, "after"
	req.Description.Set, req.Description.Null = true, true

	result, err := svc.Update(context.Background(), created.ID, req)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !result.IsDirty {
		t.Fatal("expected isDirty=true")
	}

	want := map[string]bool{"title": true, "description": true, "updatedAt": true}
	if len(result.Dirty) != len(want) {
		t.Fatalf("expected dirty keys %v, got %v", want, result.Dirty)
	}
	for k := range want {
		if _, ok := result.Dirty[k]; !ok {
			t.Errorf("expected %q in dirty map", k)
		}
	}
	if result.Dirty["title"] != "after" {
		t.Errorf("expected dirty title 'after', got %v", result.Dirty["title"])
	}
	if result.Dirty["description"] != nil {
		t.Errorf("expected dirty description nil, got %v", result.Dirty["description"])
	}

	if result.Original.Title != "before" || result.Original.Description == nil {
		t.Errorf("original was mutated: %+v", result.Original)
	}
	if result.Data.Description != nil {
		t.Error("expected description cleared by explicit null")
	}
	if !result.Data.UpdatedAt.Equal(stamp(clock.now())) {
		t.Errorf("expected updatedAt %v, got %v", stamp(clock.now()), result.Data.UpdatedAt)
	}
	if !result.Data.CreatedAt.Equal(created.CreatedAt) {
		t.Error("createdAt must not change")
	}

	stored := repo.rows[created.ID]
	if stored.Title != "after" || stored.Description != nil {
		t.Errorf("candidate not persisted in full: %+v", stored)
	}
	if repo.updates != 1 {
		t.Errorf("expected exactly one write, got %d", repo.updates)
	}
}

func TestUpdate_CompletedAtSetAndCleared(t *testing.T) {
	repo := newMemRepo()
	svc, clock := newTestTodoService(repo)
	created, _ := svc.Create(context.Background(), CreateTodoInput{Title: "task"})

	clock.advance(time.Minute)
	done := time.Date(2026, 3, 15, 10, 0, 0, 123, time.FixedZone("JST", 9*60*60))
	req := UpdateTodoRequest{}
	req.CompletedAt.Set, req.CompletedAt.Value = true, done

	result, err := svc.Update(context.Background(), created.ID, req)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, ok := result.Dirty["completedAt"]; !ok {
		t.Errorf("expected completedAt in dirty map, got %v", result.Dirty)
	}
	if result.Data.CompletedAt == nil || !result.Data.CompletedAt.Equal(done.Truncate(time.Second)) {
		t.Errorf("unexpected completedAt %v", result.Data.CompletedAt)
	}

	clock.advance(time.Minute)
	reset := UpdateTodoRequest{}
	reset.CompletedAt.Set, reset.CompletedAt.Null = true, true

	result, err = svc.Update(context.Background(), created.ID, reset)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if result.Data.CompletedAt != nil {
		t.Error("expected completedAt cleared")
	}
	if !result.IsDirty {
		t.Error("expected clearing completedAt to be dirty")
	}
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _ := newTestTodoService(newMemRepo())
	req := UpdateTodoRequest{}
	req.Title.Set, req.Title.Value = true, "x"

	_, err := svc.Update(context.Background(), 404, req)
	assertAppError(t, err, http.StatusNotFound)
}

func TestUpdate_RowDeletedAfterRead(t *testing.T) {
	repo := newMemRepo()
	svc, clock := newTestTodoService(repo)
	created, _ := svc.Create(context.Background(), CreateTodoInput{Title: "x"})

	// The read still sees the task, but it is gone by the time of the write.
	stale := *created
	repo.findFn = func(context.Context, int64) (*Todo, error) {
		delete(repo.rows, stale.ID)
		return &stale, nil
	}
	clock.advance(time.Minute)
	req := UpdateTodoRequest{}
	req.Title.Set, req.Title.Value = true, "y"

	result, err := svc.Update(context.Background(), created.ID, req)
	assertAppError(t, err, http.StatusNotFound)
	if result != nil {
		t.Error("expected no result for a vanished task")
	}
}

func TestUpdate_StorageFailure(t *testing.T) {
	repo := newMemRepo()
	svc, clock := newTestTodoService(repo)
	created, _ := svc.Create(context.Background(), CreateTodoInput{Title: "x"})

	repo.updateFn = func(context.Context, *Todo) error {
		return errors.New("deadlock found")
	}
	clock.advance(time.Minute)
	req := UpdateTodoRequest{}
	req.Title.Set, req.Title.Value = true, "y"

	_, err := svc.Update(context.Background(), created.ID, req)
	assertAppError(t, err, http.StatusUnprocessableEntity)

	if repo.rows[created.ID].Title != "x" {
		t.Error("expected stored task unchanged after a failed write")
	}
}

// --- List Tests ---

func TestList_TwentyOneItems(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestTodoService(repo)
	for i := 0; i < 21; i++ {
		if _, err := svc.Create(context.Background(), CreateTodoInput{Title: "task"}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	cases := []struct {
		page     int
		items    int
		hasPrev  bool
		hasNext  bool
		notFound bool
	}{
		{page: 1, items: 10, hasPrev: false, hasNext: true},
		{page: 2, items: 10, hasPrev: true, hasNext: true},
		{page: 3, items: 1, hasPrev: true, hasNext: false},
		{page: 4, notFound: true},
	}

	for _, tc := range cases {
		opts := pagination.Options{Order: pagination.Desc, OrderBy: DefaultOrderBy, Page: tc.page, Limit: 10}
		todos, meta, err := svc.List(context.Background(), opts)
		if tc.notFound {
			assertAppError(t, err, http.StatusNotFound)
			continue
		}
		if err != nil {
			t.Fatalf("page %d: %v", tc.page, err)
		}
		if len(todos) != tc.items {
			t.Errorf("page %d: expected %d items, got %d", tc.page, tc.items, len(todos))
		}
		if meta.PageCount != 3 || meta.CurrentPage != tc.page || meta.ItemCount != 21 {
			t.Errorf("page %d: unexpected meta %+v", tc.page, meta)
		}
		if meta.HasPrevPage != tc.hasPrev || meta.HasNextPage != tc.hasNext {
			t.Errorf("page %d: expected prev=%v next=%v, got %+v", tc.page, tc.hasPrev, tc.hasNext, meta)
		}
	}
}

func TestList_EmptyTableIsNotFound(t *testing.T) {
	svc, _ := newTestTodoService(newMemRepo())
	_, _, err := svc.List(context.Background(), pagination.Options{Order: pagination.Desc, OrderBy: DefaultOrderBy, Page: 1, Limit: 10})
	assertAppError(t, err, http.StatusNotFound)
}

func TestList_StorageFailure(t *testing.T) {
	repo := newMemRepo()
	repo.listFn = func(context.Context, pagination.Options) ([]Todo, error) {
		return nil, errors.New("table missing")
	}
	svc, _ := newTestTodoService(repo)

	_, _, err := svc.List(context.Background(), pagination.Options{Page: 1, Limit: 10, OrderBy: DefaultOrderBy})
	assertAppError(t, err, http.StatusUnprocessableEntity)
}

// --- Delete Tests ---

func TestDelete_ReturnsLastState(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestTodoService(repo)
	created, _ := svc.Create(context.Background(), CreateTodoInput{Title: "bye"})

	deleted, err := svc.Delete(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.ID != created.ID || deleted.Title != "bye" {
		t.Errorf("unexpected last state %+v", deleted)
	}

	_, err = svc.Get(context.Background(), created.ID)
	assertAppError(t, err, http.StatusNotFound)

	_, err = svc.Delete(context.Background(), created.ID)
	assertAppError(t, err, http.StatusNotFound)
}
