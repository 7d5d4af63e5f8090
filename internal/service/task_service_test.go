package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	dom "github.com/rohithreddydev/taskforge-cloud-platform/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo is an in-memory TaskRepo with the same filter and ordering
// semantics as the Postgres implementation.
type memRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]dom.Task
	clock  time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[int64]dom.Task{}, clock: time.Now().UTC()}
}

func (r *memRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Millisecond)
	return r.clock
}

func (r *memRepo) Create(_ context.Context, t dom.Task) (dom.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	t.ID = r.nextID
	t.CreatedAt = r.tick()
	t.UpdatedAt = t.CreatedAt
	r.rows[t.ID] = t
	return t, nil
}

func (r *memRepo) GetByID(_ context.Context, id int64) (dom.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.rows[id]
	if !ok {
		return dom.Task{}, pgx.ErrNoRows
	}
	return t, nil
}

func matches(t dom.Task, f dom.TaskFilter) bool {
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	if f.Completed != nil && t.Completed != *f.Completed {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	return true
}

func (r *memRepo) List(_ context.Context, f dom.TaskFilter) ([]dom.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []dom.Task
	for _, t := range r.rows {
		if matches(t, f) {
			list = append(list, t)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (r *memRepo) Update(_ context.Context, id int64, patch dom.Task) (dom.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.rows[id]
	if !ok {
		return dom.Task{}, pgx.ErrNoRows
	}
	patch.ID = id
	patch.CreatedAt = existing.CreatedAt
	patch.UpdatedAt = r.tick()
	r.rows[id] = patch
	return patch, nil
}

func (r *memRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.rows, id)
	return nil
}

func (r *memRepo) CreateBatch(ctx context.Context, tasks []dom.Task) ([]dom.Task, error) {
	out := make([]dom.Task, 0, len(tasks))
	for _, t := range tasks {
		created, err := r.Create(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, created)
	}
	return out, nil
}

func (r *memRepo) Stats(_ context.Context, dayStart, dayEnd time.Time) (dom.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := dom.Stats{ByPriority: map[int]int64{
		dom.PriorityLow: 0, dom.PriorityMedium: 0, dom.PriorityHigh: 0,
	}}
	for _, t := range r.rows {
		s.Total++
		if t.Completed {
			s.Completed++
		}
		s.ByPriority[t.Priority]++
		if !t.CreatedAt.Before(dayStart) && t.CreatedAt.Before(dayEnd) {
			s.CreatedToday++
		}
	}
	return s, nil
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

// fakeCache mirrors TaskCache semantics in memory: Invalidate drops the
// given items plus every list entry.
type fakeCache struct {
	mu            sync.Mutex
	items         map[int64]dom.Task
	lists         map[string][]dom.Task
	invalidations int
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: map[int64]dom.Task{}, lists: map[string][]dom.Task{}}
}

func (c *fakeCache) GetTask(_ context.Context, id int64) (*dom.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.items[id]; ok {
		return &t, nil
	}
	return nil, nil
}

func (c *fakeCache) SetTask(_ context.Context, t dom.Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[t.ID] = t
	return nil
}

func (c *fakeCache) GetList(_ context.Context, fp string) ([]dom.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.lists[fp]; ok {
		return l, nil
	}
	return nil, nil
}

func (c *fakeCache) SetList(_ context.Context, fp string, list []dom.Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if list == nil {
		list = []dom.Task{}
	}
	c.lists[fp] = list
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, ids ...int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.items, id)
	}
	c.lists = map[string][]dom.Task{}
	c.invalidations++
	return nil
}

func (c *fakeCache) listCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lists)
}

// failCache errors on every operation, standing in for an unreachable
// backend.
type failCache struct{}

var errCacheDown = errors.New("cache down")

func (failCache) GetTask(context.Context, int64) (*dom.Task, error)   { return nil, errCacheDown }
func (failCache) SetTask(context.Context, dom.Task) error             { return errCacheDown }
func (failCache) GetList(context.Context, string) ([]dom.Task, error) { return nil, errCacheDown }
func (failCache) SetList(context.Context, string, []dom.Task) error   { return errCacheDown }
func (failCache) Invalidate(context.Context, ...int64) error          { return errCacheDown }

func TestCreateDefaults(t *testing.T) {
	svc := NewTaskService(newMemRepo(), nil)

	created, err := svc.Create(context.Background(), TaskInput{Title: "A"})
	require.NoError(t, err)
	assert.False(t, created.Completed)
	assert.Nil(t, created.CompletedAt)
	assert.Equal(t, dom.PriorityLow, created.Priority)
	assert.False(t, created.CreatedAt.IsZero())
}

func TestCreateCoercesPriority(t *testing.T) {
	svc := NewTaskService(newMemRepo(), nil)
	for _, p := range []int{-1, 0, 4, 99} {
		created, err := svc.Create(context.Background(), TaskInput{Title: "x", Priority: p})
		require.NoError(t, err)
		assert.Equal(t, dom.PriorityLow, created.Priority, "priority %d", p)
	}
	created, err := svc.Create(context.Background(), TaskInput{Title: "x", Priority: dom.PriorityHigh})
	require.NoError(t, err)
	assert.Equal(t, dom.PriorityHigh, created.Priority)
}

func TestCreateRejectsBlankTitle(t *testing.T) {
	repo := newMemRepo()
	svc := NewTaskService(repo, nil)

	_, err := svc.Create(context.Background(), TaskInput{Title: "   "})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "title")
	assert.Zero(t, repo.count(), "invalid input must not reach the store")
}

func TestCompletedAtFollowsCompleted(t *testing.T) {
	svc := NewTaskService(newMemRepo(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, TaskInput{Title: "A"})
	require.NoError(t, err)

	done, err := svc.Update(ctx, created.ID, TaskInput{Title: "A", Completed: true})
	require.NoError(t, err)
	assert.True(t, done.Completed)
	require.NotNil(t, done.CompletedAt)

	undone, err := svc.Update(ctx, created.ID, TaskInput{Title: "A", Completed: false})
	require.NoError(t, err)
	assert.False(t, undone.Completed)
	assert.Nil(t, undone.CompletedAt)
}

func TestUpdateIdempotent(t *testing.T) {
	svc := NewTaskService(newMemRepo(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, TaskInput{Title: "A"})
	require.NoError(t, err)

	in := TaskInput{Title: "A", Description: "same", Priority: 2, Completed: true}
	first, err := svc.Update(ctx, created.ID, in)
	require.NoError(t, err)
	second, err := svc.Update(ctx, created.ID, in)
	require.NoError(t, err)

	// Identical state aside from updated_at advancing.
	assert.Equal(t, first.Title, second.Title)
	assert.Equal(t, first.Description, second.Description)
	assert.Equal(t, first.Priority, second.Priority)
	assert.Equal(t, first.Completed, second.Completed)
	require.NotNil(t, second.CompletedAt)
	assert.Equal(t, *first.CompletedAt, *second.CompletedAt,
		"repeating a PUT must not move completed_at")
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
}

func TestToggleFlipsAndKeepsFields(t *testing.T) {
	svc := NewTaskService(newMemRepo(), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, TaskInput{Title: "A", Description: "keep", Priority: 3})
	require.NoError(t, err)

	on, err := svc.Toggle(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, on.Completed)
	assert.NotNil(t, on.CompletedAt)
	assert.Equal(t, "keep", on.Description)
	assert.Equal(t, 3, on.Priority)

	off, err := svc.Toggle(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, off.Completed)
	assert.Nil(t, off.CompletedAt)
}

func TestListInvalidatedAfterMutation(t *testing.T) {
	repo := newMemRepo()
	c := newFakeCache()
	svc := NewTaskService(repo, c)
	ctx := context.Background()

	_, err := svc.Create(ctx, TaskInput{Title: "first"})
	require.NoError(t, err)

	before, err := svc.List(ctx, dom.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, before, 1)
	require.NotZero(t, c.listCount(), "list should be cached after a read")

	_, err = svc.Create(ctx, TaskInput{Title: "second"})
	require.NoError(t, err)
	assert.Zero(t, c.listCount(), "mutation must evict every cached list")

	after, err := svc.List(ctx, dom.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, after, 2, "read after mutation must reflect it")
}

func TestItemEvictedOnUpdateAndDelete(t *testing.T) {
	repo := newMemRepo()
	c := newFakeCache()
	svc := NewTaskService(repo, c)
	ctx := context.Background()

	created, err := svc.Create(ctx, TaskInput{Title: "A"})
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "A", got.Title)

	updated, err := svc.Update(ctx, created.ID, TaskInput{Title: "B"})
	require.NoError(t, err)
	assert.Equal(t, "B", updated.Title)

	got, err = svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", got.Title, "stale item must not survive an update")

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetServedFromCache(t *testing.T) {
	repo := newMemRepo()
	c := newFakeCache()
	svc := NewTaskService(repo, c)
	ctx := context.Background()

	created, err := svc.Create(ctx, TaskInput{Title: "A"})
	require.NoError(t, err)

	_, err = svc.GetByID(ctx, created.ID)
	require.NoError(t, err)

	// Mutate the store behind the cache's back: within TTL the cached
	// value is served, staleness inside the window is tolerated.
	repo.mu.Lock()
	row := repo.rows[created.ID]
	row.Title = "changed directly"
	repo.rows[created.ID] = row
	repo.mu.Unlock()

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Title)
}

func TestCacheFailureDoesNotAffectCorrectness(t *testing.T) {
	repo := newMemRepo()
	svc := NewTaskService(repo, failCache{})
	ctx := context.Background()

	created, err := svc.Create(ctx, TaskInput{Title: "A"})
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	list, err := svc.List(ctx, dom.TaskFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.Update(ctx, created.ID, TaskInput{Title: "B", Completed: true})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.ID))
}

func TestListFilters(t *testing.T) {
	svc := NewTaskService(newMemRepo(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, TaskInput{Title: "Write report", Priority: 2})
	require.NoError(t, err)
	b, err := svc.Create(ctx, TaskInput{Title: "Ship release", Description: "final REPORT attached"})
	require.NoError(t, err)
	_, err = svc.Toggle(ctx, b.ID)
	require.NoError(t, err)

	bySearch, err := svc.List(ctx, dom.TaskFilter{Search: "report"})
	require.NoError(t, err)
	assert.Len(t, bySearch, 2, "search is case-insensitive over title and description")

	done := true
	byCompleted, err := svc.List(ctx, dom.TaskFilter{Completed: &done})
	require.NoError(t, err)
	require.Len(t, byCompleted, 1)
	assert.Equal(t, b.ID, byCompleted[0].ID)

	p := 2
	byPriority, err := svc.List(ctx, dom.TaskFilter{Priority: &p})
	require.NoError(t, err)
	assert.Len(t, byPriority, 1)
}

func TestBatchAllOrNothing(t *testing.T) {
	repo := newMemRepo()
	svc := NewTaskService(repo, nil)

	_, err := svc.CreateBatch(context.Background(), []TaskInput{
		{Title: "valid"},
		{Title: "  "},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "tasks[1].title")
	assert.Zero(t, repo.count(), "no task may be persisted when any item is invalid")
}

func TestBatchCreatesAll(t *testing.T) {
	repo := newMemRepo()
	svc := NewTaskService(repo, nil)

	created, err := svc.CreateBatch(context.Background(), []TaskInput{
		{Title: "a", Priority: 9},
		{Title: "b", Priority: 2},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, dom.PriorityLow, created[0].Priority)
	assert.Equal(t, dom.PriorityMedium, created[1].Priority)
	assert.Equal(t, 2, repo.count())
}

func TestNotFound(t *testing.T) {
	svc := NewTaskService(newMemRepo(), nil)
	ctx := context.Background()

	_, err := svc.GetByID(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Update(ctx, 42, TaskInput{Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Toggle(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, 42), ErrNotFound)
}
