package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/rohithreddydev/taskforge-cloud-platform/internal/cache"
	dom "github.com/rohithreddydev/taskforge-cloud-platform/internal/domain"
	"github.com/rohithreddydev/taskforge-cloud-platform/internal/repo"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/singleflight"
)

var ErrNotFound = errors.New("not found")

// ValidationError carries field-level detail for a 400 response. It is
// returned before any store side effect.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Cache is the volatile layer in front of the repo. A miss is (nil, nil).
// Implemented by cache.TaskCache; the service treats every cache failure
// as a degrade, never as a request failure.
type Cache interface {
	GetTask(ctx context.Context, id int64) (*dom.Task, error)
	SetTask(ctx context.Context, t dom.Task) error
	GetList(ctx context.Context, fingerprint string) ([]dom.Task, error)
	SetList(ctx context.Context, fingerprint string, list []dom.Task) error
	Invalidate(ctx context.Context, ids ...int64) error
}

// TaskInput is the validated-and-normalized payload for create and update.
type TaskInput struct {
	Title       string
	Description string
	Priority    int
	Completed   bool // applied on update only; creates always start pending
	DueDate     *time.Time
}

type TaskService struct {
	repo  repo.TaskRepo
	cache Cache
	sf    singleflight.Group
}

// NewTaskService creates a TaskService. If c is nil, caching is disabled
// and every read goes straight to the repo.
func NewTaskService(r repo.TaskRepo, c Cache) *TaskService {
	return &TaskService{repo: r, cache: c}
}

func (in *TaskInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Priority = dom.NormalizePriority(in.Priority)
}

func (in TaskInput) validate() map[string]string {
	if in.Title == "" {
		return map[string]string{"title": "must not be empty"}
	}
	return nil
}

func (s *TaskService) Create(ctx context.Context, in TaskInput) (dom.Task, error) {
	in.normalize()
	if fields := in.validate(); fields != nil {
		return dom.Task{}, &ValidationError{Fields: fields}
	}

	t, err := s.repo.Create(ctx, dom.Task{
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
	})
	if err != nil {
		return dom.Task{}, err
	}
	s.invalidate(ctx)
	return t, nil
}

func (s *TaskService) GetByID(ctx context.Context, id int64) (dom.Task, error) {
	if s.cache != nil {
		if t, err := s.cache.GetTask(ctx, id); err != nil {
			log.Printf("task cache read: %v", err)
		} else if t != nil {
			return *t, nil
		}
	}
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Task{}, ErrNotFound
		}
		return dom.Task{}, err
	}
	if s.cache != nil {
		if err := s.cache.SetTask(ctx, t); err != nil {
			log.Printf("task cache write: %v", err)
		}
	}
	return t, nil
}

func (s *TaskService) List(ctx context.Context, f dom.TaskFilter) ([]dom.Task, error) {
	f.Search = strings.TrimSpace(f.Search)
	if s.cache == nil {
		return s.repo.List(ctx, f)
	}
	fp := cache.Fingerprint(f)
	v, err, _ := s.sf.Do("list:"+fp, func() (interface{}, error) {
		if list, err := s.cache.GetList(ctx, fp); err != nil {
			log.Printf("list cache read: %v", err)
		} else if list != nil {
			return list, nil
		}
		list, err := s.repo.List(ctx, f)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetList(ctx, fp, list); err != nil {
			log.Printf("list cache write: %v", err)
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]dom.Task), nil
}

func (s *TaskService) Update(ctx context.Context, id int64, in TaskInput) (dom.Task, error) {
	in.normalize()
	if fields := in.validate(); fields != nil {
		return dom.Task{}, &ValidationError{Fields: fields}
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Task{}, ErrNotFound
		}
		return dom.Task{}, err
	}

	patch := existing
	patch.Title = in.Title
	patch.Description = in.Description
	patch.Priority = in.Priority
	patch.DueDate = in.DueDate
	patch.Completed = in.Completed
	patch.CompletedAt = transitionCompletedAt(existing, in.Completed)

	t, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Task{}, ErrNotFound
		}
		return dom.Task{}, err
	}
	s.invalidate(ctx, id)
	return t, nil
}

// Toggle flips the completed flag, keeping every other field as stored.
func (s *TaskService) Toggle(ctx context.Context, id int64) (dom.Task, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Task{}, ErrNotFound
		}
		return dom.Task{}, err
	}

	patch := existing
	patch.Completed = !existing.Completed
	patch.CompletedAt = transitionCompletedAt(existing, patch.Completed)

	t, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dom.Task{}, ErrNotFound
		}
		return dom.Task{}, err
	}
	s.invalidate(ctx, id)
	return t, nil
}

func (s *TaskService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// CreateBatch persists all inputs or none: every item is validated before
// the repo is touched, and the repo inserts in one transaction.
func (s *TaskService) CreateBatch(ctx context.Context, ins []TaskInput) ([]dom.Task, error) {
	fields := map[string]string{}
	tasks := make([]dom.Task, 0, len(ins))
	for i := range ins {
		ins[i].normalize()
		for k, v := range ins[i].validate() {
			fields[fmt.Sprintf("tasks[%d].%s", i, k)] = v
		}
		tasks = append(tasks, dom.Task{
			Title:       ins[i].Title,
			Description: ins[i].Description,
			Priority:    ins[i].Priority,
			DueDate:     ins[i].DueDate,
		})
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	created, err := s.repo.CreateBatch(ctx, tasks)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return created, nil
}

// transitionCompletedAt keeps the completed_at column in lockstep with the
// completed flag: set on the false→true edge, preserved while completed
// stays true, cleared otherwise.
func transitionCompletedAt(prev dom.Task, completed bool) *time.Time {
	switch {
	case !completed:
		return nil
	case prev.Completed:
		return prev.CompletedAt
	default:
		now := time.Now().UTC()
		return &now
	}
}

// invalidate runs after the mutation committed. Detached from the request's
// cancellation so a dropped client connection still evicts; a failure is
// logged and the TTLs bound the staleness.
func (s *TaskService) invalidate(ctx context.Context, ids ...int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(context.WithoutCancel(ctx), ids...); err != nil {
		log.Printf("cache invalidate: %v", err)
	}
}
