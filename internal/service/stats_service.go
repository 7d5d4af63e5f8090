package service

import (
	"context"
	"log"
	"time"

	dom "github.com/rohithreddydev/taskforge-cloud-platform/internal/domain"
	"github.com/rohithreddydev/taskforge-cloud-platform/internal/repo"

	"golang.org/x/sync/singleflight"
)

// StatsStore is the fixed-key TTL cache for aggregated stats. A miss is
// (nil, nil). Implemented by cache.StatsCache.
type StatsStore interface {
	Get(ctx context.Context) (*dom.Stats, error)
	Set(ctx context.Context, s dom.Stats) error
}

// Summary is the derived view served to clients.
type Summary struct {
	dom.Stats
	Pending        int64
	CompletionRate float64
}

// StatsService aggregates over the store and caches the result under a
// short TTL. It is not wired into the invalidation registry: stats may lag
// a mutation by up to one TTL window.
type StatsService struct {
	repo  repo.TaskRepo
	cache StatsStore
	loc   *time.Location
	sf    singleflight.Group
}

// NewStatsService creates a StatsService. If c is nil, every call
// aggregates directly. loc defines the calendar day for "created today".
func NewStatsService(r repo.TaskRepo, c StatsStore, loc *time.Location) *StatsService {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsService{repo: r, cache: c, loc: loc}
}

func (s *StatsService) Get(ctx context.Context) (Summary, error) {
	v, err, _ := s.sf.Do("stats", func() (interface{}, error) {
		if s.cache != nil {
			if st, err := s.cache.Get(ctx); err != nil {
				log.Printf("stats cache read: %v", err)
			} else if st != nil {
				return *st, nil
			}
		}
		st, err := s.aggregate(ctx)
		if err != nil {
			return dom.Stats{}, err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, st); err != nil {
				log.Printf("stats cache write: %v", err)
			}
		}
		return st, nil
	})
	if err != nil {
		return Summary{}, err
	}
	return summarize(v.(dom.Stats)), nil
}

func (s *StatsService) aggregate(ctx context.Context) (dom.Stats, error) {
	now := time.Now().In(s.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	st, err := s.repo.Stats(ctx, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return dom.Stats{}, err
	}
	st.GeneratedAt = now.UTC()
	return st, nil
}

// summarize derives the client-facing figures. Rate is 0 for an empty
// store, and the priority breakdown always reports all three levels.
func summarize(st dom.Stats) Summary {
	if st.ByPriority == nil {
		st.ByPriority = map[int]int64{}
	}
	for p := dom.PriorityLow; p <= dom.PriorityHigh; p++ {
		if _, ok := st.ByPriority[p]; !ok {
			st.ByPriority[p] = 0
		}
	}
	sum := Summary{Stats: st, Pending: st.Total - st.Completed}
	if st.Total > 0 {
		sum.CompletionRate = float64(st.Completed) / float64(st.Total) * 100
	}
	return sum
}
