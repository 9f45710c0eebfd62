package memory

import (
	"time"

	"market-insight-be/pkg/strategy"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// WorkspaceRepository holds one live coordinator per owner. An idle
// workspace expires; the next request reloads it from the sources. Every
// mutation already reached the local slot, so expiry loses nothing.
type WorkspaceRepository struct {
	cache *cache.Cache
	group singleflight.Group
}

func NewWorkspaceRepository(ttl time.Duration) *WorkspaceRepository {
	if ttl <= 0 {
		ttl = 1 * time.Hour
	}
	return &WorkspaceRepository{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (r *WorkspaceRepository) Get(owner string) (*strategy.Coordinator, bool) {
	if x, found := r.cache.Get(owner); found {
		// sliding expiry
		r.cache.Set(owner, x, cache.DefaultExpiration)
		return x.(*strategy.Coordinator), true
	}
	return nil, false
}

type built struct {
	coord *strategy.Coordinator
	fresh bool
}

// GetOrCreate returns the owner's coordinator, building it with create
// when absent. Concurrent callers for the same owner share a single create
// call, and every one of them sees fresh set when that call built it.
func (r *WorkspaceRepository) GetOrCreate(owner string, create func() (*strategy.Coordinator, error)) (*strategy.Coordinator, bool, error) {
	if c, ok := r.Get(owner); ok {
		return c, false, nil
	}

	v, err, _ := r.group.Do(owner, func() (interface{}, error) {
		if c, ok := r.Get(owner); ok {
			return built{coord: c}, nil
		}
		c, err := create()
		if err != nil {
			return nil, err
		}
		r.cache.Set(owner, c, cache.DefaultExpiration)
		return built{coord: c, fresh: true}, nil
	})
	if err != nil {
		return nil, false, err
	}
	b := v.(built)
	return b.coord, b.fresh, nil
}

func (r *WorkspaceRepository) Save(c *strategy.Coordinator) {
	r.cache.Set(c.Owner(), c, cache.DefaultExpiration)
}

func (r *WorkspaceRepository) Delete(owner string) {
	r.cache.Delete(owner)
}
