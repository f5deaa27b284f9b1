package beatalign

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/himanishpuri/BeatAlign/pkg/beatalign/beatgrid"
	"github.com/himanishpuri/BeatAlign/pkg/models"
)

// timelines keeps regular timelines per project. The key includes tempo and
// duration so an edited project never reads a stale grid.
type timelines struct {
	cache *lru.Cache[string, beatgrid.Timeline]
}

func newTimelines(size int) (*timelines, error) {
	if size <= 0 {
		size = defaultConfig().CacheSize
	}
	c, err := lru.New[string, beatgrid.Timeline](size)
	if err != nil {
		return nil, fmt.Errorf("creating timeline cache: %w", err)
	}
	return &timelines{cache: c}, nil
}

func timelineKey(p *models.Project) string {
	return fmt.Sprintf("%s|%g|%g", p.ID, p.BPM, p.Duration)
}

func (t *timelines) get(p *models.Project) (beatgrid.Timeline, error) {
	key := timelineKey(p)
	if tl, ok := t.cache.Get(key); ok {
		timelineCache.WithLabelValues("hit").Inc()
		return tl, nil
	}
	timelineCache.WithLabelValues("miss").Inc()

	tl, err := beatgrid.FromBPM(p.BPM, p.Duration)
	if err != nil {
		return beatgrid.Timeline{}, err
	}
	t.cache.Add(key, tl)
	return tl, nil
}

// forget drops every cached timeline of a project.
func (t *timelines) forget(projectID string) {
	prefix := projectID + "|"
	for _, key := range t.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			t.cache.Remove(key)
		}
	}
}

func (t *timelines) len() int {
	return t.cache.Len()
}
