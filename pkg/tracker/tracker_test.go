package tracker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_Counters(t *testing.T) {
	tr := New()

	tr.TrackAPISuccess("gemini")
	tr.TrackAPISuccess("gemini")
	tr.TrackAPIFailure("gemini")
	tr.TrackFallback("gemini")
	tr.TrackCacheHit("tour")
	tr.TrackCacheMiss("tour")

	snap := tr.Snapshot()

	assert.EqualValues(t, 2, snap["gemini"].APISuccess)
	assert.EqualValues(t, 1, snap["gemini"].APIFailures)
	assert.EqualValues(t, 1, snap["gemini"].Fallbacks)
	assert.EqualValues(t, 1, snap["tour"].CacheHits)
	assert.EqualValues(t, 1, snap["tour"].CacheMisses)
}

func TestTracker_ConcurrentAccess(t *testing.T) {
	tr := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.TrackAPISuccess("pollinations")
			tr.TrackCacheMiss("pollinations")
		}()
	}
	wg.Wait()

	snap := tr.Snapshot()
	assert.EqualValues(t, 50, snap["pollinations"].APISuccess)
	assert.EqualValues(t, 50, snap["pollinations"].CacheMisses)
}
