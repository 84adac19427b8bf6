package id

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestULIDFormat(t *testing.T) {
	id := NewULIDGenerator().Generate()
	assert.Len(t, id, 26)

	ts, err := Time(id)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, 5*time.Second)
}

func TestULIDMonotonicWithinMillisecond(t *testing.T) {
	g := NewULIDGenerator()
	fixed := time.UnixMilli(1_700_000_000_000)
	g.now = func() time.Time { return fixed }

	prev := g.Generate()
	for i := 0; i < 100; i++ {
		next := g.Generate()
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestULIDConcurrentUnique(t *testing.T) {
	g := NewULIDGenerator()
	var mu sync.Mutex
	seen := make(map[string]struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				id := g.Generate()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 1600)
}

func TestTimeInvalid(t *testing.T) {
	_, err := Time("not-a-ulid")
	assert.Error(t, err)
}
