package region

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/towergate/internal/model"
)

func TestIndex_ClassifyFirstMatchWins(t *testing.T) {
	x := NewIndex()
	x.Register(mustRegion(t, "outer", "w", Corner{0, 0, 0}, Corner{100, 100, 100}))
	x.Register(mustRegion(t, "inner", "w", Corner{10, 10, 10}, Corner{20, 20, 20}))

	id, ok := x.Classify(model.NewPosition("w", 15, 15, 15))
	require.True(t, ok)
	assert.Equal(t, "outer", id, "registration order decides overlaps")

	_, ok = x.Classify(model.NewPosition("w", 500, 0, 0))
	assert.False(t, ok)
}

func TestIndex_RegisterIsIdempotentOnID(t *testing.T) {
	x := NewIndex()
	x.Register(mustRegion(t, "r1", "w", Corner{0, 0, 0}, Corner{9, 9, 9}))
	x.Register(mustRegion(t, "r2", "w", Corner{50, 0, 0}, Corner{60, 9, 9}))
	x.Register(mustRegion(t, "r1", "w", Corner{100, 0, 0}, Corner{109, 9, 9}))

	require.Equal(t, 2, x.Len())

	got, ok := x.Get("r1")
	require.True(t, ok)
	assert.Equal(t, Corner{100, 0, 0}, got.Min(), "last write wins")
	assert.Equal(t, "r1", x.Regions()[0].ID(), "replacement keeps the original slot")

	_, ok = x.Classify(model.NewPosition("w", 5, 5, 5))
	assert.False(t, ok, "old bounds must be gone")
}

func TestIndex_Remove(t *testing.T) {
	x := NewIndex()
	x.Register(mustRegion(t, "r1", "w", Corner{0, 0, 0}, Corner{9, 9, 9}))

	assert.True(t, x.Remove("r1"))
	assert.False(t, x.Remove("r1"))
	assert.Equal(t, 0, x.Len())
}

func TestIndex_ReplaceCollapsesDuplicates(t *testing.T) {
	x := NewIndex()
	x.Register(mustRegion(t, "stale", "w", Corner{0, 0, 0}, Corner{1, 1, 1}))

	x.Replace([]Region{
		mustRegion(t, "a", "w", Corner{0, 0, 0}, Corner{1, 1, 1}),
		mustRegion(t, "b", "w", Corner{5, 5, 5}, Corner{6, 6, 6}),
		mustRegion(t, "a", "w", Corner{9, 9, 9}, Corner{10, 10, 10}),
	})

	regions := x.Regions()
	require.Len(t, regions, 2)
	assert.Equal(t, "a", regions[0].ID())
	assert.Equal(t, Corner{9, 9, 9}, regions[0].Min())
	_, ok := x.Get("stale")
	assert.False(t, ok)
}

func TestIndex_ConcurrentReadersDuringReplace(t *testing.T) {
	x := NewIndex()
	r := mustRegion(t, "r", "w", Corner{0, 0, 0}, Corner{9, 9, 9})
	x.Replace([]Region{r})

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				id, ok := x.Classify(model.NewPosition("w", 1, 1, 1))
				if ok && id != "r" {
					t.Errorf("Classify() = %q; want r", id)
					return
				}
			}
		}()
	}
	for range 100 {
		x.Replace([]Region{r})
	}
	wg.Wait()
}
