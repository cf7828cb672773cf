package list

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-r2p/internal/core/osal"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue[item](osal.NewSysLock())
	assert.True(t, q.IsEmpty())
	assert.Nil(t, q.Fetch())
	assert.False(t, q.Skip())

	items := []*item{newItem("1"), newItem("2"), newItem("3")}
	for _, it := range items {
		q.Post(&it.link)
	}
	assert.Equal(t, 3, q.Count())
	assert.Equal(t, "1", q.Peek().name)

	for _, want := range items {
		got := q.Fetch()
		require.NotNil(t, got)
		assert.Same(t, want, got)
		assert.False(t, got.link.IsLinked())
	}
	assert.True(t, q.IsEmpty())
}

func TestQueue_RepostAfterFetch(t *testing.T) {
	q := NewQueue[item](osal.NewSysLock())
	a, b := newItem("a"), newItem("b")

	q.Post(&a.link)
	q.Post(&b.link)
	assert.Panics(t, func() { q.Post(&a.link) })

	assert.True(t, q.Skip())
	q.Post(&a.link)

	assert.Equal(t, "b", q.Fetch().name)
	assert.Equal(t, "a", q.Fetch().name)
	assert.Nil(t, q.Fetch())
}

func TestQueue_Interleaved(t *testing.T) {
	q := NewQueue[item](osal.NewSysLock())
	pool := make([]*item, 8)
	for i := range pool {
		pool[i] = newItem(fmt.Sprint(i))
	}

	next := 0
	for round := 0; round < 100; round++ {
		a, b := pool[round%8], pool[(round+1)%8]
		if a.link.IsLinked() || b.link.IsLinked() {
			continue
		}
		q.Post(&a.link)
		q.Post(&b.link)
		assert.Same(t, a, q.Fetch())
		next++
		assert.Same(t, b, q.Fetch())
	}
	assert.True(t, q.IsEmpty())
	assert.Positive(t, next)
}
