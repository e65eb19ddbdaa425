package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffer_AppendAndLen(t *testing.T) {
	b := newBuffer(3)
	assert.False(t, b.Append(RequestEvent{Path: "/a"}))
	assert.False(t, b.Append(RequestEvent{Path: "/b"}))
	assert.Equal(t, 2, b.Len())
}

func TestBuffer_AppendDropsOldestAtCapacity(t *testing.T) {
	b := newBuffer(2)
	b.Append(RequestEvent{Path: "/a"})
	b.Append(RequestEvent{Path: "/b"})
	dropped := b.Append(RequestEvent{Path: "/c"})

	assert.True(t, dropped)
	assert.Equal(t, 2, b.Len())

	drained := b.DrainFront(2)
	assert.Equal(t, "/b", drained[0].Path)
	assert.Equal(t, "/c", drained[1].Path)
}

func TestBuffer_DrainFront(t *testing.T) {
	b := newBuffer(10)
	b.Append(RequestEvent{Path: "/a"})
	b.Append(RequestEvent{Path: "/b"})
	b.Append(RequestEvent{Path: "/c"})

	drained := b.DrainFront(2)
	assert.Len(t, drained, 2)
	assert.Equal(t, "/a", drained[0].Path)
	assert.Equal(t, "/b", drained[1].Path)
	assert.Equal(t, 1, b.Len())
}

func TestBuffer_DrainFront_MoreThanAvailable(t *testing.T) {
	b := newBuffer(10)
	b.Append(RequestEvent{Path: "/a"})

	drained := b.DrainFront(5)
	assert.Len(t, drained, 1)
	assert.Equal(t, 0, b.Len())
}

func TestBuffer_PrependFront_KeepsMostRecentWhenOverCapacity(t *testing.T) {
	b := newBuffer(2)
	b.Append(RequestEvent{Path: "/existing"})

	failed := []RequestEvent{{Path: "/old"}, {Path: "/newer"}}
	b.PrependFront(failed)

	assert.Equal(t, 2, b.Len())
	drained := b.DrainFront(2)
	assert.Equal(t, "/newer", drained[0].Path, "should keep the tail (most recent) of the failed batch")
	assert.Equal(t, "/existing", drained[1].Path)
}

func TestBuffer_PrependFront_NoRoom(t *testing.T) {
	b := newBuffer(1)
	b.Append(RequestEvent{Path: "/existing"})

	b.PrependFront([]RequestEvent{{Path: "/a"}, {Path: "/b"}})

	assert.Equal(t, 1, b.Len())
	drained := b.DrainFront(1)
	assert.Equal(t, "/existing", drained[0].Path)
}

func TestBuffer_SpliceAll(t *testing.T) {
	b := newBuffer(10)
	b.Append(RequestEvent{Path: "/a"})
	b.Append(RequestEvent{Path: "/b"})

	all := b.SpliceAll()
	assert.Len(t, all, 2)
	assert.Equal(t, 0, b.Len())
}
