package container_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/signalet-oss/utils/container"
)

func TestPriorityQueueInit(t *testing.T) {
	q := container.NewPriorityQueue[string]()
	assert.Equal(t, 0, q.Len())
}

func TestPriorityQueueHeapOperation(t *testing.T) {
	q := container.NewPriorityQueue[string]()

	// test: heap push

	q.HeapPush("b", 2)
	q.HeapPush("a", 1)
	q.HeapPush("c", 3)
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, "a", q.First())

	// test: heap pop in priority order

	v, p := q.HeapPop()
	assert.Equal(t, "a", v)
	assert.Equal(t, 1.0, p)
	v, _ = q.HeapPop()
	assert.Equal(t, "b", v)
	v, _ = q.HeapPop()
	assert.Equal(t, "c", v)
	assert.Equal(t, 0, q.Len())
}

func TestPriorityQueueHeapify(t *testing.T) {
	q := container.NewPriorityQueue[int]()

	// simple push does not maintain the heap
	q.Push(3, 3)
	q.Push(1, 1)
	q.Push(2, 2)
	q.Heapify()
	assert.Equal(t, 1, q.First())

	v, _ := q.HeapPop()
	assert.Equal(t, 1, v)
	v, _ = q.HeapPop()
	assert.Equal(t, 2, v)
	v, _ = q.HeapPop()
	assert.Equal(t, 3, v)
}
