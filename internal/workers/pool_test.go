package workers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPoolDefaults(t *testing.T) {
	tests := []struct {
		name       string
		numWorkers int
		expected   int
	}{
		{"positive workers", 5, 5},
		{"zero workers defaults to 10", 0, 10},
		{"negative workers defaults to 10", -1, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPool(tt.numWorkers)
			assert.Equal(t, tt.expected, p.numWorkers)
		})
	}
}

func TestRunEmpty(t *testing.T) {
	p := NewPool(2)
	results := Run(p, []int(nil), func(i int) int { return i }, nil)
	assert.Empty(t, results)
}

func TestRunPreservesOrder(t *testing.T) {
	p := NewPool(4)
	items := []int{10, 20, 30, 40, 50}
	results := Run(p, items, func(i int) int { return i * 2 }, nil)
	assert.Equal(t, []int{20, 40, 60, 80, 100}, results)
}

func TestRunProgressCallback(t *testing.T) {
	p := NewPool(2)
	items := []int{1, 2, 3}

	var calls []int
	progress := func(current, total int) {
		assert.Equal(t, 3, total)
		calls = append(calls, current)
	}

	Run(p, items, func(i int) int { return i }, progress)
	assert.Len(t, calls, 3)
}

func TestRunNilProgressDoesNotPanic(t *testing.T) {
	p := NewPool(2)
	assert.NotPanics(t, func() {
		Run(p, []int{1, 2, 3}, func(i int) int { return i }, nil)
	})
}
