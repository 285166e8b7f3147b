package functional

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistinct(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Distinct([]string{"a", "b", "a"}))
}

func TestIntersect(t *testing.T) {
	assert.Equal(t, []int{3, 1}, Intersect([]int{3, 2, 1}, []int{1, 3, 5}))
	assert.Empty(t, Intersect([]int{1}, nil))
}

func TestFilter(t *testing.T) {
	even := Filter([]int{1, 2, 3, 4}, func(i int) bool { return i%2 == 0 })
	assert.Equal(t, []int{2, 4}, even)
	assert.NotNil(t, Filter([]int(nil), func(int) bool { return true }))
}
