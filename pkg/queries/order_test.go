package queries

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type scored struct {
	id    int64
	score int
	name  string
}

func TestSortLimit(t *testing.T) {
	rows := []scored{
		{1, 5, "b"},
		{2, 7, "a"},
		{3, 5, "a"},
		{4, 5, "a"},
	}
	keys := []Key[scored]{
		Desc(func(s scored) int { return s.score }),
		Asc(func(s scored) string { return s.name }),
		Desc(func(s scored) int64 { return s.id }),
	}

	got := sortLimit(append([]scored(nil), rows...), -1, keys...)
	assert.Equal(t, []int64{2, 4, 3, 1}, ids(got))

	got = sortLimit(append([]scored(nil), rows...), 2, keys...)
	assert.Equal(t, []int64{2, 4}, ids(got))

	got = sortLimit(append([]scored(nil), rows...), 0, keys...)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	assert.NotNil(t, sortLimit[scored](nil, 10, keys...))
}

func TestFirst(t *testing.T) {
	_, err := first([]scored{})
	assert.ErrorIs(t, err, ErrNotFound)

	r, err := first([]scored{{id: 9}})
	assert.NoError(t, err)
	assert.Equal(t, int64(9), r.id)
}

func ids(rows []scored) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r.id
	}
	return out
}
