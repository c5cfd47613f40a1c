package suggest

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomPaths(r *rand.Rand, n int) []*SearchPath {
	paths := make([]*SearchPath, n)
	for i := range paths {
		paths[i] = &SearchPath{
			Input:      []byte(fmt.Sprintf("%03d", r.Intn(200))),
			score:      float32(r.Intn(20)),
			payloadSep: -1,
		}
	}
	return paths
}

func sortedBestFirst(paths []*SearchPath) []*SearchPath {
	out := append([]*SearchPath(nil), paths...)
	sort.SliceStable(out, func(i, j int) bool { return better(out[i], out[j]) })
	return out
}

func assertSameRank(t *testing.T, want, got *SearchPath) {
	t.Helper()
	assert.Equal(t, want.score, got.score)
	assert.Equal(t, string(want.Input), string(got.Input))
}

func TestPathQueuePopBest(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, n := range []int{1, 2, 3, 7, 8, 100} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			paths := randomPaths(r, n)
			q := newPathQueue(n)
			for _, p := range paths {
				q.push(p)
			}
			for _, want := range sortedBestFirst(paths) {
				got := q.popBest()
				require.NotNil(t, got)
				assertSameRank(t, want, got)
			}
			assert.Nil(t, q.popBest())
		})
	}
}

func TestPathQueuePopWorst(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	paths := randomPaths(r, 64)
	q := newPathQueue(len(paths))
	for _, p := range paths {
		q.push(p)
	}
	sorted := sortedBestFirst(paths)
	for i := len(sorted) - 1; i >= 0; i-- {
		assertSameRank(t, sorted[i], q.worst())
		assertSameRank(t, sorted[i], q.popWorst())
	}
	assert.Nil(t, q.worst())
	assert.Nil(t, q.popWorst())
}

func TestPathQueueBoundedKeepsBest(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	paths := randomPaths(r, 500)
	const limit = 25
	q := newPathQueue(limit)
	for _, p := range paths {
		q.push(p)
		if q.Len() > limit {
			q.popWorst()
		}
	}
	require.Equal(t, limit, q.Len())
	for _, want := range sortedBestFirst(paths)[:limit] {
		assertSameRank(t, want, q.popBest())
	}
}

func TestPathQueueInterleaved(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	q := newPathQueue(8)
	var model []*SearchPath
	for i := 0; i < 2000; i++ {
		switch op := r.Intn(4); {
		case op < 2 || len(model) == 0:
			p := randomPaths(r, 1)[0]
			q.push(p)
			model = append(model, p)
		case op == 2:
			model = sortedBestFirst(model)
			assertSameRank(t, model[0], q.popBest())
			model = model[1:]
		default:
			model = sortedBestFirst(model)
			assertSameRank(t, model[len(model)-1], q.popWorst())
			model = model[:len(model)-1]
		}
		require.Equal(t, len(model), q.Len())
	}
}

func TestIsMinLevel(t *testing.T) {
	levels := map[int]bool{0: true, 1: false, 2: false, 3: true, 6: true, 7: false, 14: false, 15: true}
	for i, want := range levels {
		assert.Equal(t, want, isMinLevel(i), "index %d", i)
	}
}
