package docmap

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterHiSource struct {
	next  atomic.Int64
	calls atomic.Int64
	err   error
}

func (c *counterHiSource) NextHi(context.Context, string) (int64, error) {
	c.calls.Add(1)
	if c.err != nil {
		return 0, c.err
	}
	return c.next.Add(1) - 1, nil
}

func TestHiloSequenceBlocks(t *testing.T) {
	ctx := context.Background()
	src := &counterHiSource{}
	seq := NewHiloSequence("order", 3, src)
	assert.Equal(t, int64(-1), seq.CurrentHi())

	var got []int64
	for i := 0; i < 7; i++ {
		id, err := seq.NextInt64(ctx)
		require.NoError(t, err)
		got = append(got, id)
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7}, got)
	assert.Equal(t, int64(3), src.calls.Load())
	assert.Equal(t, int64(2), seq.CurrentHi())
}

func TestHiloSequenceIsUniqueUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	seq := NewHiloSequence("order", 10, &counterHiSource{})

	const workers, each = 8, 50
	seen := make(chan int64, workers*each)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				id, err := seq.NextInt64(ctx)
				assert.NoError(t, err)
				seen <- id
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)
	for id := range seen {
		assert.False(t, unique[id], "duplicate id %d", id)
		unique[id] = true
	}
	assert.Len(t, unique, workers*each)
}

func TestHiloSequenceError(t *testing.T) {
	seq := NewHiloSequence("order", 10, &counterHiSource{err: errors.New("boom")})
	_, err := seq.NextInt(context.Background())
	assert.True(t, IsKind(err, ErrSQL), "got %v", err)
	assert.Equal(t, int64(-1), seq.CurrentHi())
}

func TestSequencesAreShared(t *testing.T) {
	seqs := NewSequences(&counterHiSource{})
	a := seqs.SequenceFor("order", HiloSettings{MaxLo: 5})
	b := seqs.SequenceFor("order", HiloSettings{MaxLo: 99})
	assert.Same(t, a, b)
	assert.Equal(t, 5, b.MaxLo())
	assert.Equal(t, []string{"order"}, seqs.Entities())
}
