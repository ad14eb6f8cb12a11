package docmap

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// HiSource claims the next hi value for an entity. Each call must return a
// value no other caller has received.
type HiSource interface {
	NextHi(ctx context.Context, entity string) (int64, error)
}

// HiloSequence hands out identities from blocks of MaxLo values. A block is
// claimed with one round trip; ids skipped by a crash are never reused.
type HiloSequence struct {
	entity string
	maxLo  int64
	source HiSource

	mu        sync.Mutex
	currentHi int64
	currentLo int64
}

func NewHiloSequence(entity string, maxLo int, source HiSource) *HiloSequence {
	if maxLo < 1 {
		maxLo = DefaultHiloMaxLo
	}
	return &HiloSequence{entity: entity, maxLo: int64(maxLo), source: source, currentHi: -1, currentLo: 1}
}

func (s *HiloSequence) Entity() string { return s.entity }
func (s *HiloSequence) MaxLo() int     { return int(s.maxLo) }

// CurrentHi is -1 until the first block is claimed.
func (s *HiloSequence) CurrentHi() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentHi
}

func (s *HiloSequence) NextInt64(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentHi < 0 || s.currentLo > s.maxLo {
		hi, err := s.source.NextHi(ctx, s.entity)
		if err != nil {
			return 0, Wrap(ErrSQL, "claim hilo block for "+s.entity, err)
		}
		s.currentHi = hi
		s.currentLo = 1
		HiloBlocks.WithLabelValues(s.entity).Inc()
	}
	id := s.currentHi*s.maxLo + s.currentLo
	s.currentLo++
	return id, nil
}

func (s *HiloSequence) NextInt(ctx context.Context) (int, error) {
	id, err := s.NextInt64(ctx)
	return int(id), err
}

// Sequences owns one HiloSequence per entity for the lifetime of its schema.
type Sequences struct {
	source HiSource
	seqs   *xsync.MapOf[string, *HiloSequence]
}

func NewSequences(source HiSource) *Sequences {
	return &Sequences{source: source, seqs: xsync.NewMapOf[string, *HiloSequence]()}
}

// SequenceFor returns the entity's sequence, creating it on first use. The
// block size is fixed by the first caller.
func (s *Sequences) SequenceFor(entity string, settings HiloSettings) *HiloSequence {
	seq, _ := s.seqs.LoadOrCompute(entity, func() *HiloSequence {
		return NewHiloSequence(entity, settings.MaxLo, s.source)
	})
	return seq
}

// Entities lists the entities with a live sequence.
func (s *Sequences) Entities() []string {
	var out []string
	s.seqs.Range(func(entity string, _ *HiloSequence) bool {
		out = append(out, entity)
		return true
	})
	return out
}

// dbHiSource claims hi values with the dialect's next-hi statement. The hilo
// objects are created on demand unless auto-create is off, in which case they
// must already exist.
type dbHiSource struct {
	schema *DocumentSchema
}

func (d dbHiSource) NextHi(ctx context.Context, entity string) (int64, error) {
	db, err := d.schema.database()
	if err != nil {
		return 0, err
	}
	if d.schema.opts.AutoCreate != AutoCreateNone {
		if err := d.schema.ensureSystemObjects(ctx); err != nil {
			return 0, err
		}
	}
	var hi int64
	err = db.QueryRowContext(ctx, d.schema.adapter.NextHiStatement(d.schema.opts.Schema), entity).Scan(&hi)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, NewError(ErrSQL, "next hi returned no row for "+entity)
	case err != nil:
		return 0, Wrap(ErrSQL, "claim next hi for "+entity, err)
	}
	return hi, nil
}
