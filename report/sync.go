package report

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Observer receives the outcome of every synchronization.
type Observer interface {
	ObserveSync(p Policy, snap Snapshot, err error, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveSync(Policy, Snapshot, error, time.Duration) {}

// Prm groups optional parameters of Synchronizer.
type Prm struct {
	// Writes read failures and sync summaries into the log. Nop by default.
	Logger *zap.Logger

	// Number of concurrent reads under BoundedCount policy. Values less than 2
	// mean sequential reads. Probing is always sequential.
	Workers int

	// Receives sync outcomes, e.g. for metrics.
	Observer Observer
}

// Synchronizer enumerates reports of the contract behind a ReadPort.
//
// Synchronizer holds no state between calls: every Synchronize reads the
// contract anew. It is safe for concurrent use if the ReadPort is.
type Synchronizer struct {
	port     ReadPort
	log      *zap.Logger
	workers  int
	observer Observer
}

// NewSynchronizer returns Synchronizer reading reports through the given port.
func NewSynchronizer(port ReadPort, prm Prm) *Synchronizer {
	s := &Synchronizer{
		port:     port,
		log:      prm.Logger,
		workers:  prm.Workers,
		observer: prm.Observer,
	}

	if s.log == nil {
		s.log = zap.NewNop()
	}

	if s.observer == nil {
		s.observer = nopObserver{}
	}

	return s
}

// Synchronize performs a full enumeration pass under the given policy.
//
// Under BoundedCount, Synchronize fails with ErrCountUnavailable if the port
// does not implement Counter or the count request fails; unreadable indices are
// collected into Snapshot.Failures. Under Probing, the first read failure ends
// the enumeration and becomes the last element of Snapshot.Failures; it is not
// returned as an error.
//
// Context is checked before every read. When it is done, collected data is
// dropped and the context error is returned.
func (s *Synchronizer) Synchronize(ctx context.Context, p Policy) (Snapshot, error) {
	var (
		start = time.Now()
		snap  Snapshot
		err   error
	)

	switch p.Kind() {
	case KindProbing:
		snap, err = s.probe(ctx, p.Origin())
	default:
		snap, err = s.bounded(ctx, p.Origin())
	}

	s.observer.ObserveSync(p, snap, err, time.Since(start))

	if err != nil {
		return Snapshot{}, err
	}

	s.log.Debug("reports synchronized",
		zap.Stringer("policy", p),
		zap.Int("records", len(snap.Records)),
		zap.Int("failures", len(snap.Failures)),
	)

	return snap, nil
}

func (s *Synchronizer) bounded(ctx context.Context, origin uint64) (Snapshot, error) {
	counter, ok := s.port.(Counter)
	if !ok {
		return Snapshot{}, ErrCountUnavailable
	}

	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	count, err := counter.ReportCount(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Snapshot{}, ctx.Err()
		}

		return Snapshot{}, fmt.Errorf("%w: %w", ErrCountUnavailable, err)
	}

	if count <= origin {
		return Snapshot{}, nil
	}

	if s.workers > 1 && count-origin > 1 {
		return s.boundedParallel(ctx, origin, count)
	}

	var snap Snapshot

	for i := origin; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return Snapshot{}, err
		}

		rec, err := s.read(ctx, i)
		if err != nil {
			if ctx.Err() != nil {
				return Snapshot{}, ctx.Err()
			}

			snap.Failures = append(snap.Failures, s.skip(i, err))
			continue
		}

		snap.Records = append(snap.Records, rec)
	}

	return snap, nil
}

// boundedParallel reads [origin, count) with a limited number of goroutines.
// Results are placed by index, so the order does not depend on completion
// order.
func (s *Synchronizer) boundedParallel(ctx context.Context, origin, count uint64) (Snapshot, error) {
	type slot struct {
		rec Record
		err error
	}

	var (
		slots = make([]slot, count-origin)
		g     errgroup.Group
	)

	g.SetLimit(s.workers)

	for i := origin; i < count; i++ {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			rec, err := s.read(ctx, i)
			slots[i-origin] = slot{rec: rec, err: err}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot

	for k := range slots {
		if slots[k].err != nil {
			snap.Failures = append(snap.Failures, s.skip(origin+uint64(k), slots[k].err))
			continue
		}

		snap.Records = append(snap.Records, slots[k].rec)
	}

	return snap, nil
}

func (s *Synchronizer) probe(ctx context.Context, origin uint64) (Snapshot, error) {
	var snap Snapshot

	for i := origin; ; i++ {
		if err := ctx.Err(); err != nil {
			return Snapshot{}, err
		}

		rec, err := s.read(ctx, i)
		if err != nil {
			if ctx.Err() != nil {
				return Snapshot{}, ctx.Err()
			}

			f := newReadFailure(i, err)
			snap.Failures = append(snap.Failures, f)

			if f.Kind == FailureNotFound {
				s.log.Debug("probing reached the end of reports", zap.Uint64("index", i))
			} else {
				s.log.Warn("probing stopped by read fault, reports may be truncated",
					zap.Uint64("index", i), zap.Error(err))
			}

			return snap, nil
		}

		snap.Records = append(snap.Records, rec)

		if i == math.MaxUint64 {
			return snap, nil
		}
	}
}

func (s *Synchronizer) read(ctx context.Context, index uint64) (Record, error) {
	rec, err := s.port.GetReport(ctx, index)
	if err != nil {
		return Record{}, err
	}

	rec.ID = index
	if rec.Reward == nil {
		rec.Reward = new(big.Int)
	} else {
		rec.Reward = new(big.Int).Set(rec.Reward)
	}

	return rec, nil
}

func (s *Synchronizer) skip(index uint64, err error) ReadFailure {
	f := newReadFailure(index, err)

	s.log.Warn("failed to read report, skipping",
		zap.Uint64("index", index), zap.Stringer("kind", f.Kind), zap.Error(err))

	return f
}
