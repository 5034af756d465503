package report_test

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/civicwatch/incident-reports/report"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var errRPC = errors.New("connection reset by peer")

// chainState imitates the contract storage. Indices listed in broken fail
// with the given error.
type chainState struct {
	mu      sync.Mutex
	reports map[uint64]report.Record
	broken  map[uint64]error
	count   uint64
	reads   []uint64
}

func (x *chainState) GetReport(_ context.Context, index uint64) (report.Record, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.reads = append(x.reads, index)

	if err, ok := x.broken[index]; ok {
		return report.Record{}, err
	}

	r, ok := x.reports[index]
	if !ok {
		return report.Record{}, fmt.Errorf("%w: %d", report.ErrNotFound, index)
	}

	return r, nil
}

// countedState additionally provides report count.
type countedState struct {
	*chainState
	countErr error
}

func (x countedState) ReportCount(context.Context) (uint64, error) {
	if x.countErr != nil {
		return 0, x.countErr
	}

	return x.count, nil
}

func newChainState(ids ...uint64) *chainState {
	s := &chainState{
		reports: make(map[uint64]report.Record),
		broken:  make(map[uint64]error),
	}

	for _, id := range ids {
		s.reports[id] = report.Record{
			ID:           999, // must be overridden by the index
			Reporter:     fmt.Sprintf("0x%040x", id+1),
			Description:  fmt.Sprintf("report %d", id),
			Location:     "Main St",
			EvidenceLink: fmt.Sprintf("http://x/%d.png", id),
		}
		if id+1 > s.count {
			s.count = id + 1
		}
	}

	return s
}

func ids(recs []report.Record) []uint64 {
	res := make([]uint64, len(recs))
	for i := range recs {
		res[i] = recs[i].ID
	}
	return res
}

func TestSynchronize_BoundedOrdering(t *testing.T) {
	st := newChainState(0, 1, 2, 3, 4, 5, 6, 7)
	s := report.NewSynchronizer(countedState{chainState: st}, report.Prm{Logger: zaptest.NewLogger(t)})

	snap, err := s.Synchronize(context.Background(), report.BoundedCount(0))
	require.NoError(t, err)
	require.Empty(t, snap.Failures)
	require.Len(t, snap.Records, 8)
	for i := range snap.Records {
		require.EqualValues(t, i, snap.Records[i].ID)
		require.NotNil(t, snap.Records[i].Reward)
	}
}

func TestSynchronize_BoundedSkipsFaults(t *testing.T) {
	st := newChainState(0, 1, 2, 3, 4)
	st.broken[2] = errRPC
	s := report.NewSynchronizer(countedState{chainState: st}, report.Prm{Logger: zaptest.NewLogger(t)})

	snap, err := s.Synchronize(context.Background(), report.BoundedCount(0))
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 1, 3, 4}, ids(snap.Records))
	require.Len(t, snap.Failures, 1)
	require.EqualValues(t, 2, snap.Failures[0].Index)
	require.Equal(t, report.FailureTransient, snap.Failures[0].Kind)
	require.ErrorIs(t, snap.Failures[0], errRPC)
	require.Equal(t, []uint64{0, 1, 2, 3, 4}, st.reads)
	require.False(t, snap.Truncated(report.BoundedCount(0)))
}

func TestSynchronize_BoundedCountUnavailable(t *testing.T) {
	t.Run("no counter", func(t *testing.T) {
		s := report.NewSynchronizer(newChainState(0, 1), report.Prm{})

		_, err := s.Synchronize(context.Background(), report.BoundedCount(0))
		require.ErrorIs(t, err, report.ErrCountUnavailable)
	})

	t.Run("count fails", func(t *testing.T) {
		st := countedState{chainState: newChainState(0, 1), countErr: errRPC}
		s := report.NewSynchronizer(st, report.Prm{})

		_, err := s.Synchronize(context.Background(), report.BoundedCount(0))
		require.ErrorIs(t, err, report.ErrCountUnavailable)
		require.ErrorIs(t, err, errRPC)
		require.Empty(t, st.reads)
	})
}

func TestSynchronize_BoundedOriginAboveCount(t *testing.T) {
	st := newChainState(0, 1)
	s := report.NewSynchronizer(countedState{chainState: st}, report.Prm{})

	snap, err := s.Synchronize(context.Background(), report.BoundedCount(5))
	require.NoError(t, err)
	require.Empty(t, snap.Records)
	require.Empty(t, st.reads)
}

func TestSynchronize_BoundedParallel(t *testing.T) {
	const n = 50

	all := make([]uint64, n)
	for i := range all {
		all[i] = uint64(i)
	}

	st := newChainState(all...)
	st.broken[7] = errRPC
	st.broken[31] = errRPC
	s := report.NewSynchronizer(countedState{chainState: st}, report.Prm{Workers: 8})

	snap, err := s.Synchronize(context.Background(), report.BoundedCount(0))
	require.NoError(t, err)
	require.Len(t, snap.Records, n-2)
	require.Len(t, snap.Failures, 2)
	require.EqualValues(t, 7, snap.Failures[0].Index)
	require.EqualValues(t, 31, snap.Failures[1].Index)

	for i := 1; i < len(snap.Records); i++ {
		require.Less(t, snap.Records[i-1].ID, snap.Records[i].ID)
	}
}

func TestSynchronize_ProbingStopsAtFirstFailure(t *testing.T) {
	// indices past the hole would be valid but must not be reached
	st := newChainState(1, 2, 3, 5, 6)
	s := report.NewSynchronizer(st, report.Prm{Logger: zaptest.NewLogger(t)})

	p := report.Probing(1)
	snap, err := s.Synchronize(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3}, ids(snap.Records))
	require.Len(t, snap.Failures, 1)
	require.EqualValues(t, 4, snap.Failures[0].Index)
	require.Equal(t, report.FailureNotFound, snap.Failures[0].Kind)
	require.Equal(t, []uint64{1, 2, 3, 4}, st.reads)
	require.False(t, snap.Truncated(p))
	require.Empty(t, snap.Skipped(p))
}

func TestSynchronize_ProbingTransientFault(t *testing.T) {
	st := newChainState(0, 1, 2, 3)
	st.broken[2] = errRPC
	s := report.NewSynchronizer(st, report.Prm{Logger: zaptest.NewLogger(t)})

	p := report.Probing(0)
	snap, err := s.Synchronize(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 1}, ids(snap.Records))
	require.Len(t, snap.Failures, 1)
	require.Equal(t, report.FailureTransient, snap.Failures[0].Kind)
	require.True(t, snap.Truncated(p))
	require.Len(t, snap.Skipped(p), 1)
}

func TestSnapshot_Skipped(t *testing.T) {
	snap := report.Snapshot{Failures: []report.ReadFailure{
		{Index: 1, Kind: report.FailureTransient, Err: errRPC},
		{Index: 2, Kind: report.FailureNotFound, Err: report.ErrNotFound},
	}}

	require.Len(t, snap.Skipped(report.BoundedCount(0)), 2)
	require.Equal(t, snap.Failures[:1], snap.Skipped(report.Probing(0)))
	require.Empty(t, report.Snapshot{}.Skipped(report.Probing(0)))
}

func TestSynchronize_ProbingEmpty(t *testing.T) {
	s := report.NewSynchronizer(newChainState(), report.Prm{})

	snap, err := s.Synchronize(context.Background(), report.Probing(0))
	require.NoError(t, err)
	require.Empty(t, snap.Records)
	require.Len(t, snap.Failures, 1)
}

func TestSynchronize_Deterministic(t *testing.T) {
	st := newChainState(0, 1, 2, 3)
	st.reports[1] = report.Record{Reporter: "0xbb", Verified: true, Reward: big.NewInt(42)}
	s := report.NewSynchronizer(countedState{chainState: st}, report.Prm{})

	first, err := s.Synchronize(context.Background(), report.BoundedCount(0))
	require.NoError(t, err)

	// records are values: mutating the snapshot must not leak into the next one
	first.Records[1].Reward.SetInt64(0)

	second, err := s.Synchronize(context.Background(), report.BoundedCount(0))
	require.NoError(t, err)

	third, err := s.Synchronize(context.Background(), report.BoundedCount(0))
	require.NoError(t, err)

	require.Equal(t, second, third)
	require.EqualValues(t, 42, second.Records[1].Reward.Int64())
}

type cancellingPort struct {
	*chainState
	cancel context.CancelFunc
	at     uint64
}

func (x cancellingPort) GetReport(ctx context.Context, index uint64) (report.Record, error) {
	if index == x.at {
		x.cancel()
	}
	return x.chainState.GetReport(ctx, index)
}

func (x cancellingPort) ReportCount(context.Context) (uint64, error) {
	return x.count, nil
}

func TestSynchronize_Cancel(t *testing.T) {
	for _, p := range []report.Policy{report.BoundedCount(0), report.Probing(0)} {
		t.Run(p.Name(), func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			st := newChainState(0, 1, 2, 3, 4)
			s := report.NewSynchronizer(cancellingPort{chainState: st, cancel: cancel, at: 2}, report.Prm{})

			snap, err := s.Synchronize(ctx, p)
			require.ErrorIs(t, err, context.Canceled)
			require.Empty(t, snap.Records)
			require.Empty(t, snap.Failures)
			require.Equal(t, []uint64{0, 1, 2}, st.reads)
		})
	}
}

type recordingObserver struct {
	policies []report.Policy
	errs     []error
}

func (x *recordingObserver) ObserveSync(p report.Policy, _ report.Snapshot, err error, _ time.Duration) {
	x.policies = append(x.policies, p)
	x.errs = append(x.errs, err)
}

func TestSynchronize_Observer(t *testing.T) {
	var o recordingObserver
	s := report.NewSynchronizer(newChainState(0), report.Prm{Observer: &o})

	_, err := s.Synchronize(context.Background(), report.Probing(0))
	require.NoError(t, err)
	_, err = s.Synchronize(context.Background(), report.BoundedCount(0))
	require.Error(t, err)

	require.Equal(t, []report.Policy{report.Probing(0), report.BoundedCount(0)}, o.policies)
	require.NoError(t, o.errs[0])
	require.ErrorIs(t, o.errs[1], report.ErrCountUnavailable)
}

// Contract with reportCount = 3 where the last report can't be read.
func TestSynchronize_BoundedScenario(t *testing.T) {
	st := newChainState()
	st.count = 3
	st.reports[0] = report.Record{
		Reporter:     "0xAA00000000000000000000000000000000000000",
		Description:  "pothole",
		Location:     "Main St",
		EvidenceLink: "http://x/1.png",
		Reward:       big.NewInt(0),
	}
	r1 := st.reports[0]
	r1.Verified = true
	r1.Reward, _ = new(big.Int).SetString("500000000000000000", 10)
	st.reports[1] = r1
	st.broken[2] = errRPC

	s := report.NewSynchronizer(countedState{chainState: st}, report.Prm{})

	snap, err := s.Synchronize(context.Background(), report.BoundedCount(0))
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 1}, ids(snap.Records))
	require.False(t, snap.Records[0].Verified)
	require.Equal(t, "0", report.EtherUnits.Format(snap.Records[0].Reward))
	require.True(t, snap.Records[1].Verified)
	require.Equal(t, "0.5", report.EtherUnits.Format(snap.Records[1].Reward))
	require.Len(t, snap.Failures, 1)
	require.EqualValues(t, 2, snap.Failures[0].Index)
}

// Contract without report count where index 3 reverts.
func TestSynchronize_ProbingScenario(t *testing.T) {
	st := newChainState(1, 2)

	s := report.NewSynchronizer(st, report.Prm{})

	snap, err := s.Synchronize(context.Background(), report.Probing(1))
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, ids(snap.Records))
	require.ErrorIs(t, snap.Failures[0], report.ErrNotFound)
}
