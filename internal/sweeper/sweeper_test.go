package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Clownyz/rentals-bot/internal/db"
	"github.com/Clownyz/rentals-bot/internal/metrics"
	"github.com/Clownyz/rentals-bot/internal/model"
	"github.com/Clownyz/rentals-bot/internal/notify"
	"github.com/Clownyz/rentals-bot/internal/rental"
)

type recorder struct {
	mu   sync.Mutex
	msgs []notify.Message
	fail map[string]bool
}

func (r *recorder) Notify(_ context.Context, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	if r.fail[msg.Target.UserID] {
		return errors.New("cannot send messages to this user")
	}
	return nil
}

func setup(t *testing.T, now time.Time) (*rental.Service, *time.Time) {
	t.Helper()
	clock := now
	svc := rental.NewService(db.NewTestDB(t), rental.WithClock(func() time.Time { return clock }))
	return svc, &clock
}

func TestSweepOnceExpiresAndNotifies(t *testing.T) {
	svc, clock := setup(t, time.Unix(0, 0))
	ctx := context.Background()

	svc.AddItem(ctx, "A1", "Set1", 1000, "coins")
	svc.AddItem(ctx, "A1", "Set2", 1000, "coins")
	_, err := svc.RentItem(ctx, "A1", "Set1", "U1", "1h")
	require.NoError(t, err)
	_, err = svc.RentItem(ctx, "A1", "Set2", "U2", "1d")
	require.NoError(t, err)

	rec := &recorder{}
	s := New(svc, rec, time.Minute)

	*clock = time.Unix(3600, 0)
	returned, err := s.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Empty(t, returned, "expiry equal to now is not yet expired")

	before := testutil.ToFloat64(metrics.ItemsExpired)
	*clock = time.Unix(3601, 0)
	returned, err = s.SweepOnce(ctx)
	require.NoError(t, err)
	require.Len(t, returned, 1)
	assert.Equal(t, "U1", returned[0].PreviousRenter)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ItemsExpired))

	require.Len(t, rec.msgs, 2)
	assert.Equal(t, notify.ToUser("U1"), rec.msgs[0].Target)
	assert.Equal(t, "Your rental **Set1** has expired and was returned.", rec.msgs[0].Text)
	assert.Equal(t, notify.ToLog(), rec.msgs[1].Target)
	assert.Equal(t, "EXPIRED: Set1 returned from <@U1>", rec.msgs[1].Text)
	assert.Equal(t, model.EventItemExpired, rec.msgs[1].Kind)

	item, err := svc.GetItem(ctx, "Set1")
	require.NoError(t, err)
	assert.False(t, item.Rented())
	item, err = svc.GetItem(ctx, "Set2")
	require.NoError(t, err)
	assert.Equal(t, "U2", item.RentedBy)
}

func TestSweepNotifyFailureDoesNotRollBack(t *testing.T) {
	svc, clock := setup(t, time.Unix(0, 0))
	ctx := context.Background()

	for _, name := range []string{"Set1", "Set2"} {
		svc.AddItem(ctx, "A1", name, 10, "coins")
	}
	svc.RentItem(ctx, "A1", "Set1", "U1", "1h")
	svc.RentItem(ctx, "A1", "Set2", "U2", "1h")

	rec := &recorder{fail: map[string]bool{"U1": true}}
	s := New(svc, rec, time.Minute)

	*clock = time.Unix(7200, 0)
	returned, err := s.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Len(t, returned, 2)

	items, err := svc.ListItems(ctx)
	require.NoError(t, err)
	for _, it := range items {
		assert.False(t, it.Rented(), it.Name)
	}
	// Both renters and the log channel were attempted once each.
	assert.Len(t, rec.msgs, 4)
}

type blockingExpirer struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingExpirer) Now() time.Time { return time.Unix(0, 0) }

func (b *blockingExpirer) ExpireDue(ctx context.Context, now time.Time) ([]rental.Returned, error) {
	close(b.entered)
	<-b.release
	return nil, nil
}

func TestSweepOnceNeverOverlaps(t *testing.T) {
	b := &blockingExpirer{entered: make(chan struct{}), release: make(chan struct{})}
	s := New(b, nil, time.Minute)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := s.SweepOnce(ctx)
		done <- err
	}()
	<-b.entered

	_, err := s.SweepOnce(ctx)
	assert.ErrorIs(t, err, ErrSweepInProgress)

	close(b.release)
	require.NoError(t, <-done)
}

type failingExpirer struct{}

func (failingExpirer) Now() time.Time { return time.Unix(0, 0) }

func (failingExpirer) ExpireDue(context.Context, time.Time) ([]rental.Returned, error) {
	return nil, errors.New("database is locked")
}

func TestSweepOnceReportsErrorAndReleases(t *testing.T) {
	s := New(failingExpirer{}, nil, time.Minute)

	_, err := s.SweepOnce(context.Background())
	assert.ErrorContains(t, err, "database is locked")

	// The guard is released after a failed sweep.
	_, err = s.SweepOnce(context.Background())
	assert.ErrorContains(t, err, "database is locked")
}

type countingExpirer struct {
	mu    sync.Mutex
	calls int
}

func (c *countingExpirer) Now() time.Time { return time.Now() }

func (c *countingExpirer) ExpireDue(context.Context, time.Time) ([]rental.Returned, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil, nil
}

func (c *countingExpirer) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestRunSweepsImmediatelyAndStops(t *testing.T) {
	c := &countingExpirer{}
	s := New(c, nil, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(stopped)
	}()

	require.Eventually(t, func() bool { return c.Calls() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
