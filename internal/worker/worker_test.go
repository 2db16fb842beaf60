package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"gomical/internal/job"
)

// fakeQueue serves a fixed list of pending IDs.
type fakeQueue struct {
	ids   []string
	err   error
	calls int
}

func (q *fakeQueue) NextPendingJob(context.Context) (string, bool, error) {
	q.calls++
	if q.err != nil {
		return "", false, q.err
	}
	if len(q.ids) == 0 {
		return "", false, nil
	}
	id := q.ids[0]
	q.ids = q.ids[1:]
	return id, true, nil
}

type fakeRunner struct {
	ran  []string
	errs map[string]error
}

func (r *fakeRunner) Run(_ context.Context, id string) error {
	r.ran = append(r.ran, id)
	if r.errs != nil {
		return r.errs[id]
	}
	return nil
}

func TestSweep_DrainsQueueInOrder(t *testing.T) {
	q := &fakeQueue{ids: []string{"a", "b", "c"}}
	r := &fakeRunner{}

	New(q, r, "* * * * *").Sweep(context.Background())

	assert.Equal(t, []string{"a", "b", "c"}, r.ran)
}

func TestSweep_ContinuesPastJobFailures(t *testing.T) {
	q := &fakeQueue{ids: []string{"bad", "raced", "good"}}
	r := &fakeRunner{errs: map[string]error{
		"bad":   errors.New("boom"),
		"raced": job.ErrNotPending,
	}}

	New(q, r, "* * * * *").Sweep(context.Background())

	assert.Equal(t, []string{"bad", "raced", "good"}, r.ran)
}

func TestSweep_StopsOnQueueError(t *testing.T) {
	q := &fakeQueue{err: errors.New("db gone")}
	r := &fakeRunner{}

	New(q, r, "* * * * *").Sweep(context.Background())

	assert.Empty(t, r.ran)
	assert.Equal(t, 1, q.calls)
}

func TestSweep_RespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	q := &fakeQueue{ids: []string{"a"}}
	r := &fakeRunner{}

	New(q, r, "* * * * *").Sweep(ctx)

	assert.Empty(t, r.ran)
}

func TestSweep_CapsIterations(t *testing.T) {
	// A queue that always returns the same ID simulates a job stuck in
	// pending; the sweep must not spin forever.
	ids := make([]string, maxPerSweep*3)
	for i := range ids {
		ids[i] = "stuck"
	}
	q := &fakeQueue{ids: ids}
	r := &fakeRunner{errs: map[string]error{"stuck": errors.New("cannot transition")}}

	New(q, r, "* * * * *").Sweep(context.Background())

	assert.Len(t, r.ran, maxPerSweep)
}
