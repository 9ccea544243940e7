package background

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/user/symbolic-cat-go/logging"
)

type countingPruner struct {
	calls atomic.Int32
	err   error
}

func (p *countingPruner) PruneExpired(ctx context.Context) (int, error) {
	p.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("no deadline")
	}
	return 1, p.err
}

func TestSessionJanitor_RunsOnTicker(t *testing.T) {
	p := &countingPruner{}
	j := NewSessionJanitor(p, 5*time.Millisecond, time.Second, logging.Discard())
	j.Start()

	assert.Eventually(t, func() bool { return p.calls.Load() >= 3 }, 2*time.Second, time.Millisecond)
	j.Stop()

	after := p.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, p.calls.Load())
	j.Stop()
}

func TestSessionJanitor_Disabled(t *testing.T) {
	p := &countingPruner{}
	j := NewSessionJanitor(p, 0, 0, logging.Discard())
	j.Start()
	time.Sleep(10 * time.Millisecond)
	j.Stop()
	assert.Zero(t, p.calls.Load())
}

func TestSessionJanitor_RunOnceSurvivesErrors(t *testing.T) {
	p := &countingPruner{err: errors.New("store down")}
	j := NewSessionJanitor(p, time.Hour, 0, logging.Discard())
	j.RunOnce()
	j.RunOnce()
	assert.Equal(t, int32(2), p.calls.Load())
}
