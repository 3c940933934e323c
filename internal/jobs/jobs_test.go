package jobs

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	calls atomic.Int32
	n     int64
	err   error
}

func (f *fakePruner) PruneExpired() (int64, error) {
	f.calls.Add(1)
	return f.n, f.err
}

func TestStart_PrunesImmediately(t *testing.T) {
	p := &fakePruner{n: 2}
	c, err := Start(p, PruneSchedule)
	require.NoError(t, err)
	defer c.Stop()

	assert.EqualValues(t, 1, p.calls.Load())
	assert.Len(t, c.Entries(), 1)
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	_, err := Start(&fakePruner{}, "every now and then")
	assert.Error(t, err)
}

func TestPruneTokens_SurvivesErrors(t *testing.T) {
	p := &fakePruner{err: errors.New("database is locked")}
	assert.NotPanics(t, func() { PruneTokens(p) })
	assert.EqualValues(t, 1, p.calls.Load())
}
