package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithReadDeadlineAddsDefaultWhenCallerGaveNone(t *testing.T) {
	child, cancel, ownDeadline := withReadDeadline(context.Background())
	defer cancel()

	assert.True(t, ownDeadline)

	deadline, ok := child.Deadline()
	want := time.Now().Add(DefaultReadTimeout)
	assert.True(t, ok)
	assert.WithinDuration(t, want, deadline, time.Second)
}

func TestWithReadDeadlineLeavesCallerDeadlineAlone(t *testing.T) {
	parent, parentCancel := context.WithTimeout(context.Background(), time.Second)
	defer parentCancel()

	child, cancel, ownDeadline := withReadDeadline(parent)
	defer cancel()

	assert.False(t, ownDeadline)
	assert.Equal(t, parent, child)
}

func TestReadDoneErrReportsTimeoutOnlyForOwnDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	<-ctx.Done()

	var te *TimeoutError
	err := readDoneErr(ctx, true)
	assert.ErrorAs(t, err, &te)

	assert.Equal(t, context.DeadlineExceeded, readDoneErr(ctx, false))
}

func TestReadDoneErrPassesThroughCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, context.Canceled, readDoneErr(ctx, true))
}
