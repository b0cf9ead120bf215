package hwtrigger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/northfork-instruments/logicap/internal/hwtrigger"
)

func TestNoopWatcherFiresImmediately(t *testing.T) {
	w := hwtrigger.NoopWatcher{}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.NoError(t, w.Arm(ctx))
}

func TestNoopWatcherRespectsCanceledContext(t *testing.T) {
	w := hwtrigger.NoopWatcher{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, w.Arm(ctx))
}

func TestNoopWatcherCloseIsNil(t *testing.T) {
	w := hwtrigger.NoopWatcher{}
	assert.NoError(t, w.Close())
}
