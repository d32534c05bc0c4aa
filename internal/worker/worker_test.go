package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/canopy-network/dao-indexer/internal/publisher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndexer struct {
	heights []uint64
	err     error
}

func (f *fakeIndexer) IndexBlock(_ context.Context, height uint64) error {
	f.heights = append(f.heights, height)
	return f.err
}

func TestHandleBlock(t *testing.T) {
	idx := &fakeIndexer{}
	w := newWorker(Config{Indexer: idx})

	msg := message.NewMessage(watermill.NewUUID(), publisher.EncodeHeight(77))
	require.NoError(t, w.handleBlock(msg))
	assert.Equal(t, []uint64{77}, idx.heights)
}

func TestHandleBlockAcksInvalidPayload(t *testing.T) {
	idx := &fakeIndexer{}
	w := newWorker(Config{Indexer: idx})

	require.NoError(t, w.handleBlock(message.NewMessage(watermill.NewUUID(), []byte{1})))
	assert.Empty(t, idx.heights)
}

func TestHandleBlockNacksFailures(t *testing.T) {
	boom := errors.New("rpc down")
	w := newWorker(Config{Indexer: &fakeIndexer{err: boom}, RetryDelay: time.Millisecond})

	err := w.handleBlock(message.NewMessage(watermill.NewUUID(), publisher.EncodeHeight(5)))
	require.ErrorIs(t, err, boom)
}
