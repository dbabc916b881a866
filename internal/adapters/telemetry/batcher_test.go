package telemetry_test

import (
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/telemetry"
)

type flushes struct {
	mu      sync.Mutex
	batches []string
}

func (f *flushes) record(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, string(data))
}

func (f *flushes) get() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.batches...)
}

func TestBatchProcessor_FlushesAfterTimeLimit(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var got flushes
		bp := telemetry.NewBatchProcessor(1024, 50*time.Millisecond, got.record)

		_, err := bp.Write([]byte("a"))
		require.NoError(t, err)
		time.Sleep(20 * time.Millisecond)
		_, err = bp.Write([]byte("b"))
		require.NoError(t, err)

		synctest.Wait()
		assert.Empty(t, got.get())

		time.Sleep(30 * time.Millisecond)
		synctest.Wait()
		assert.Equal(t, []string{"ab"}, got.get(), "the window starts at the first unflushed write")

		require.NoError(t, bp.Close())
	})
}

func TestBatchProcessor_FlushesAtSizeLimit(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var got flushes
		bp := telemetry.NewBatchProcessor(4, time.Second, got.record)

		_, _ = bp.Write([]byte("ab"))
		_, _ = bp.Write([]byte("cd"))
		_, _ = bp.Write([]byte("e"))

		assert.Equal(t, []string{"abcd"}, got.get())

		require.NoError(t, bp.Close())
		assert.Equal(t, []string{"abcd", "e"}, got.get())
	})
}

func TestBatchProcessor_Close(t *testing.T) {
	var got flushes
	bp := telemetry.NewBatchProcessor(0, 0, got.record)

	n, err := bp.Write([]byte("tail"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	require.NoError(t, bp.Close())
	require.NoError(t, bp.Close())
	assert.Equal(t, []string{"tail"}, got.get())

	_, err = bp.Write([]byte("late"))
	require.Error(t, err)

	bp.Flush()
	assert.Equal(t, []string{"tail"}, got.get())
}
