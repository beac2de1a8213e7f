package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryMonitorFiresWarningAndCritical(t *testing.T) {
	warnings := make(chan uint64, 4)
	criticals := make(chan uint64, 4)

	// Thresholds of 1 byte guarantee both fire on the very first sample.
	m := NewMemoryMonitor(5*time.Millisecond, 1, 1,
		func(b uint64) { warnings <- b },
		func(b uint64) { criticals <- b },
	)
	m.Start()
	defer m.Stop()

	select {
	case <-criticals:
	case <-time.After(time.Second):
		t.Fatal("expected critical callback to fire")
	}

	assert.Greater(t, m.HeapBytes(), uint64(0))
}

func TestMemoryMonitorStopIsIdempotentAndHalts(t *testing.T) {
	m := NewMemoryMonitor(5*time.Millisecond, 0, 0, nil, nil)
	m.Start()
	m.Stop()
	m.Stop() // must not panic or block
}

func TestMemoryMonitorHeapBytesWithoutStart(t *testing.T) {
	m := NewMemoryMonitor(time.Second, 0, 0, nil, nil)
	assert.Greater(t, m.HeapBytes(), uint64(0))
}
