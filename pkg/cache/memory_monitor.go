package cache

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// MemoryMonitor periodically samples process heap usage on a
// background goroutine and fires warning/critical callbacks when
// configured thresholds are crossed, the idiomatic-Go equivalent of
// original_source/src/storage/partial_loader.py's psutil-based RSS
// sampler -- runtime.ReadMemStats replaces psutil since nothing in
// this corpus imports a process-inspection library. The
// context.CancelFunc + sync.WaitGroup + time.Ticker background loop is
// grounded on pkg/decay/decay.go's Manager.Start/Stop.
type MemoryMonitor struct {
	mu sync.RWMutex

	warningBytes  uint64
	criticalBytes uint64
	interval      time.Duration

	onWarning  func(heapBytes uint64)
	onCritical func(heapBytes uint64)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	lastHeapBytes uint64
}

// NewMemoryMonitor creates a monitor that samples every interval,
// calling onWarning/onCritical (either may be nil) the first time
// each threshold is crossed per sampling tick.
func NewMemoryMonitor(interval time.Duration, warningBytes, criticalBytes uint64, onWarning, onCritical func(uint64)) *MemoryMonitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &MemoryMonitor{
		warningBytes:  warningBytes,
		criticalBytes: criticalBytes,
		interval:      interval,
		onWarning:     onWarning,
		onCritical:    onCritical,
	}
}

// Start begins background sampling. Safe to call once; a second call
// before Stop is a no-op.
func (m *MemoryMonitor) Start() {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.ctx, m.cancel = ctx, cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sample()
			}
		}
	}()
}

// Stop halts background sampling and waits for the goroutine to exit.
func (m *MemoryMonitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	m.wg.Wait()
}

func (m *MemoryMonitor) sample() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	heapBytes := stats.HeapAlloc

	m.mu.Lock()
	m.lastHeapBytes = heapBytes
	warning, critical := m.warningBytes, m.criticalBytes
	onWarning, onCritical := m.onWarning, m.onCritical
	m.mu.Unlock()

	if critical > 0 && heapBytes >= critical {
		if onCritical != nil {
			onCritical(heapBytes)
		}
	}
	if warning > 0 && heapBytes >= warning {
		if onWarning != nil {
			onWarning(heapBytes)
		}
	}
}

// HeapBytes returns the most recently sampled heap size, or the
// current one if sampling hasn't started yet.
func (m *MemoryMonitor) HeapBytes() uint64 {
	m.mu.RLock()
	last := m.lastHeapBytes
	m.mu.RUnlock()
	if last != 0 {
		return last
	}
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc
}
