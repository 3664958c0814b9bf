package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllow_BurstThenReject(t *testing.T) {
	krl := New(1, 3, time.Minute)
	defer krl.Stop()

	for i := 0; i < 3; i++ {
		assert.True(t, krl.Allow("1.2.3.4"), "request %d", i)
	}
	assert.False(t, krl.Allow("1.2.3.4"))
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	krl := New(1, 1, time.Minute)
	defer krl.Stop()

	assert.True(t, krl.Allow("a"))
	assert.False(t, krl.Allow("a"))
	assert.True(t, krl.Allow("b"))
}

func TestSweep_EvictsIdleKeys(t *testing.T) {
	krl := New(1, 1, time.Minute)
	defer krl.Stop()

	current := time.Now()
	krl.now = func() time.Time { return current }

	krl.Allow("old")
	current = current.Add(2 * time.Minute)
	krl.Allow("fresh")

	krl.Sweep()
	assert.Equal(t, 1, krl.Len())
	// evicted key starts with a full bucket again
	assert.True(t, krl.Allow("old"))
}

func TestAllow_Concurrent(t *testing.T) {
	krl := New(1000, 1000, time.Minute)
	defer krl.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			krl.Allow("shared")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, krl.Len())
}

func TestStop_Idempotent(t *testing.T) {
	krl := New(1, 1, time.Minute)
	krl.Stop()
	assert.NotPanics(t, krl.Stop)
}
