package replication

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFaultInjector_TripsAfterThreshold(t *testing.T) {
	f := NewFaultInjector(DefaultFaultThreshold)

	for cycle := 0; cycle < 3; cycle++ {
		for i := 1; i <= 4; i++ {
			assert.Equal(t, int64(i), f.RegisterSuccess())
			assert.False(t, f.ShouldForceFailureAndReset(), "cycle %d create %d", cycle, i)
		}
		assert.Equal(t, int64(5), f.RegisterSuccess())
		assert.True(t, f.ShouldForceFailureAndReset(), "cycle %d fifth create", cycle)
		assert.Equal(t, int64(0), f.Count(), "trip resets the counter")
	}
}

func TestFaultInjector_FalsePathDoesNotMutate(t *testing.T) {
	f := NewFaultInjector(4)
	f.RegisterSuccess()
	f.RegisterSuccess()

	for i := 0; i < 10; i++ {
		assert.False(t, f.ShouldForceFailureAndReset())
	}
	assert.Equal(t, int64(2), f.Count())
}

func TestFaultInjector_Disabled(t *testing.T) {
	f := NewFaultInjector(0)
	assert.Nil(t, f)

	for i := 0; i < 20; i++ {
		f.RegisterSuccess()
		assert.False(t, f.ShouldForceFailureAndReset())
	}
	assert.Equal(t, int64(0), f.Count())
	assert.Equal(t, int64(0), f.Threshold())
}

func TestFaultInjector_ConcurrentRegister(t *testing.T) {
	f := NewFaultInjector(1 << 40)
	const goroutines = 100
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				f.RegisterSuccess()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(goroutines*callsPerGoroutine), f.Count(), "no lost updates")
}

func TestFaultInjector_ConcurrentTripIsExclusive(t *testing.T) {
	f := NewFaultInjector(4)
	for i := 0; i < 5; i++ {
		f.RegisterSuccess()
	}

	var trips atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.ShouldForceFailureAndReset() {
				trips.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), trips.Load())
	assert.Equal(t, int64(0), f.Count())
}
