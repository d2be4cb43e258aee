package spin

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBit_PayloadRoundtrip(t *testing.T) {
	b := NewBit[uintptr](0, 0x00420000)
	assert.Equal(t, uintptr(0x00420000), b.Masked())
	assert.False(t, b.Locked())

	b.Lock()
	assert.True(t, b.Locked())
	assert.Equal(t, uintptr(0x00420000), b.Masked(), "payload must survive lock")
	b.SetMasked(0x00430000)
	assert.Equal(t, uintptr(0x00430000), b.Masked())
	assert.True(t, b.Locked(), "SetMasked must not disturb the lock bit")
	b.Unlock()

	assert.False(t, b.Locked())
	assert.Equal(t, uintptr(0x00430000), b.Masked())
}

func TestBit_NonZeroBitIndex(t *testing.T) {
	b := NewBit[uint32](3, 0xF0)
	assert.Equal(t, uint32(0xF0), b.Masked())
	require.True(t, b.TryLock())
	assert.False(t, b.TryLock())
	assert.Equal(t, uint32(0xF0), b.Masked())
	b.Unlock()
}

func TestBit_ConcurrentExclusion(t *testing.T) {
	b := NewBit[uintptr](0, 0)
	var counter uintptr
	const goroutines, perGoroutine = 16, 500

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				b.Lock()
				// Bit 0 is the lock bit, which SetMasked never stores, so
				// the payload counts in steps of 2.
				counter = b.Masked() + 2
				b.SetMasked(counter)
				b.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uintptr(2*goroutines*perGoroutine), b.Masked())
}
