package manager

import (
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestNextTracksClock(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	m := NewNonceManagerWithClock(func() time.Time { return now })
	addr := common.HexToAddress("0x01")

	assert.Equal(t, uint64(1700000000000), m.Next(addr))
	// Same millisecond: bump by one.
	assert.Equal(t, uint64(1700000000001), m.Next(addr))

	now = now.Add(time.Second)
	assert.Equal(t, uint64(1700000001000), m.Next(addr))
	assert.Equal(t, uint64(1700000001000), m.Last(addr))
}

func TestNextIsPerAddress(t *testing.T) {
	now := time.UnixMilli(5000)
	m := NewNonceManagerWithClock(func() time.Time { return now })

	a := common.HexToAddress("0x0a")
	b := common.HexToAddress("0x0b")
	assert.Equal(t, uint64(5000), m.Next(a))
	assert.Equal(t, uint64(5000), m.Next(b))
	assert.Equal(t, uint64(0), m.Last(common.HexToAddress("0x0c")))
}

func TestNextUniqueUnderConcurrency(t *testing.T) {
	m := NewNonceManagerWithClock(func() time.Time { return time.UnixMilli(42) })
	addr := common.HexToAddress("0x01")

	const workers, per = 8, 200
	var mu sync.Mutex
	seen := make(map[uint64]bool)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < per; j++ {
				n := m.Next(addr)
				mu.Lock()
				seen[n] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*per)
	assert.Equal(t, uint64(42+workers*per-1), m.Last(addr))
}
