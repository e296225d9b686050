package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// NonceManager hands out exchange nonces. A nonce is the signing time in
// milliseconds; the exchange rejects nonces far from wall-clock time and
// nonces it has already seen for the same signer, so each address gets a
// strictly increasing sequence that tracks the clock.
type NonceManager struct {
	now func() time.Time

	mu   sync.RWMutex
	last map[common.Address]*atomic.Uint64
}

func NewNonceManager() *NonceManager {
	return NewNonceManagerWithClock(time.Now)
}

func NewNonceManagerWithClock(now func() time.Time) *NonceManager {
	return &NonceManager{
		now:  now,
		last: make(map[common.Address]*atomic.Uint64),
	}
}

// Next returns the next nonce for addr.
func (m *NonceManager) Next(addr common.Address) uint64 {
	prev := m.slot(addr)
	for {
		last := prev.Load()
		curr := uint64(m.now().UnixMilli())
		if curr <= last {
			curr = last + 1
		}
		if prev.CompareAndSwap(last, curr) {
			return curr
		}
	}
}

// Last returns the most recent nonce issued for addr, or 0.
func (m *NonceManager) Last(addr common.Address) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.last[addr]; ok {
		return v.Load()
	}
	return 0
}

func (m *NonceManager) slot(addr common.Address) *atomic.Uint64 {
	m.mu.RLock()
	v, ok := m.last[addr]
	m.mu.RUnlock()
	if ok {
		return v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.last[addr]; ok {
		return v
	}
	v = new(atomic.Uint64)
	m.last[addr] = v
	return v
}
