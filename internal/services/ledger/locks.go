package ledger

import "sync"

// keyedMutex hands out one mutex per key. Entries are never evicted; keys are
// property and billing period ids, which are bounded.
type keyedMutex struct {
	locks sync.Map
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	v, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	m := v.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
