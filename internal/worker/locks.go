package worker

import "sync"

// dealLocks 按交易串行化版本生成，保证版本号连续且无重复。
// 锁惰性创建，不回收，交易数量级下内存可忽略
type dealLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newDealLocks() *dealLocks {
	return &dealLocks{locks: make(map[int64]*sync.Mutex)}
}

func (d *dealLocks) Lock(dealID int64) {
	d.mu.Lock()
	lock, ok := d.locks[dealID]
	if !ok {
		lock = &sync.Mutex{}
		d.locks[dealID] = lock
	}
	d.mu.Unlock()

	lock.Lock()
}

func (d *dealLocks) Unlock(dealID int64) {
	d.mu.Lock()
	lock := d.locks[dealID]
	d.mu.Unlock()

	if lock != nil {
		lock.Unlock()
	}
}
