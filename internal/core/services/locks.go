package services

import (
	"hash/fnv"
	"sync"
)

const lockShardCount = 64

// lockShards serializes operations per key without a global lock.
// Keys hash onto a fixed set of mutexes, so unrelated rooms (or
// connections) only rarely contend.
type lockShards struct {
	shards [lockShardCount]sync.Mutex
}

func (l *lockShards) index(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % lockShardCount)
}

// lock locks the shard for key and returns its unlock func.
func (l *lockShards) lock(key string) func() {
	i := l.index(key)
	l.shards[i].Lock()
	return l.shards[i].Unlock
}

// lockPair locks the shards for two keys in index order, which keeps
// concurrent pair-wise acquisitions deadlock free.
func (l *lockShards) lockPair(a, b string) func() {
	ia, ib := l.index(a), l.index(b)
	if ia == ib {
		l.shards[ia].Lock()
		return l.shards[ia].Unlock
	}
	if ia > ib {
		ia, ib = ib, ia
	}
	l.shards[ia].Lock()
	l.shards[ib].Lock()
	return func() {
		l.shards[ib].Unlock()
		l.shards[ia].Unlock()
	}
}
