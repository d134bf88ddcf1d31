package utils

import (
	"math/rand"
	"sync"
)

// RandSource 是游戏逻辑用到的随机数能力，测试里可以替换成确定序列。
type RandSource interface {
	// Intn 返回 [0, n)。
	Intn(n int) int
	// Float64 返回 [0, 1)。
	Float64() float64
}

// LockedRand 给 *rand.Rand 加锁，供多个 actor 共用。
type LockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewLockedRand(seed int64) *LockedRand {
	return &LockedRand{r: rand.New(rand.NewSource(seed))}
}

func (l *LockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (l *LockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

// IntRange 返回 [lo, hi] 闭区间内的整数。
func IntRange(r RandSource, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}
