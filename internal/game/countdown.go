package game

import (
	"sync"
	"time"
)

// TickerCreator 创建周期性 ticker，返回 tick 通道和停止函数。测试中可以注入手动驱动的实现。
type TickerCreator interface {
	Create(d time.Duration) (<-chan time.Time, func())
}

type realTicker struct{}

// NewTickerCreator 返回基于 time.Ticker 的实现
func NewTickerCreator() TickerCreator { return realTicker{} }

func (realTicker) Create(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// countdown 每个回合一个，在独立 goroutine 中驱动 onTick，onTick 返回 false 时结束。
type countdown struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func startCountdown(creator TickerCreator, interval time.Duration, onTick func() bool) *countdown {
	c := &countdown{stop: make(chan struct{}), done: make(chan struct{})}
	ticks, stopTicker := creator.Create(interval)
	go func() {
		defer close(c.done)
		defer stopTicker()
		for {
			select {
			case <-c.stop:
				return
			case _, ok := <-ticks:
				if !ok || !onTick() {
					return
				}
			}
		}
	}()
	return c
}

// Cancel 可重复调用，也可以在 onTick 内部调用
func (c *countdown) Cancel() {
	if c == nil {
		return
	}
	c.once.Do(func() { close(c.stop) })
}
