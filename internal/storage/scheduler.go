// internal/storage/scheduler.go
package storage

import (
	"sync"
	"time"
)

// DefaultSaveDelay 持久化写入的防抖延迟
const DefaultSaveDelay = 1000 * time.Millisecond

// Scheduler 副作用调度器：决定一次保存请求何时真正执行
type Scheduler interface {
	// Schedule 登记 fn，取代之前尚未执行的任务
	Schedule(fn func())
	// Flush 立即同步执行尚未执行的任务
	Flush()
	// Cancel 丢弃尚未执行的任务
	Cancel()
	// Stop 丢弃任务并拒绝之后的登记
	Stop()
}

// Debouncer 尾沿防抖：一段时间内的多次登记只在最后一次登记 delay 之后执行一次
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	fn      func()
	seq     uint64
	stopped bool
}

func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	return &Debouncer{delay: delay}
}

func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.fn = fn
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
}

// fire 只执行与自己序号一致的任务，被取代的计时器直接返回
func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	if seq != d.seq || d.fn == nil {
		d.mu.Unlock()
		return
	}
	fn := d.take()
	d.mu.Unlock()

	fn()
}

// take 取出待执行任务并复位，调用方需持有锁
func (d *Debouncer) take() func() {
	fn := d.fn
	d.fn = nil
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return fn
}

func (d *Debouncer) Flush() {
	d.mu.Lock()
	fn := d.take()
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (d *Debouncer) Cancel() {
	d.mu.Lock()
	d.take()
	d.mu.Unlock()
}

func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.take()
	d.stopped = true
	d.mu.Unlock()
}

// Pending 报告是否有尚未执行的任务
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fn != nil
}

// ImmediateScheduler 同步执行每一次登记，用于测试与内存存储
type ImmediateScheduler struct{}

func (ImmediateScheduler) Schedule(fn func()) { fn() }
func (ImmediateScheduler) Flush()             {}
func (ImmediateScheduler) Cancel()            {}
func (ImmediateScheduler) Stop()              {}
