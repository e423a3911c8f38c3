// internal/storage/durable_store.go
package storage

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"

	"github.com/Corphon/StoryPlanner/internal/models"
	"github.com/Corphon/StoryPlanner/internal/utils"
)

// DurableStore 把完整快照读写到键值存储中的单个槽位
// 所有存储错误都在这里记录并吞掉，持久化只是尽力而为
type DurableStore struct {
	kv        KeyValueStore
	key       string
	scheduler Scheduler
	logger    *utils.Logger
	metrics   *utils.MetricsCollector

	mu      sync.Mutex
	pending *models.Snapshot
	gen     uint64 // SaveNow/Clear 时递增，使在途的防抖写入失效

	writeMu sync.Mutex
}

// Option 配置 DurableStore
type Option func(*DurableStore)

func WithKey(key string) Option {
	return func(d *DurableStore) {
		if key != "" {
			d.key = key
		}
	}
}

func WithScheduler(s Scheduler) Option {
	return func(d *DurableStore) { d.scheduler = s }
}

func WithLogger(l *utils.Logger) Option {
	return func(d *DurableStore) { d.logger = l }
}

func WithMetrics(m *utils.MetricsCollector) Option {
	return func(d *DurableStore) { d.metrics = m }
}

// NewDurableStore 默认使用 DefaultKey 和 1000ms 尾沿防抖
func NewDurableStore(kv KeyValueStore, opts ...Option) *DurableStore {
	d := &DurableStore{
		kv:     kv,
		key:    DefaultKey,
		logger: utils.GetLogger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.scheduler == nil {
		d.scheduler = NewDebouncer(DefaultSaveDelay)
	}
	return d
}

// Key 返回槽位键名
func (d *DurableStore) Key() string { return d.key }

// Load 读取槽位。槽位不存在或内容损坏时返回 ok=false，从不返回错误
func (d *DurableStore) Load() (*models.Snapshot, bool) {
	raw, ok, err := d.kv.GetItem(d.key)
	if err != nil {
		d.metrics.IncrementCounter(utils.MetricLoadFailures)
		d.logger.Warn("读取持久化数据失败，使用空状态", map[string]interface{}{"key": d.key, "error": err})
		return nil, false
	}
	if !ok {
		return nil, false
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		d.metrics.IncrementCounter(utils.MetricLoadFailures)
		d.logger.Error("持久化数据不是JSON对象，忽略", map[string]interface{}{"key": d.key, "bytes": len(raw)})
		return nil, false
	}

	var snap models.Snapshot
	if err := json.Unmarshal(trimmed, &snap); err != nil {
		d.metrics.IncrementCounter(utils.MetricLoadFailures)
		d.logger.Error("解析持久化数据失败，忽略", map[string]interface{}{"key": d.key, "error": err})
		return nil, false
	}

	d.migrate(&snap)
	return &snap, true
}

// migrate 按版本号升级快照。无版本号的旧数据视为版本1
func (d *DurableStore) migrate(snap *models.Snapshot) {
	switch {
	case snap.Version == 0:
		snap.Version = models.SnapshotVersion
	case snap.Version > models.SnapshotVersion:
		d.logger.Warn("持久化数据版本高于当前版本，尽力加载", map[string]interface{}{
			"stored":  snap.Version,
			"current": models.SnapshotVersion,
		})
	}
}

// Save 登记一次防抖写入，写入内容为最后一次登记的快照
func (d *DurableStore) Save(snap models.Snapshot) {
	d.mu.Lock()
	d.pending = &snap
	d.mu.Unlock()

	d.scheduler.Schedule(d.flushPending)
}

func (d *DurableStore) flushPending() {
	d.mu.Lock()
	snap, gen := d.pending, d.gen
	d.pending = nil
	d.mu.Unlock()

	if snap == nil {
		return
	}

	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	d.mu.Lock()
	stale := gen != d.gen
	d.mu.Unlock()
	if stale {
		return
	}

	if err := d.write(*snap); err != nil {
		d.logger.Error("保存持久化数据失败", map[string]interface{}{"key": d.key, "error": err})
	}
}

// SaveNow 取消待执行的写入并立即写入快照
func (d *DurableStore) SaveNow(snap models.Snapshot) error {
	d.invalidatePending()

	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	return d.write(snap)
}

func (d *DurableStore) write(snap models.Snapshot) error {
	start := time.Now()
	snap.Version = models.SnapshotVersion

	data, err := json.Marshal(snap)
	if err != nil {
		d.metrics.IncrementCounter(utils.MetricPersistErrors)
		return err
	}
	if err := d.kv.SetItem(d.key, data); err != nil {
		d.metrics.IncrementCounter(utils.MetricPersistErrors)
		return err
	}

	d.metrics.IncrementCounter(utils.MetricPersistWrites)
	d.metrics.ObserveDuration(utils.MetricPersistLatency, time.Since(start))
	d.logger.Debug("持久化数据已写入", map[string]interface{}{"key": d.key, "bytes": len(data)})
	return nil
}

// Flush 立即执行待执行的写入
func (d *DurableStore) Flush() {
	d.scheduler.Flush()
	d.flushPending()
}

// Clear 立即删除槽位，待执行的写入一并丢弃
func (d *DurableStore) Clear() error {
	d.invalidatePending()

	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	if err := d.kv.RemoveItem(d.key); err != nil {
		d.logger.Error("清除持久化数据失败", map[string]interface{}{"key": d.key, "error": err})
		return err
	}
	d.logger.Info("持久化数据已清除", map[string]interface{}{"key": d.key})
	return nil
}

func (d *DurableStore) invalidatePending() {
	d.scheduler.Cancel()
	d.mu.Lock()
	d.pending = nil
	d.gen++
	d.mu.Unlock()
}

// HasPending 报告是否有尚未写入的快照
func (d *DurableStore) HasPending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Close 写入待执行的快照并停止调度器
func (d *DurableStore) Close() {
	d.Flush()
	d.scheduler.Stop()
}
