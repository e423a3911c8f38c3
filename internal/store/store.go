// internal/store/store.go
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/Corphon/StoryPlanner/internal/models"
	"github.com/Corphon/StoryPlanner/internal/utils"
)

// Backend 持久化后端：启动时读取一次，之后每次状态变更都登记一次保存
// storage.DurableStore 满足该接口
type Backend interface {
	Load() (*models.Snapshot, bool)
	Save(snap models.Snapshot)
}

// Listener 在每次状态变更后同步调用，参数为变更后完整快照的副本
type Listener func(snap models.Snapshot)

// Store 内存中的权威状态：实体集合、界面选择状态以及级联清理规则
//
// 每次变更都是一次完整的状态替换：在锁内基于当前快照计算新快照，
// 已提交的快照从不被原地修改。提交后先同步通知订阅者，再交给后端保存。
type Store struct {
	backend Backend
	logger  *utils.Logger
	metrics *utils.MetricsCollector
	now     func() time.Time

	mu        sync.RWMutex
	state     models.Snapshot
	listeners map[uint64]Listener
	nextID    uint64
}

// Option 配置 Store
type Option func(*Store)

func WithLogger(l *utils.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithMetrics(m *utils.MetricsCollector) Option {
	return func(s *Store) { s.metrics = m }
}

// WithClock 替换时间来源，测试中用于固定时间戳
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New 创建状态存储并从后端读取一次初始状态
// backend 为 nil 时只在内存中工作
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:   backend,
		logger:    utils.GetLogger(),
		now:       time.Now,
		listeners: make(map[uint64]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = s.hydrate()
	return s
}

// hydrate 将读取到的快照覆盖到空集合默认值之上
func (s *Store) hydrate() models.Snapshot {
	if s.backend == nil {
		return models.EmptySnapshot()
	}
	snap, ok := s.backend.Load()
	if !ok || snap == nil {
		s.logger.Info("未找到持久化数据，使用空状态", nil)
		return models.EmptySnapshot()
	}

	state := snap.WithDefaults()
	s.logger.Info("已从持久化数据恢复状态", map[string]interface{}{
		"projects":   len(state.Projects),
		"characters": len(state.Characters),
		"plot_nodes": len(state.PlotNodes),
	})
	return state
}

// Subscribe 注册变更监听器，返回的函数用于取消注册（可重复调用）
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = l
	n := len(s.listeners)
	s.mu.Unlock()
	s.metrics.SetGauge(utils.MetricSubscribers, int64(n))

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			n := len(s.listeners)
			s.mu.Unlock()
			s.metrics.SetGauge(utils.MetricSubscribers, int64(n))
		})
	}
}

// transition 基于当前快照计算下一个快照；返回错误时放弃本次变更
type transition func(cur models.Snapshot) (models.Snapshot, error)

// commit 应用一次状态转换：替换状态、交给后端保存、通知订阅者
// 保存在锁内登记，使后端看到的顺序与提交顺序一致；通知在锁外进行，监听器可以读取或修改状态
func (s *Store) commit(op string, fn transition) error {
	s.mu.Lock()
	next, err := fn(s.state)
	if err != nil {
		s.mu.Unlock()
		s.logger.Debug("状态变更被拒绝", map[string]interface{}{"op": op, "error": err})
		return err
	}
	s.state = next
	if s.backend != nil {
		s.backend.Save(next)
	}
	listeners := s.listenersLocked()
	s.mu.Unlock()

	s.metrics.IncrementCounter(utils.MetricMutations)
	notify(listeners, next)
	return nil
}

// notify 每个监听器拿到各自的集合副本，修改副本不会影响已提交的状态
func notify(listeners []Listener, next models.Snapshot) {
	for _, l := range listeners {
		l(cloneSnapshot(next))
	}
}

// mutate 是不会失败的 commit
func (s *Store) mutate(op string, fn func(cur models.Snapshot) models.Snapshot) {
	_ = s.commit(op, func(cur models.Snapshot) (models.Snapshot, error) {
		return fn(cur), nil
	})
}

// listenersLocked 按注册顺序返回监听器，调用方需持有锁
func (s *Store) listenersLocked() []Listener {
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Listener, len(ids))
	for i, id := range ids {
		out[i] = s.listeners[id]
	}
	return out
}

// Reload 重新从后端读取状态并通知订阅者，不触发保存
// 用于重置数据或替换导入之后（相当于页面重新加载）
func (s *Store) Reload() {
	s.mu.Lock()
	s.state = s.hydrate()
	next := s.state
	listeners := s.listenersLocked()
	s.mu.Unlock()

	notify(listeners, next)
}

// State 返回当前快照。集合切片是副本，其中的实体应视为只读
func (s *Store) State() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSnapshot(s.state)
}

func cloneSnapshot(snap models.Snapshot) models.Snapshot {
	snap.Projects = cloneSlice(snap.Projects)
	snap.Characters = cloneSlice(snap.Characters)
	snap.Locations = cloneSlice(snap.Locations)
	snap.Items = cloneSlice(snap.Items)
	snap.PlotNodes = cloneSlice(snap.PlotNodes)
	snap.Variables = cloneSlice(snap.Variables)
	snap.AiMessages = cloneSlice(snap.AiMessages)
	snap.ContinuityIssues = cloneSlice(snap.ContinuityIssues)
	snap.SuggestedVariables = cloneSlice(snap.SuggestedVariables)
	return snap
}

// read 在读锁下执行只读查询
func read[R any](s *Store, fn func(snap *models.Snapshot) R) R {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&s.state)
}
