// internal/store/crud.go
package store

import (
	apperrors "github.com/Corphon/StoryPlanner/internal/errors"
	"github.com/Corphon/StoryPlanner/internal/models"
)

var errDuplicateID = apperrors.NewConflictError("实体id已存在", nil)

// add 把实体追加到集合末尾，不检查 id 是否重复
func add[T entity](s *Store, l lens[T], v T) {
	s.mutate("add."+l.name, func(cur models.Snapshot) models.Snapshot {
		l.set(&cur, appendCopy(l.get(&cur), v))
		return cur
	})
}

// insert 仅当集合中没有相同 id 时追加实体，检查与追加在同一次状态转换中完成
func insert[T entity](s *Store, l lens[T], v T) bool {
	err := s.commit("insert."+l.name, func(cur models.Snapshot) (models.Snapshot, error) {
		xs := l.get(&cur)
		if indexOf(xs, v.EntityID()) >= 0 {
			return cur, errDuplicateID
		}
		l.set(&cur, appendCopy(xs, v))
		return cur, nil
	})
	return err == nil
}

// UpdateOption 调整单次部分更新的行为
type UpdateOption func(*updateOptions)

type updateOptions struct {
	validate bool
}

// Validated 要求合并后的实体通过自身的 Validate()，否则放弃本次更新
func Validated() UpdateOption {
	return func(o *updateOptions) { o.validate = true }
}

type validator interface {
	Validate() error
}

// update 以补丁浅合并的方式替换匹配的实体，fix 可在合并后修正实体
// id 不存在时不修改任何集合，但仍然通知并保存
func update[T entity](s *Store, l lens[T], id string, p Patch, fix func(T) T, opts []UpdateOption) error {
	var o updateOptions
	for _, opt := range opts {
		opt(&o)
	}

	return s.commit("update."+l.name, func(cur models.Snapshot) (models.Snapshot, error) {
		xs := l.get(&cur)
		i := indexOf(xs, id)
		if i < 0 {
			return cur, nil
		}
		next, err := applyPatch(xs[i], p)
		if err != nil {
			return cur, err
		}
		if fix != nil {
			next = fix(next)
		}
		if v, ok := any(next).(validator); ok && o.validate {
			if err := v.Validate(); err != nil {
				return cur, err
			}
		}
		l.set(&cur, replaceAt(xs, i, next))
		return cur, nil
	})
}

// replace 用 fn 的结果替换匹配的实体，返回替换后的实体
func replace[T entity](s *Store, l lens[T], id string, fn func(T) T) (T, bool) {
	var (
		out   T
		found bool
	)
	s.mutate("replace."+l.name, func(cur models.Snapshot) models.Snapshot {
		xs := l.get(&cur)
		i := indexOf(xs, id)
		if i < 0 {
			return cur
		}
		out, found = fn(xs[i]), true
		l.set(&cur, replaceAt(xs, i, out))
		return cur
	})
	return out, found
}

// remove 删除匹配的实体，并在同一次状态转换中执行 cascade
func remove[T entity](s *Store, l lens[T], id string, cascade func(snap *models.Snapshot, removed []T) cascadeStats) {
	s.mutate("delete."+l.name, func(cur models.Snapshot) models.Snapshot {
		kept, removed := removeWhere(l.get(&cur), func(x T) bool { return x.EntityID() == id })
		if len(removed) == 0 {
			return cur
		}
		l.set(&cur, kept)
		if cascade == nil {
			return cur
		}
		stats := cascade(&cur, removed)
		if stats.PlotNodes > 0 || stats.Relationships > 0 || len(stats.Removed) > 0 {
			s.logger.Debug("级联清理完成", map[string]interface{}{
				"collection":    l.name,
				"id":            id,
				"plot_nodes":    stats.PlotNodes,
				"relationships": stats.Relationships,
				"removed":       stats.Removed,
			})
		}
		return cur
	})
}
