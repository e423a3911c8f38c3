// internal/api/entity_handlers.go
package api

import (
	"net/http"
	"time"

	"github.com/Corphon/StoryPlanner/internal/models"
	"github.com/Corphon/StoryPlanner/internal/store"
	"github.com/gin-gonic/gin"
)

// entity 可通过通用CRUD路由管理的实体
type entity interface {
	EntityID() string
	Validate() error
}

// resource 把一种实体的存储操作绑定到一组REST路由上
type resource[T entity] struct {
	name    string
	list    func(projectID string) []T
	get     func(id string) (T, bool)
	insert  func(v T) bool
	update  func(id string, p store.Patch, opts ...store.UpdateOption) error
	remove  func(id string)
	owner   func(v T) string          // 所属项目，为 nil 时不检查
	prepare func(v T, now time.Time) T // 补全ID、默认值与时间戳
	touch   bool                       // PATCH 时自动写入 updatedAt

	// beforeDelete 返回 false 时中止删除，响应由钩子负责写出
	beforeDelete func(c *gin.Context, v T) bool
}

func registerResource[T entity](g *gin.RouterGroup, path string, h *Handler, r resource[T]) {
	group := g.Group(path)
	group.GET("", listEntities(h, r))
	group.POST("", createEntity(h, r))
	group.GET("/:id", getEntity(h, r))
	group.PATCH("/:id", patchEntity(h, r))
	group.DELETE("/:id", deleteEntity(h, r))
}

func listEntities[T entity](h *Handler, r resource[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.Response.Success(c, r.list(c.Query("projectId")))
	}
}

func getEntity[T entity](h *Handler, r resource[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := r.get(c.Param("id"))
		if !ok {
			h.Response.NotFound(c, r.name, c.Param("id"))
			return
		}
		h.Response.Success(c, v)
	}
}

func createEntity[T entity](h *Handler, r resource[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		var v T
		if err := c.ShouldBindJSON(&v); err != nil {
			h.Response.BadRequest(c, "请求体格式错误", err.Error())
			return
		}

		v = r.prepare(v, h.now())
		if err := v.Validate(); err != nil {
			h.Response.FromError(c, err)
			return
		}
		if _, exists := r.get(v.EntityID()); exists {
			h.Response.Conflict(c, ErrorEntityExists, r.name+"已存在", v.EntityID())
			return
		}
		if r.owner != nil {
			if _, ok := h.Store.Project(r.owner(v)); !ok {
				h.Response.NotFound(c, "项目", r.owner(v))
				return
			}
		}

		if !r.insert(v) {
			h.Response.Conflict(c, ErrorEntityExists, r.name+"已存在", v.EntityID())
			return
		}
		created, _ := r.get(v.EntityID())
		h.Response.Created(c, created)
	}
}

func patchEntity[T entity](h *Handler, r resource[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, ok := r.get(id); !ok {
			h.Response.NotFound(c, r.name, id)
			return
		}

		var patch store.Patch
		if err := c.ShouldBindJSON(&patch); err != nil {
			h.Response.BadRequest(c, "补丁格式错误", err.Error())
			return
		}
		if r.touch {
			if _, given := patch.Set["updatedAt"]; !given {
				patch = patch.With("updatedAt", h.now())
			}
		}

		// 合并后的实体同样需要通过校验，否则不写入
		if err := r.update(id, patch, store.Validated()); err != nil {
			h.Response.Error(c, http.StatusBadRequest, ErrorPatchInvalid, "更新失败", err.Error())
			return
		}

		updated, _ := r.get(id)
		h.Response.Success(c, updated)
	}
}

func deleteEntity[T entity](h *Handler, r resource[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		v, ok := r.get(id)
		if !ok {
			h.Response.NotFound(c, r.name, id)
			return
		}
		if r.beforeDelete != nil && !r.beforeDelete(c, v) {
			return
		}

		r.remove(id)
		h.Response.Success(c, gin.H{"id": id}, r.name+"已删除")
	}
}

func newIDIfEmpty(id string) string {
	if id == "" {
		return models.NewID()
	}
	return id
}

func createdAt(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}

func orEmpty(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}

func (h *Handler) projectResource() resource[models.Project] {
	return resource[models.Project]{
		name:   "项目",
		list:   func(string) []models.Project { return h.Store.Projects() },
		get:    h.Store.Project,
		insert: h.Store.InsertProject,
		update: h.Store.UpdateProject,
		remove: h.Store.DeleteProject,
		prepare: func(p models.Project, now time.Time) models.Project {
			p.ID = newIDIfEmpty(p.ID)
			if p.Status == "" {
				p.Status = models.ProjectPlanning
			}
			p.Genre, p.Themes = orEmpty(p.Genre), orEmpty(p.Themes)
			p.CreatedAt, p.UpdatedAt = createdAt(p.CreatedAt, now), now
			return p
		},
		touch: true,
	}
}

func (h *Handler) characterResource() resource[models.Character] {
	return resource[models.Character]{
		name:   "角色",
		list:   h.Store.CharactersByProject,
		get:    h.Store.Character,
		insert: h.Store.InsertCharacter,
		update: h.Store.UpdateCharacter,
		remove: h.Store.DeleteCharacter,
		owner:  func(c models.Character) string { return c.ProjectID },
		prepare: func(ch models.Character, now time.Time) models.Character {
			ch.ID = newIDIfEmpty(ch.ID)
			if ch.Role == "" {
				ch.Role = models.RoleSupporting
			}
			ch.Traits = orEmpty(ch.Traits)
			if ch.Relationships == nil {
				ch.Relationships = []models.CharacterRelationship{}
			}
			ch.CreatedAt, ch.UpdatedAt = createdAt(ch.CreatedAt, now), now
			return ch
		},
		touch: true,
	}
}

func (h *Handler) locationResource() resource[models.Location] {
	return resource[models.Location]{
		name:   "地点",
		list:   h.Store.LocationsByProject,
		get:    h.Store.Location,
		insert: h.Store.InsertLocation,
		update: h.Store.UpdateLocation,
		remove: h.Store.DeleteLocation,
		owner:  func(l models.Location) string { return l.ProjectID },
		prepare: func(l models.Location, now time.Time) models.Location {
			l.ID = newIDIfEmpty(l.ID)
			l.ImportantEvents = orEmpty(l.ImportantEvents)
			l.CreatedAt, l.UpdatedAt = createdAt(l.CreatedAt, now), now
			return l
		},
		touch: true,
	}
}

func (h *Handler) itemResource() resource[models.StoryItem] {
	return resource[models.StoryItem]{
		name:   "物品",
		list:   h.Store.ItemsByProject,
		get:    h.Store.Item,
		insert: h.Store.InsertItem,
		update: h.Store.UpdateItem,
		remove: h.Store.DeleteItem,
		owner:  func(i models.StoryItem) string { return i.ProjectID },
		prepare: func(i models.StoryItem, now time.Time) models.StoryItem {
			i.ID = newIDIfEmpty(i.ID)
			if i.Importance == "" {
				i.Importance = models.ImportanceMinor
			}
			i.CreatedAt, i.UpdatedAt = createdAt(i.CreatedAt, now), now
			return i
		},
		touch: true,
	}
}

func (h *Handler) plotNodeResource() resource[models.PlotNode] {
	return resource[models.PlotNode]{
		name:   "情节节点",
		list:   h.Store.PlotNodesByProject,
		get:    h.Store.PlotNode,
		insert: h.Store.InsertPlotNode,
		update: h.Store.UpdatePlotNode,
		remove: h.Store.DeletePlotNode,
		owner:  func(n models.PlotNode) string { return n.ProjectID },
		prepare: func(n models.PlotNode, now time.Time) models.PlotNode {
			n.ID = newIDIfEmpty(n.ID)
			if n.WordCount == 0 && n.ManuscriptContent != "" {
				n.WordCount = models.CountWords(n.ManuscriptContent)
			}
			n.CreatedAt, n.UpdatedAt = createdAt(n.CreatedAt, now), now
			return n
		},
		touch: true,
	}
}

func (h *Handler) variableResource() resource[models.StoryVariable] {
	return resource[models.StoryVariable]{
		name:   "变量",
		list:   h.Store.VariablesByProject,
		get:    h.Store.Variable,
		insert: h.Store.InsertVariable,
		update: h.Store.UpdateVariable,
		remove: h.Store.DeleteVariable,
		owner:  func(v models.StoryVariable) string { return v.ProjectID },
		prepare: func(v models.StoryVariable, now time.Time) models.StoryVariable {
			v.ID = newIDIfEmpty(v.ID)
			if v.Status == "" {
				v.Status = models.VariableTentative
			}
			v.CreatedAt, v.UpdatedAt = createdAt(v.CreatedAt, now), now
			return v
		},
		touch: true,
		beforeDelete: func(c *gin.Context, v models.StoryVariable) bool {
			if v.IsLocked() && c.Query("force") != "true" {
				h.Response.Conflict(c, ErrorVariableLocked, "变量已锁定", "使用 force=true 强制删除")
				return false
			}
			return true
		},
	}
}

// 连贯性问题没有 updatedAt 字段，也不会被PATCH自动修改时间戳
func (h *Handler) issueResource() resource[models.ContinuityIssue] {
	return resource[models.ContinuityIssue]{
		name: "连贯性问题",
		list: func(projectID string) []models.ContinuityIssue {
			return h.Store.IssuesByProject(projectID, true)
		},
		get:    h.Store.ContinuityIssue,
		insert: h.Store.InsertContinuityIssue,
		update: h.Store.UpdateContinuityIssue,
		remove: h.Store.DeleteContinuityIssue,
		owner:  func(i models.ContinuityIssue) string { return i.ProjectID },
		prepare: func(i models.ContinuityIssue, now time.Time) models.ContinuityIssue {
			i.ID = newIDIfEmpty(i.ID)
			if i.Type == "" {
				i.Type = "logic"
			}
			i.RelatedEntityIDs = orEmpty(i.RelatedEntityIDs)
			i.CreatedAt = createdAt(i.CreatedAt, now)
			return i
		},
	}
}
