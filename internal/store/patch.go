// internal/store/patch.go
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	apperrors "github.com/Corphon/StoryPlanner/internal/errors"
)

// Patch 显式区分两种部分更新：
// Set 以新值整体替换顶层字段（数组也被整体替换），值为 nil 时清除该字段；
// Append 把元素追加到数组字段末尾。
// 字段名使用 JSON 名称（camelCase）。id 字段不能被修改。
type Patch struct {
	Set    map[string]any   `json:"set,omitempty"`
	Append map[string][]any `json:"append,omitempty"`
}

// Set 创建只替换一个字段的补丁
func Set(field string, value any) Patch {
	return Patch{}.With(field, value)
}

// With 返回增加了一个替换字段的新补丁
func (p Patch) With(field string, value any) Patch {
	out := p.clone()
	if out.Set == nil {
		out.Set = make(map[string]any)
	}
	out.Set[field] = value
	return out
}

// AppendTo 返回增加了追加元素的新补丁
func (p Patch) AppendTo(field string, values ...any) Patch {
	out := p.clone()
	if out.Append == nil {
		out.Append = make(map[string][]any)
	}
	out.Append[field] = append(out.Append[field], values...)
	return out
}

// IsEmpty 补丁不修改任何字段
func (p Patch) IsEmpty() bool {
	return len(p.Set) == 0 && len(p.Append) == 0
}

func (p Patch) clone() Patch {
	var out Patch
	if p.Set != nil {
		out.Set = make(map[string]any, len(p.Set))
		for k, v := range p.Set {
			out.Set[k] = v
		}
	}
	if p.Append != nil {
		out.Append = make(map[string][]any, len(p.Append))
		for k, v := range p.Append {
			out.Append[k] = append([]any(nil), v...)
		}
	}
	return out
}

// applyPatch 在 cur 的副本上逐字段应用补丁，未出现在补丁中的字段保持原值不变
// 补丁值的类型可直接赋给字段时原样写入，否则经JSON解码为字段类型
// 未知字段、类型不匹配、向非数组字段追加都会返回校验错误
func applyPatch[T entity](cur T, p Patch) (T, error) {
	var zero T

	next := cur
	rv := reflect.ValueOf(&next).Elem()
	if rv.Kind() != reflect.Struct {
		return zero, apperrors.NewProcessingError("实体不是结构体", nil)
	}
	fields := jsonFields(rv.Type())

	for _, name := range sortedKeys(p.Set) {
		value := p.Set[name]
		if name == "id" {
			if id, ok := value.(string); ok && id == cur.EntityID() {
				continue
			}
			return zero, apperrors.NewValidationError("不能修改实体id", nil)
		}
		idx, ok := fields[name]
		if !ok {
			return zero, apperrors.NewValidationError(fmt.Sprintf("未知字段 %s", name), nil)
		}
		field := rv.Field(idx)
		if value == nil {
			field.Set(reflect.Zero(field.Type()))
			continue
		}
		v, err := convertValue(value, field.Type())
		if err != nil {
			return zero, apperrors.NewValidationError(fmt.Sprintf("字段 %s 的值类型不匹配", name), err)
		}
		field.Set(v)
	}

	for _, name := range sortedKeys(p.Append) {
		if name == "id" {
			return zero, apperrors.NewValidationError("不能修改实体id", nil)
		}
		idx, ok := fields[name]
		if !ok {
			return zero, apperrors.NewValidationError(fmt.Sprintf("未知字段 %s", name), nil)
		}
		field := rv.Field(idx)
		if field.Kind() != reflect.Slice {
			return zero, apperrors.NewValidationError(fmt.Sprintf("字段 %s 不是数组，无法追加", name), nil)
		}

		elems := p.Append[name]
		out := reflect.MakeSlice(field.Type(), 0, field.Len()+len(elems))
		out = reflect.AppendSlice(out, field)
		for _, e := range elems {
			v, err := convertValue(e, field.Type().Elem())
			if err != nil {
				return zero, apperrors.NewValidationError(fmt.Sprintf("字段 %s 的追加值类型不匹配", name), err)
			}
			out = reflect.Append(out, v)
		}
		field.Set(out)
	}
	return next, nil
}

// convertValue 把补丁值转换为 t 类型；切片会被复制，避免与调用方共享底层数组
func convertValue(value any, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(t), nil
	}
	src := reflect.ValueOf(value)
	if src.Type().AssignableTo(t) {
		if src.Kind() == reflect.Slice && !src.IsNil() {
			dup := reflect.MakeSlice(src.Type(), src.Len(), src.Len())
			reflect.Copy(dup, src)
			src = dup
		}
		out := reflect.New(t).Elem()
		out.Set(src)
		return out, nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return reflect.Value{}, err
	}
	ptr := reflect.New(t)
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(ptr.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return ptr.Elem(), nil
}

var fieldCache sync.Map // reflect.Type -> map[string]int

// jsonFields 返回 JSON 字段名到结构体字段下标的映射
func jsonFields(t reflect.Type) map[string]int {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.(map[string]int)
	}
	out := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		out[name] = i
	}
	fieldCache.Store(t, out)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
