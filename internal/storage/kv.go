// internal/storage/kv.go
package storage

import (
	"fmt"
	"regexp"
)

// DefaultKey 持久化槽位的固定键名
const DefaultKey = "story-planner-data"

// KeyValueStore 本地持久化键值存储（对应浏览器的 localStorage）
// GetItem 在键不存在时返回 ok=false 且 err=nil
type KeyValueStore interface {
	GetItem(key string) (value []byte, ok bool, err error)
	SetItem(key string, value []byte) error
	RemoveItem(key string) error
}

var validKey = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// checkKey 拒绝可能逃逸存储目录的键名
func checkKey(key string) error {
	if !validKey.MatchString(key) || key == "." || key == ".." {
		return fmt.Errorf("无效的存储键: %q", key)
	}
	return nil
}
