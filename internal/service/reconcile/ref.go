package reconcile

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// EntityRef 客户端提交的实体标识，两种形态之一：
//   - 已持久化：数据库主键
//   - 占位符：客户端为尚未入库的新实体生成的临时 token（如 "new_3"）
//
// 占位符只在一次保存请求内有效，绝不落库。
type EntityRef struct {
	id    uint
	token string
}

func PersistedRef(id uint) EntityRef {
	return EntityRef{id: id}
}

func PendingRef(token string) EntityRef {
	return EntityRef{token: token}
}

// IsZero 没有任何标识（全新记录且客户端未提供 token）
func (r EntityRef) IsZero() bool {
	return r.id == 0 && r.token == ""
}

func (r EntityRef) IsPersisted() bool {
	return r.id != 0
}

func (r EntityRef) IsPending() bool {
	return r.token != ""
}

func (r EntityRef) ID() uint {
	return r.id
}

func (r EntityRef) Token() string {
	return r.token
}

func (r EntityRef) String() string {
	if r.IsPersisted() {
		return strconv.FormatUint(uint64(r.id), 10)
	}
	if r.IsPending() {
		return r.token
	}
	return "<none>"
}

// UnmarshalJSON 接受数字、数字字符串（视为持久化 id）或任意其他
// 非空字符串（视为占位符 token）。null 与空串视为无标识。
func (r *EntityRef) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*r = EntityRef{}
		return nil
	}

	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		str = strings.TrimSpace(str)
		if str == "" {
			*r = EntityRef{}
			return nil
		}
		if id, err := strconv.ParseUint(str, 10, 64); err == nil {
			*r = EntityRef{id: uint(id)}
			return nil
		}
		*r = EntityRef{token: str}
		return nil
	}

	var id uint64
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("entity id must be a number or string: %w", err)
	}
	*r = EntityRef{id: uint(id)}
	return nil
}

func (r EntityRef) MarshalJSON() ([]byte, error) {
	if r.IsPersisted() {
		return json.Marshal(r.id)
	}
	if r.IsPending() {
		return json.Marshal(r.token)
	}
	return []byte("null"), nil
}

// IDMap 一次调和过程内的占位符到持久化 id 的映射。
// 随保存请求创建、随请求丢弃，绝不跨请求复用。
type IDMap struct {
	created map[string]uint
}

func NewIDMap() *IDMap {
	return &IDMap{created: make(map[string]uint)}
}

// Bind 记录占位符对应的新生成 id
func (m *IDMap) Bind(token string, id uint) {
	m.created[token] = id
}

// Resolve 把标识解析为持久化 id。持久化 id 原样返回（归属校验由
// 调和引擎负责）；占位符必须已经绑定，未绑定说明依赖顺序被破坏，
// 直接报错而不是悄悄兜底。
func (m *IDMap) Resolve(ref EntityRef) (uint, error) {
	if ref.IsPersisted() {
		return ref.ID(), nil
	}
	if ref.IsPending() {
		id, ok := m.created[ref.Token()]
		if !ok {
			return 0, fmt.Errorf("placeholder %q resolved before its parent was inserted", ref.Token())
		}
		return id, nil
	}
	return 0, fmt.Errorf("empty entity reference cannot be resolved")
}

// Bindings 已绑定的映射（只读快照）
func (m *IDMap) Bindings() map[string]uint {
	out := make(map[string]uint, len(m.created))
	for k, v := range m.created {
		out[k] = v
	}
	return out
}
