package permission

import "sort"

/* ========================================================================
 * Permission Set - 权限集合
 * ========================================================================
 * 职责: 一次操作内某个主体的全部权限标识，解析后只读
 * ======================================================================== */

// Set 权限标识集合。解析完成后视为不可变。
type Set struct {
	ids map[int64]struct{}
}

// NewSet 创建权限集合并去重
func NewSet(ids ...int64) Set {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return Set{ids: m}
}

// Has 判断是否持有指定权限
func (s Set) Has(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

// HasAny 判断是否持有任一指定权限
func (s Set) HasAny(ids ...int64) bool {
	for _, id := range ids {
		if s.Has(id) {
			return true
		}
	}
	return false
}

// Len 权限数量
func (s Set) Len() int { return len(s.ids) }

// Empty 是否为空集合（未解析到主体时的 fail-closed 结果）
func (s Set) Empty() bool { return len(s.ids) == 0 }

// IDs 返回排序后的权限标识切片
func (s Set) IDs() []int64 {
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Equal 值相等比较
func (s Set) Equal(other Set) bool {
	if len(s.ids) != len(other.ids) {
		return false
	}
	for id := range s.ids {
		if _, ok := other.ids[id]; !ok {
			return false
		}
	}
	return true
}
