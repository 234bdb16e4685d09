package grid

import (
	"fmt"
	"sort"
)

/* ========================================================================
 * Field Map - 字段映射表
 * ========================================================================
 * 职责: 外部字段名到存储列的显式映射（静态代码级配置）
 * 设计: 经二次查询计算、无法直接排序/过滤的字段必须显式声明为
 *       不可排序，而不是在运行时无声忽略，调用方能据此提前告知
 *       UI 哪些列不支持排序
 * ======================================================================== */

// Field 单个外部字段的映射
type Field struct {
	// Column 存储列，形如 "activities.title"
	Column string
	// Sortable 是否可排序；物化后二次计算的字段为 false
	Sortable bool
	// Filterable 是否可过滤
	Filterable bool
}

// FieldMap 一个列表页的字段映射与默认排序
type FieldMap struct {
	fields map[string]Field
	// defaultOrder 无有效排序指令时的兜底排序（最新优先），
	// 保证分页顺序确定
	defaultOrder string
}

// NewFieldMap 创建字段映射表。defaultOrder 如 "activities.created_at DESC"。
func NewFieldMap(defaultOrder string) *FieldMap {
	return &FieldMap{
		fields:       make(map[string]Field),
		defaultOrder: defaultOrder,
	}
}

// MustAdd 注册字段映射，重复注册 panic（启动期配置错误）
func (m *FieldMap) MustAdd(name string, f Field) *FieldMap {
	if _, exists := m.fields[name]; exists {
		panic(fmt.Sprintf("grid: duplicate field %q", name))
	}
	if f.Column == "" {
		panic(fmt.Sprintf("grid: field %q has no column", name))
	}
	m.fields[name] = f
	return m
}

// Lookup 查找字段映射
func (m *FieldMap) Lookup(name string) (Field, bool) {
	f, ok := m.fields[name]
	return f, ok
}

// Sortable 判断字段是否可排序
func (m *FieldMap) Sortable(name string) bool {
	f, ok := m.fields[name]
	return ok && f.Sortable
}

// SortableFields 返回全部可排序字段名（排序后），供调用方告知 UI
func (m *FieldMap) SortableFields() []string {
	var names []string
	for name, f := range m.fields {
		if f.Sortable {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// DefaultOrder 兜底排序
func (m *FieldMap) DefaultOrder() string {
	return m.defaultOrder
}
