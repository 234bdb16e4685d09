package grid

import (
	"strings"

	"gorm.io/gorm"
)

/* ========================================================================
 * Apply - 过滤/排序应用
 * ========================================================================
 * 固定顺序由调用方（repository.FindGrid）保证:
 *   过滤(含可见性谓词) -> 计数 -> 排序 -> 分页
 * 每步都会改变下一步的语义，顺序不可调换。
 * ======================================================================== */

// ApplyFilters 把过滤指令 AND 到查询上。
// 未知字段、不可过滤字段、未知操作符一律跳过（宽松语义），
// 过滤只做普通收窄，绝不承担租户/可见性职责。
func ApplyFilters(db *gorm.DB, m *FieldMap, filters []Filter) *gorm.DB {
	for _, f := range filters {
		field, ok := m.Lookup(f.Field)
		if !ok || !field.Filterable {
			continue
		}
		switch f.Op {
		case OpEquals:
			db = db.Where(field.Column+" = ?", f.Value)
		case OpContains:
			db = db.Where(field.Column+" LIKE ? ESCAPE '\\'", "%"+escapeLike(f.Value)+"%")
		case OpStartsWith:
			db = db.Where(field.Column+" LIKE ? ESCAPE '\\'", escapeLike(f.Value)+"%")
		case OpEndsWith:
			db = db.Where(field.Column+" LIKE ? ESCAPE '\\'", "%"+escapeLike(f.Value))
		default:
			// 未知操作符: no-op
		}
	}
	return db
}

// ApplySorts 按提供顺序应用排序指令。
// 返回被跳过的字段名（未注册或声明为不可排序），调用方据此告知 UI。
// 没有任何有效排序时回落到 FieldMap 的默认排序，保证分页顺序确定。
func ApplySorts(db *gorm.DB, m *FieldMap, sorts []Sort) (*gorm.DB, []string) {
	var skipped []string
	applied := 0
	for _, s := range sorts {
		field, ok := m.Lookup(s.Field)
		if !ok || !field.Sortable {
			skipped = append(skipped, s.Field)
			continue
		}
		dir := " ASC"
		if s.Desc {
			dir = " DESC"
		}
		db = db.Order(field.Column + dir)
		applied++
	}
	if applied == 0 && m.DefaultOrder() != "" {
		db = db.Order(m.DefaultOrder())
	}
	return db, skipped
}

// escapeLike 转义 LIKE 模式中的通配符，用户输入只做字面匹配
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
