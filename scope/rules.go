package scope

import (
	"fmt"
	"reflect"
	"sync"
)

/* ========================================================================
 * Row-Scoping Rules - 行级过滤规则注册表
 * ========================================================================
 * 职责: 每个受限实体类型注册一条规则，声明其 site/client 归属字段
 * 形态:
 *   - 直接归属: 实体自带 site_id / client_id 列
 *   - 角色形态: client 列为 NULL 的行是站点级行，站点匹配即可见
 *   - 传递归属: 通过必填的父关系列借用父实体的 client 归属
 * ======================================================================== */

// ParentRule 传递归属：子实体通过父关系借用 client 归属。
// 父关系是必填外键，不允许孤儿记录。
type ParentRule struct {
	// Table 父表名
	Table string
	// ForeignKey 子表上指向父表的外键列
	ForeignKey string
	// References 父表被引用的主键列，默认 "id"
	References string
	// ClientColumn 父表上的 client 归属列
	ClientColumn string
}

// Rule 单个实体类型的行级过滤规则
type Rule struct {
	// SiteColumn 站点归属列；空表示不按站点过滤
	SiteColumn string
	// ClientColumn 客户归属列；空表示不直接按客户过滤
	ClientColumn string
	// SiteWide 角色形态：ClientColumn 为 NULL 的行是站点级行，
	// 站点匹配后始终可见；非 NULL 的行仍要求客户匹配
	SiteWide bool
	// Parent 传递归属；与 ClientColumn 互斥
	Parent *ParentRule
}

// Guarded 返回写入守卫是否检查该实体。
// 只有直接暴露 client 归属列的实体才被守卫检查（传递归属实体不检查）。
func (r Rule) Guarded() bool {
	return r.ClientColumn != ""
}

func (r Rule) validate() error {
	if r.ClientColumn != "" && r.Parent != nil {
		return fmt.Errorf("scope: rule cannot combine ClientColumn and Parent")
	}
	if r.SiteWide && r.ClientColumn == "" {
		return fmt.Errorf("scope: SiteWide rule requires ClientColumn")
	}
	if r.Parent != nil {
		if r.Parent.Table == "" || r.Parent.ForeignKey == "" || r.Parent.ClientColumn == "" {
			return fmt.Errorf("scope: incomplete parent rule")
		}
	}
	return nil
}

// Registry 规则注册表，按模型类型索引。
// 注册发生在进程启动期（静态配置），之后只读。
type Registry struct {
	mu    sync.RWMutex
	rules map[reflect.Type]Rule
}

// NewRegistry 创建空的规则注册表
func NewRegistry() *Registry {
	return &Registry{rules: make(map[reflect.Type]Rule)}
}

// MustRegister 注册模型的行级过滤规则，规则非法时 panic。
// model 传模型指针或值，如 &recruit.Activity{}。
func (reg *Registry) MustRegister(model any, rule Rule) {
	if err := reg.Register(model, rule); err != nil {
		panic(err)
	}
}

// Register 注册模型的行级过滤规则
func (reg *Registry) Register(model any, rule Rule) error {
	if err := rule.validate(); err != nil {
		return err
	}
	t := modelType(model)
	if t == nil {
		return fmt.Errorf("scope: cannot register rule for %T", model)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.rules[t]; exists {
		return fmt.Errorf("scope: duplicate rule for %s", t)
	}
	reg.rules[t] = rule
	return nil
}

// RuleFor 查找模型类型的规则
func (reg *Registry) RuleFor(t reflect.Type) (Rule, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rules[t]
	return r, ok
}

func modelType(model any) reflect.Type {
	t := reflect.TypeOf(model)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	return t
}

/* ========================================================================
 * Escape Hatch - 手写 SQL 的等价条件
 * ========================================================================
 * 绕过 gorm 声明式查询的原生 SQL 属于刻意的逃生通道，
 * 必须用 Conditions 重新拼上与插件完全相同的过滤条件。
 * ======================================================================== */

// Condition 一条需要 AND 进 WHERE 的过滤条件
type Condition struct {
	SQL  string
	Args []any
}

// Conditions 计算规则在给定访问上下文下等价的 SQL 条件。
// table 为查询中受限实体使用的表名或别名。
// 返回空切片表示该上下文不过滤。
func Conditions(ac AccessContext, rule Rule, table string) []Condition {
	var conds []Condition

	if ac.SiteID != nil && rule.SiteColumn != "" {
		conds = append(conds, Condition{
			SQL:  fmt.Sprintf("%s.%s = ?", table, rule.SiteColumn),
			Args: []any{*ac.SiteID},
		})
	}

	if ac.ClientID != nil {
		switch {
		case rule.SiteWide:
			// 角色形态: 站点级行（client 列为 NULL）始终可见
			conds = append(conds, Condition{
				SQL:  fmt.Sprintf("(%s.%s IS NULL OR %s.%s = ?)", table, rule.ClientColumn, table, rule.ClientColumn),
				Args: []any{*ac.ClientID},
			})
		case rule.ClientColumn != "":
			conds = append(conds, Condition{
				SQL:  fmt.Sprintf("%s.%s = ?", table, rule.ClientColumn),
				Args: []any{*ac.ClientID},
			})
		case rule.Parent != nil:
			p := rule.Parent
			refs := p.References
			if refs == "" {
				refs = "id"
			}
			conds = append(conds, Condition{
				SQL: fmt.Sprintf("EXISTS (SELECT 1 FROM %s WHERE %s.%s = %s.%s AND %s.%s = ?)",
					p.Table, p.Table, refs, table, p.ForeignKey, p.Table, p.ClientColumn),
				Args: []any{*ac.ClientID},
			})
		}
	}

	return conds
}
