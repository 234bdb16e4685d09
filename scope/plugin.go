package scope

import (
	"context"
	"reflect"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/signatur/rms-go-pkg/errors"
	"github.com/signatur/rms-go-pkg/logger"
)

/* ========================================================================
 * Scope Plugin - 行级过滤 gorm 插件
 * ========================================================================
 * 职责:
 *   - 查询/更新/删除: 按注册规则自动注入 site/client 过滤条件
 *   - 创建/更新: 写入守卫，client 归属与访问上下文不一致时中止
 * 约束: 常规查询构造无法绕过；db.Raw / db.Exec 是唯一逃生通道，
 *       使用方必须用 Conditions 手工补回相同过滤
 * ======================================================================== */

const pluginName = "rms:scope"

// Violation 写入守卫拦截到的一次违规
type Violation struct {
	Table     string
	Column    string
	StagedID  any
	AmbientID int64
	Operation string // "create" / "update"
}

// PluginOption 插件可选项
type PluginOption func(*Plugin)

// WithLogger 注入日志器，违规拦截会记录 warn 日志
func WithLogger(log *logger.Logger) PluginOption {
	return func(p *Plugin) { p.log = log }
}

// WithViolationHook 注册违规回调（审计事件、指标计数等）
func WithViolationHook(hook func(ctx context.Context, v Violation)) PluginOption {
	return func(p *Plugin) { p.onViolation = hook }
}

// Plugin 行级过滤插件
type Plugin struct {
	rules       *Registry
	log         *logger.Logger
	onViolation func(ctx context.Context, v Violation)
}

// NewPlugin 创建插件；规则注册表在进程启动期填充完毕后传入
func NewPlugin(rules *Registry, opts ...PluginOption) *Plugin {
	p := &Plugin{rules: rules, log: logger.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name 实现 gorm.Plugin
func (p *Plugin) Name() string { return pluginName }

// Initialize 实现 gorm.Plugin，注册回调
func (p *Plugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Query().Before("gorm:query").Register(pluginName+":query", p.scopeStatement); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register(pluginName+":row", p.scopeStatement); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register(pluginName+":update", p.guardUpdate); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register(pluginName+":delete", p.scopeStatement); err != nil {
		return err
	}
	return db.Callback().Create().Before("gorm:create").Register(pluginName+":create", p.guardCreate)
}

// ruleForStatement 查找当前语句对应的规则与访问上下文。
// 任一缺失（未注册实体 / 无访问上下文）都意味着不过滤。
func (p *Plugin) ruleForStatement(db *gorm.DB) (Rule, AccessContext, bool) {
	stmt := db.Statement
	if stmt == nil || stmt.Schema == nil {
		return Rule{}, AccessContext{}, false
	}
	rule, ok := p.rules.RuleFor(stmt.Schema.ModelType)
	if !ok {
		return Rule{}, AccessContext{}, false
	}
	ac, ok := AccessFromContext(stmt.Context)
	if !ok {
		return Rule{}, AccessContext{}, false
	}
	return rule, ac, true
}

// scopeStatement 给查询/行查询/删除语句注入过滤条件
func (p *Plugin) scopeStatement(db *gorm.DB) {
	if db.Error != nil {
		return
	}
	rule, ac, ok := p.ruleForStatement(db)
	if !ok {
		return
	}
	for _, c := range Conditions(ac, rule, db.Statement.Table) {
		db.Statement.AddClause(clause.Where{
			Exprs: []clause.Expression{clause.Expr{SQL: c.SQL, Vars: c.Args}},
		})
	}
}

/* ========================================================================
 * 写入守卫
 * ========================================================================
 * 最后一道防线: 业务代码本不应构造出错误 client 归属的记录，
 * 守卫只负责把上游的逻辑错误变成显式失败而不是无声的数据泄漏。
 * ======================================================================== */

// guardCreate 创建守卫: 校验/补全 client 归属列
func (p *Plugin) guardCreate(db *gorm.DB) {
	if db.Error != nil {
		return
	}
	rule, ac, ok := p.ruleForStatement(db)
	if !ok || !rule.Guarded() || ac.ClientID == nil {
		return
	}

	stmt := db.Statement
	field := stmt.Schema.LookUpField(rule.ClientColumn)
	if field == nil {
		return
	}

	switch stmt.ReflectValue.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < stmt.ReflectValue.Len(); i++ {
			if !p.guardCreateValue(db, rule, field, stmt.ReflectValue.Index(i), ac) {
				return
			}
		}
	case reflect.Struct:
		p.guardCreateValue(db, rule, field, stmt.ReflectValue, ac)
	}
}

func (p *Plugin) guardCreateValue(db *gorm.DB, rule Rule, field *schema.Field, rv reflect.Value, ac AccessContext) bool {
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	stmt := db.Statement
	value, isZero := field.ValueOf(stmt.Context, rv)
	if isZero {
		// 角色形态下 NULL client 列表达"站点级行"，不补全
		if rule.SiteWide {
			return true
		}
		if err := field.Set(stmt.Context, rv, *ac.ClientID); err != nil {
			_ = db.AddError(err)
			return false
		}
		return true
	}
	if !idEquals(value, *ac.ClientID) {
		p.reject(db, rule, value, ac, "create")
		return false
	}
	return true
}

// guardUpdate 更新守卫 + 更新语句过滤。
// 先校验暂存的 client 归属，再把过滤条件注入 WHERE，
// 防止按主键跨客户 UPDATE。
func (p *Plugin) guardUpdate(db *gorm.DB) {
	if db.Error != nil {
		return
	}
	rule, ac, ok := p.ruleForStatement(db)
	if !ok {
		return
	}

	if rule.Guarded() && ac.ClientID != nil {
		if staged, present := p.stagedClientValue(db, rule); present && !idEquals(staged, *ac.ClientID) {
			p.reject(db, rule, staged, ac, "update")
			return
		}
	}

	for _, c := range Conditions(ac, rule, db.Statement.Table) {
		db.Statement.AddClause(clause.Where{
			Exprs: []clause.Expression{clause.Expr{SQL: c.SQL, Vars: c.Args}},
		})
	}
}

// stagedClientValue 提取更新语句中暂存的 client 归属值
func (p *Plugin) stagedClientValue(db *gorm.DB, rule Rule) (any, bool) {
	stmt := db.Statement
	field := stmt.Schema.LookUpField(rule.ClientColumn)
	if field == nil {
		return nil, false
	}

	// Updates(map) 形态: 按列名或字段名取值
	if updates, ok := stmt.Dest.(map[string]any); ok {
		if v, ok := updates[rule.ClientColumn]; ok {
			return v, true
		}
		if v, ok := updates[field.Name]; ok {
			return v, true
		}
		return nil, false
	}

	// Save(model) / Updates(struct) 形态
	rv := reflect.ValueOf(stmt.Dest)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct || rv.Type() != stmt.Schema.ModelType {
		return nil, false
	}
	value, isZero := field.ValueOf(stmt.Context, rv)
	if isZero {
		return nil, false
	}
	return value, true
}

func (p *Plugin) reject(db *gorm.DB, rule Rule, staged any, ac AccessContext, op string) {
	v := Violation{
		Table:     db.Statement.Table,
		Column:    rule.ClientColumn,
		StagedID:  staged,
		AmbientID: *ac.ClientID,
		Operation: op,
	}
	p.log.WithContext(db.Statement.Context).Warn("client scope violation rejected",
		zapViolationFields(v)...)
	if p.onViolation != nil {
		p.onViolation(db.Statement.Context, v)
	}
	_ = db.AddError(errors.Wrapf(errors.ErrCodeClientViolation, nil,
		"%s on %s staged %s=%v but ambient client is %d", op, v.Table, v.Column, staged, v.AmbientID))
}

func zapViolationFields(v Violation) []zap.Field {
	return []zap.Field{
		zap.String("table", v.Table),
		zap.String("column", v.Column),
		zap.Any("staged", v.StagedID),
		zap.Int64("ambient_client", v.AmbientID),
		zap.String("op", v.Operation),
	}
}

// idEquals 比较暂存值与访问上下文中的 client ID。
// 模型字段可能是 int64 / int / uint / 及其指针形态。
func idEquals(value any, id int64) bool {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch {
	case rv.CanInt():
		return rv.Int() == id
	case rv.CanUint():
		return id >= 0 && rv.Uint() == uint64(id)
	}
	return false
}
