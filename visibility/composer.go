package visibility

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/signatur/rms-go-pkg/errors"
	"github.com/signatur/rms-go-pkg/permission"
	"github.com/signatur/rms-go-pkg/scope"
)

/* ========================================================================
 * Visibility Composer - 行可见性策略组合器
 * ========================================================================
 * 职责: 在 scope 插件的 site/client 过滤之上，按权限集合叠加一层
 *       行谓词，决定共享表中主体能看到哪些行
 * 层级（严格顺序，命中即止）:
 *   1. 完全访问（持有 view-all，或隐含它的 edit-all）: 不加谓词
 *   2. 工作域授权（客户侧用户持有工作域权限）: 成员 OR 未认领 OR 本人工作域
 *   3. 仅成员（默认最严）: 成员 / 作者 / 负责人
 * 层级从宽到严求值，尽早命中可以省掉第 2 层的工作域查询（一次额外往返）。
 * 可见性每次查询都重新计算，绝不缓存，权限变更必须立即生效。
 * ======================================================================== */

// Target 描述一个受限集合的谓词所需的列与权限标识（静态代码级配置）
type Target struct {
	Table string

	// IDColumn 主表主键列，默认 "id"
	IDColumn string
	// AuthorColumn 作者列
	AuthorColumn string
	// ResponsibleColumn 负责人列
	ResponsibleColumn string

	// 成员关联表: MemberForeignKey 指向主表，MemberUserColumn 为用户列
	MemberTable      string
	MemberForeignKey string
	MemberUserColumn string

	// WorkAreaColumn 工作域分组列（NULL = 未认领）；空字符串表示该集合无工作域维度
	WorkAreaColumn string

	// 权限标识
	ViewAll      int64 // 第 1 层: 查看非成员记录
	EditAll      int64 // 第 1 层: 编辑权隐含查看权
	ViewWorkArea int64 // 第 2 层
	EditWorkArea int64 // 第 2 层
}

func (t Target) idColumn() string {
	if t.IDColumn == "" {
		return "id"
	}
	return t.IDColumn
}

// Config 工作域成员关系的查询配置
type Config struct {
	WorkAreaMemberTable string // 默认 "work_area_members"
	UserColumn          string // 默认 "user_id"
	GroupColumn         string // 默认 "work_area_id"
}

// DefaultConfig 默认表名，与 recruit 包模型一致
func DefaultConfig() Config {
	return Config{
		WorkAreaMemberTable: "work_area_members",
		UserColumn:          "user_id",
		GroupColumn:         "work_area_id",
	}
}

// Composer 可见性策略组合器
type Composer struct {
	db  *gorm.DB
	cfg Config
}

// NewComposer 创建组合器
func NewComposer(db *gorm.DB, cfg Config) *Composer {
	if cfg.WorkAreaMemberTable == "" {
		cfg = DefaultConfig()
	}
	return &Composer{db: db, cfg: cfg}
}

// Scope 计算主体对目标集合的可见性谓词，返回可叠加的查询作用域。
// 主体无法解析（零值 Principal）时谓词退化为"无成员身份"，
// 自然得到空结果集（fail-closed），不报错。
func (c *Composer) Scope(ctx context.Context, target Target, p scope.Principal, perms permission.Set) (func(*gorm.DB) *gorm.DB, error) {
	// 第 1 层: 完全访问，site/client 过滤已足够
	if perms.HasAny(target.ViewAll, target.EditAll) {
		return func(db *gorm.DB) *gorm.DB { return db }, nil
	}

	memberSQL, memberArgs := c.memberPredicate(target, p)

	// 第 2 层: 工作域授权（仅客户侧用户；内部员工走默认层）
	if !p.Internal && p.ClientID != nil &&
		target.WorkAreaColumn != "" &&
		perms.HasAny(target.ViewWorkArea, target.EditWorkArea) {

		groups, err := c.workAreas(ctx, p.ID)
		if err != nil {
			return nil, err
		}

		// 未认领的行（无工作域）对持有该权限的所有人可见
		sql := fmt.Sprintf("(%s OR %s.%s IS NULL", memberSQL, target.Table, target.WorkAreaColumn)
		args := memberArgs
		if len(groups) > 0 {
			sql += fmt.Sprintf(" OR %s.%s IN (?)", target.Table, target.WorkAreaColumn)
			args = append(args, groups)
		}
		sql += ")"
		return func(db *gorm.DB) *gorm.DB { return db.Where(sql, args...) }, nil
	}

	// 第 3 层: 仅成员（默认最严）
	return func(db *gorm.DB) *gorm.DB { return db.Where("("+memberSQL+")", memberArgs...) }, nil
}

// memberPredicate 成员/作者/负责人谓词
func (c *Composer) memberPredicate(target Target, p scope.Principal) (string, []any) {
	var (
		parts []string
		args  []any
	)
	if target.AuthorColumn != "" {
		parts = append(parts, fmt.Sprintf("%s.%s = ?", target.Table, target.AuthorColumn))
		args = append(args, p.ID)
	}
	if target.ResponsibleColumn != "" {
		parts = append(parts, fmt.Sprintf("%s.%s = ?", target.Table, target.ResponsibleColumn))
		args = append(args, p.ID)
	}
	if target.MemberTable != "" {
		parts = append(parts, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM %s WHERE %s.%s = %s.%s AND %s.%s = ?)",
			target.MemberTable,
			target.MemberTable, target.MemberForeignKey, target.Table, target.idColumn(),
			target.MemberTable, target.MemberUserColumn))
		args = append(args, p.ID)
	}
	if len(parts) == 0 {
		// 目标未声明任何成员维度: 谓词恒假，宁可漏查不可泄漏
		return "1 = 0", nil
	}

	sql := parts[0]
	for _, p := range parts[1:] {
		sql += " OR " + p
	}
	return sql, args
}

// workAreas 第 2 层的附加查询: 主体所属的工作域分组。
// 每次查询都重新读取，权限/分组调整立即生效。
func (c *Composer) workAreas(ctx context.Context, principalID int64) ([]int64, error) {
	var groups []int64
	err := c.db.WithContext(ctx).
		Table(c.cfg.WorkAreaMemberTable).
		Where(c.cfg.UserColumn+" = ?", principalID).
		Pluck(c.cfg.GroupColumn, &groups).Error
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to load work areas", err)
	}
	return groups, nil
}
