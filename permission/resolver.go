package permission

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/signatur/rms-go-pkg/errors"
	"github.com/signatur/rms-go-pkg/metrics"
	"github.com/signatur/rms-go-pkg/scope"
)

/* ========================================================================
 * Permission Resolver - 权限解析器
 * ========================================================================
 * 职责: 把主体经由有效角色成员关系展开成权限集合，按操作内存化
 *
 * 刻意设计（勿"修复"）:
 *   角色查询只按站点过滤，不按 client 过滤。模拟登录与跨客户管理流程
 *   要求权限检查能看到当前客户之外的角色。行数据走 scope 插件的完整
 *   过滤，权限解析不走，这是两者有意的不对称。
 *   查询使用 Table() 原生路径绕开 scope 插件，站点条件按逃生通道
 *   约定手工补回。
 * ======================================================================== */

// Config 解析器使用的表名（静态代码级配置）
type Config struct {
	UserTable       string // 主体表
	RoleTable       string // 角色表: active / site_id / client_id
	AssignmentTable string // 主体-角色关联: user_id / role_id
	GrantTable      string // 角色-权限关联: role_id / permission_id
}

// DefaultConfig 默认表名，与 recruit 包模型一致
func DefaultConfig() Config {
	return Config{
		UserTable:       "users",
		RoleTable:       "roles",
		AssignmentTable: "role_assignments",
		GrantTable:      "role_grants",
	}
}

// Resolver 权限解析器。
// 生命周期与单次操作（工作单元）一致: 缓存只服务于同一操作内
// 对同一主体的重复解析，不跨请求共享，因此无需加锁。
type Resolver struct {
	db    *gorm.DB
	cfg   Config
	cache map[int64]Set
}

// NewResolver 创建解析器；每个工作单元创建一个
func NewResolver(db *gorm.DB, cfg Config) *Resolver {
	if cfg.UserTable == "" {
		cfg = DefaultConfig()
	}
	return &Resolver{
		db:    db,
		cfg:   cfg,
		cache: make(map[int64]Set),
	}
}

// Resolve 解析主体的权限集合。
// 同一操作内的第二次调用返回缓存结果，保证确定性。
// 主体不存在时返回空集合而非错误（fail-closed）。
func (r *Resolver) Resolve(ctx context.Context, principalID int64) (Set, error) {
	if cached, ok := r.cache[principalID]; ok {
		metrics.PermissionResolveTotal.WithLabelValues("true").Inc()
		return cached, nil
	}

	set, err := r.resolve(ctx, principalID)
	if err != nil {
		return Set{}, err
	}
	metrics.PermissionResolveTotal.WithLabelValues("false").Inc()
	r.cache[principalID] = set
	return set, nil
}

func (r *Resolver) resolve(ctx context.Context, principalID int64) (Set, error) {
	db := r.db.WithContext(ctx)

	var exists int64
	if err := db.Table(r.cfg.UserTable).Where("id = ?", principalID).Count(&exists).Error; err != nil {
		return Set{}, errors.Wrap(errors.ErrCodeInternal, "failed to resolve principal", err)
	}
	if exists == 0 {
		return NewSet(), nil
	}

	query := db.Table(r.cfg.GrantTable+" AS g").
		Joins(fmt.Sprintf("JOIN %s AS r ON r.id = g.role_id", r.cfg.RoleTable)).
		Joins(fmt.Sprintf("JOIN %s AS a ON a.role_id = g.role_id", r.cfg.AssignmentTable)).
		Where("a.user_id = ?", principalID).
		Where("r.active = ?", true)

	// 站点条件手工补回（原生路径不经过 scope 插件）；client 刻意不过滤
	if ac, ok := scope.AccessFromContext(ctx); ok && ac.SiteID != nil {
		query = query.Where("r.site_id = ?", *ac.SiteID)
	}

	var ids []int64
	if err := query.Distinct().Pluck("g.permission_id", &ids).Error; err != nil {
		return Set{}, errors.Wrap(errors.ErrCodeInternal, "failed to resolve permissions", err)
	}
	return NewSet(ids...), nil
}
