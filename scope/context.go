package scope

import (
	"context"

	"github.com/google/uuid"
	ulidv2 "github.com/oklog/ulid/v2"

	"github.com/signatur/rms-go-pkg/logger"
	idgen "github.com/signatur/rms-go-pkg/utils/id-generator/ulid"
)

/* ========================================================================
 * Access Context - 访问上下文
 * ========================================================================
 * 职责: 携带一次操作的 (site, client) 访问边界，供行级过滤与写入守卫使用
 * 约束: 每个工作单元只建立一次；第一条查询执行后不得再变更
 * ======================================================================== */

// AccessContext 单次操作的访问边界。
// SiteID / ClientID 为 nil 表示该维度不过滤（系统/后台操作）。
type AccessContext struct {
	SiteID   *int64
	ClientID *int64

	// Operation 操作 ID，用于日志与审计事件关联
	Operation ulidv2.ULID
}

// ForClient 创建限定到某个站点下某个客户的访问上下文。
// 常规请求路径都应使用此构造。
func ForClient(siteID, clientID int64) AccessContext {
	return AccessContext{
		SiteID:    &siteID,
		ClientID:  &clientID,
		Operation: idgen.Generate(),
	}
}

// ForSite 创建仅限定站点、跨客户的访问上下文（站点级管理操作）。
func ForSite(siteID int64) AccessContext {
	return AccessContext{
		SiteID:    &siteID,
		Operation: idgen.Generate(),
	}
}

// SystemContext 创建完全不过滤的访问上下文。
// 仅限确认不存在租户边界的系统路径使用；调用点应当是可审计的。
func SystemContext() AccessContext {
	return AccessContext{Operation: idgen.Generate()}
}

// System 判断是否为完全不过滤的系统上下文
func (ac AccessContext) System() bool {
	return ac.SiteID == nil && ac.ClientID == nil
}

type accessCtxKey struct{}

// WithAccessContext 将访问上下文注入 context.Context。
// 同时写入操作 ID，logger.WithContext 可据此关联同一操作的日志。
func WithAccessContext(ctx context.Context, ac AccessContext) context.Context {
	ctx = logger.WithOperationID(ctx, ac.Operation.String())
	return context.WithValue(ctx, accessCtxKey{}, ac)
}

// AccessFromContext 读取访问上下文。
// 不存在时返回 false，行级过滤按"不过滤"处理。
func AccessFromContext(ctx context.Context) (AccessContext, bool) {
	v := ctx.Value(accessCtxKey{})
	if v == nil {
		return AccessContext{}, false
	}
	ac, ok := v.(AccessContext)
	return ac, ok
}

/* ========================================================================
 * Principal - 已认证主体
 * ======================================================================== */

// Principal 已认证主体。认证本身在网关完成，这里只消费其结果。
type Principal struct {
	ID          int64
	ExternalID  uuid.UUID
	DisplayName string

	// Internal 内部员工标记；内部员工不绑定客户
	Internal bool

	// ClientID 归属客户；内部员工为 nil
	ClientID *int64
}

type principalCtxKey struct{}

// WithPrincipal 将已认证主体注入 context.Context
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFromContext 读取已认证主体
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	v := ctx.Value(principalCtxKey{})
	if v == nil {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}
