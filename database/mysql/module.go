package mysql

import (
	"github.com/signatur/rms-go-pkg/logger"
	"github.com/signatur/rms-go-pkg/scope"

	"go.uber.org/fx"
	"gorm.io/gorm"
)

/* ========================================================================
 * MySQL Module
 * ========================================================================
 * 职责: 提供 MySQL 依赖注入模块
 * ======================================================================== */

// Params 连接依赖
// Rules 可选：注入后自动安装行级数据隔离插件
type Params struct {
	fx.In

	Cfg   Config
	Log   *logger.Logger
	Rules *scope.Registry `optional:"true"`
}

func newScopedDB(p Params) (*gorm.DB, error) {
	db, err := NewDB(p.Cfg, p.Log)
	if err != nil {
		return nil, err
	}
	if p.Rules != nil {
		if err := db.Use(scope.NewPlugin(p.Rules, scope.WithLogger(p.Log))); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Module MySQL 模块
// 提供: *gorm.DB（已安装行级数据隔离插件，如注入了 *scope.Registry）
var Module = fx.Module("mysql",
	fx.Provide(newScopedDB),
)
