package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/signatur/rms-go-pkg/errors"
	"github.com/signatur/rms-go-pkg/grid"
	"github.com/signatur/rms-go-pkg/metrics"
)

/* ========================================================================
 * Grid Repository Implementation - 列表查询实现
 * ========================================================================
 * 职责: 实现 GridRepository 接口
 * 顺序: 过滤(含可见性 Scopes) -> 计数 -> 排序 -> 分页,
 *       整体运行在 REPEATABLE READ 快照中, 保证总数与页内容一致
 * ======================================================================== */

// FindGrid 列表查询
// req 会先归一化（页码/页大小钳制），未知的过滤/排序字段被忽略。
// 可见性作用域通过 WithScopes 传入, 行级隔离由 scope 插件自动补充。
func (r *RepositoryImpl[T]) FindGrid(ctx context.Context, req grid.Request, fields *grid.FieldMap, opts ...Option) (*grid.Result[T], error) {
	if fields == nil {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "field map is required")
	}
	req = req.Normalize()

	if sch, schErr := r.getSchema(); schErr == nil {
		start := time.Now()
		defer func() {
			metrics.GridQueryDuration.WithLabelValues(sch.Table).Observe(time.Since(start).Seconds())
		}()
	}

	var opt *QueryOption
	if len(opts) > 0 {
		opt = ApplyOptions(opts)
	}

	db := r.withContext(ctx)

	var result *grid.Result[T]
	err := db.Transaction(func(tx *gorm.DB) error {
		ctxWithTx := context.WithValue(ctx, ctxTxKey{}, tx)
		query := r.buildQuery(ctxWithTx, opt).Model(r.newModelPtr())
		query = grid.ApplyFilters(query, fields, req.Filters)

		// 先计数再排序分页, 计数不受排序影响
		var total int64
		if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
			return errors.Wrap(errors.ErrCodeInternal, "failed to count records", err)
		}

		query, _ = grid.ApplySorts(query, fields, req.Sorts)

		items := make([]T, 0, req.PageSize)
		if err := query.Offset(req.Offset()).Limit(req.PageSize).Find(&items).Error; err != nil {
			return errors.Wrap(errors.ErrCodeInternal, "failed to find records", err)
		}

		result = &grid.Result[T]{
			Items:      items,
			TotalCount: total,
			Page:       req.Page,
			PageSize:   req.PageSize,
		}
		return nil
	}, snapshotTxOptions(db))
	if err != nil {
		return nil, err
	}
	return result, nil
}
