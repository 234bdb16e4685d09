package recruit

import (
	"github.com/signatur/rms-go-pkg/grid"
)

/* ========================================================================
 * Grid Field Maps - 列表字段映射
 * ========================================================================
 * 说明: 对外字段名 -> 数据库列; 未声明的字段在排序/过滤时被忽略。
 *       计算字段(如 applicationCount)声明为不可排序、不可过滤。
 * ======================================================================== */

// ActivityFields 招聘活动列表字段
func ActivityFields() *grid.FieldMap {
	return grid.NewFieldMap("activities.id DESC").
		MustAdd("title", grid.Field{Column: "activities.title", Sortable: true, Filterable: true}).
		MustAdd("state", grid.Field{Column: "activities.state", Sortable: true, Filterable: true}).
		MustAdd("createdAt", grid.Field{Column: "activities.create_time", Sortable: true}).
		MustAdd("applicationCount", grid.Field{Column: "application_count"})
}

// CandidateFields 候选人列表字段
func CandidateFields() *grid.FieldMap {
	return grid.NewFieldMap("candidates.id DESC").
		MustAdd("name", grid.Field{Column: "candidates.name", Sortable: true, Filterable: true}).
		MustAdd("email", grid.Field{Column: "candidates.email", Sortable: true, Filterable: true}).
		MustAdd("createdAt", grid.Field{Column: "candidates.create_time", Sortable: true})
}

// ApplicationFields 申请列表字段
func ApplicationFields() *grid.FieldMap {
	return grid.NewFieldMap("applications.id DESC").
		MustAdd("stage", grid.Field{Column: "applications.stage", Sortable: true, Filterable: true}).
		MustAdd("createdAt", grid.Field{Column: "applications.create_time", Sortable: true})
}
