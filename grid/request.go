package grid

/* ========================================================================
 * Grid Request - 列表页抽象请求
 * ========================================================================
 * 职责: UI 表格发来的分页/排序/过滤请求的抽象表示
 * 语义: 宽松容错，未知字段/操作符跳过不报错，非法分页参数钳制，
 *       表格驱动的请求不应因为一列配置错误而整体失败
 * ======================================================================== */

const (
	// DefaultPageSize 默认每页条数；非法 PageSize 钳制到该值
	DefaultPageSize = 25
	// MaxPageSize 超过此值视为非法
	MaxPageSize = 1000
)

// 过滤操作符
const (
	OpContains   = "contains"
	OpEquals     = "equals"
	OpStartsWith = "starts-with"
	OpEndsWith   = "ends-with"
)

// Sort 排序指令，按提供顺序生效
type Sort struct {
	Field string `json:"field" validate:"required"`
	Desc  bool   `json:"desc"`
}

// Filter 过滤指令
type Filter struct {
	Field string `json:"field" validate:"required"`
	Op    string `json:"op" validate:"oneof=contains equals starts-with ends-with"`
	Value string `json:"value"`
}

// Request 列表页请求。Page 从 0 开始。
type Request struct {
	Page     int      `json:"page" validate:"gte=0"`
	PageSize int      `json:"page_size"`
	Sorts    []Sort   `json:"sorts" validate:"dive"`
	Filters  []Filter `json:"filters" validate:"dive"`
}

// Normalize 钳制非法分页参数: 负页码归零，非法页大小回落默认值
func (r Request) Normalize() Request {
	if r.Page < 0 {
		r.Page = 0
	}
	if r.PageSize <= 0 || r.PageSize > MaxPageSize {
		r.PageSize = DefaultPageSize
	}
	return r
}

// Offset 当前页偏移量
func (r Request) Offset() int {
	return r.Page * r.PageSize
}

// Result 列表页响应: 当前页数据 + 过滤后未分页的总数
type Result[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
}
