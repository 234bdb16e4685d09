package recruit

/* ========================================================================
 * Permission IDs - 权限标识
 * ========================================================================
 * 说明: 权限按集合分段编号, x01/x02 = 全量查看/编辑,
 *       x03/x04 = 本工作域查看/编辑
 * ======================================================================== */

const (
	// 招聘活动
	PermActivityViewAll      int64 = 1101
	PermActivityEditAll      int64 = 1102
	PermActivityViewWorkArea int64 = 1103
	PermActivityEditWorkArea int64 = 1104

	// 候选人
	PermCandidateViewAll      int64 = 1201
	PermCandidateEditAll      int64 = 1202
	PermCandidateViewWorkArea int64 = 1203
	PermCandidateEditWorkArea int64 = 1204

	// 申请
	PermApplicationViewAll int64 = 1301
	PermApplicationEditAll int64 = 1302

	// 用户与角色管理
	PermUserAdmin int64 = 1901
	PermRoleAdmin int64 = 1902
)
