package recruit

import (
	"github.com/signatur/rms-go-pkg/visibility"
)

// ActivityTarget 招聘活动列表的三层可见性目标
func ActivityTarget() visibility.Target {
	return visibility.Target{
		Table:             "activities",
		AuthorColumn:      "author_id",
		ResponsibleColumn: "responsible_id",
		MemberTable:       "activity_members",
		MemberForeignKey:  "activity_id",
		MemberUserColumn:  "user_id",
		WorkAreaColumn:    "work_area_id",
		ViewAll:           PermActivityViewAll,
		EditAll:           PermActivityEditAll,
		ViewWorkArea:      PermActivityViewWorkArea,
		EditWorkArea:      PermActivityEditWorkArea,
	}
}

// CandidateTarget 候选人列表的可见性目标。
// 候选人没有成员关联与工作域分组，仅区分全量权限与兜底拒绝。
func CandidateTarget() visibility.Target {
	return visibility.Target{
		Table:   "candidates",
		ViewAll: PermCandidateViewAll,
		EditAll: PermCandidateEditAll,
	}
}
