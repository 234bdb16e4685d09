package recruit

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/signatur/rms-go-pkg/repository"
)

/* ========================================================================
 * Recruit Models - 招聘域模型
 * ========================================================================
 * 职责: 定义招聘管理的核心实体（用户、角色、招聘活动、候选人、申请）
 * 归属: 除角色和用户外，所有实体都归属于单个 client；
 *       申请和活动成员通过所属活动传递归属
 * ======================================================================== */

// User 平台用户
// ClientID 为 NULL 表示内部员工（不受 client 隔离限制）
type User struct {
	repository.BaseModel
	ExternalID  uuid.UUID `json:"external_id" gorm:"column:external_id;type:char(36);uniqueIndex;comment:对外标识"`
	DisplayName string    `json:"display_name" gorm:"column:display_name;size:128;comment:显示名"`
	Email       string    `json:"email" gorm:"column:email;size:255;index;comment:邮箱"`
	Internal    bool      `json:"internal" gorm:"column:internal;default:false;comment:内部员工"`
	SiteID      int64     `json:"site_id,string" gorm:"column:site_id;index;comment:站点归属"`
	ClientID    *int64    `json:"client_id,string" gorm:"column:client_id;index;comment:客户归属(NULL=内部员工)"`
}

func (User) TableName() string { return "users" }

// BeforeCreate 补充生成对外 UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if err := u.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if u.ExternalID == uuid.Nil {
		u.ExternalID = uuid.New()
	}
	return nil
}

// Role 角色
// ClientID 为 NULL 表示站点级角色，站点内所有 client 可见
type Role struct {
	repository.BaseModel
	Name     string `json:"name" gorm:"column:name;size:128;comment:角色名"`
	SiteID   int64  `json:"site_id,string" gorm:"column:site_id;index;comment:站点归属"`
	ClientID *int64 `json:"client_id,string" gorm:"column:client_id;index;comment:客户归属(NULL=站点级)"`
	Active   bool   `json:"active" gorm:"column:active;default:true;comment:是否生效"`
}

func (Role) TableName() string { return "roles" }

// RoleGrant 角色持有的权限
type RoleGrant struct {
	repository.BaseModel
	RoleID       int64 `json:"role_id,string" gorm:"column:role_id;index;comment:角色"`
	PermissionID int64 `json:"permission_id,string" gorm:"column:permission_id;index;comment:权限标识"`
}

func (RoleGrant) TableName() string { return "role_grants" }

// RoleAssignment 用户与角色的关联
type RoleAssignment struct {
	repository.BaseModel
	UserID int64 `json:"user_id,string" gorm:"column:user_id;index;comment:用户"`
	RoleID int64 `json:"role_id,string" gorm:"column:role_id;index;comment:角色"`
}

func (RoleAssignment) TableName() string { return "role_assignments" }

// WorkArea 客户内部的组织分组（部门/区域）
type WorkArea struct {
	repository.BaseModel
	Name     string `json:"name" gorm:"column:name;size:128;comment:名称"`
	SiteID   int64  `json:"site_id,string" gorm:"column:site_id;index;comment:站点归属"`
	ClientID int64  `json:"client_id,string" gorm:"column:client_id;index;comment:客户归属"`
}

func (WorkArea) TableName() string { return "work_areas" }

// WorkAreaMember 用户在工作域的成员资格
type WorkAreaMember struct {
	repository.BaseModel
	WorkAreaID int64 `json:"work_area_id,string" gorm:"column:work_area_id;index;comment:工作域"`
	UserID     int64 `json:"user_id,string" gorm:"column:user_id;index;comment:用户"`
}

func (WorkAreaMember) TableName() string { return "work_area_members" }

// Activity 招聘活动（职位招聘流程的容器）
// WorkAreaID 为 NULL 表示尚未认领到任何工作域
type Activity struct {
	repository.BaseModel
	Title         string `json:"title" gorm:"column:title;size:255;comment:标题"`
	State         string `json:"state" gorm:"column:state;size:32;index;comment:状态(open/closed/...)"`
	SiteID        int64  `json:"site_id,string" gorm:"column:site_id;index;comment:站点归属"`
	ClientID      int64  `json:"client_id,string" gorm:"column:client_id;index;comment:客户归属"`
	AuthorID      int64  `json:"author_id,string" gorm:"column:author_id;index;comment:创建人"`
	ResponsibleID int64  `json:"responsible_id,string" gorm:"column:responsible_id;index;comment:负责人"`
	WorkAreaID    *int64 `json:"work_area_id,string" gorm:"column:work_area_id;index;comment:工作域(NULL=未认领)"`
}

func (Activity) TableName() string { return "activities" }

// ActivityMember 招聘活动的协作成员
// 归属通过所属活动传递，自身不携带 client 列
type ActivityMember struct {
	repository.BaseModel
	ActivityID int64 `json:"activity_id,string" gorm:"column:activity_id;index;comment:活动"`
	UserID     int64 `json:"user_id,string" gorm:"column:user_id;index;comment:用户"`
}

func (ActivityMember) TableName() string { return "activity_members" }

// Candidate 候选人
type Candidate struct {
	repository.BaseModel
	Name     string `json:"name" gorm:"column:name;size:255;comment:姓名"`
	Email    string `json:"email" gorm:"column:email;size:255;index;comment:邮箱"`
	SiteID   int64  `json:"site_id,string" gorm:"column:site_id;index;comment:站点归属"`
	ClientID int64  `json:"client_id,string" gorm:"column:client_id;index;comment:客户归属"`
}

func (Candidate) TableName() string { return "candidates" }

// Application 候选人对某次招聘活动的申请
// 归属通过所属活动传递
type Application struct {
	repository.BaseModel
	ActivityID  int64  `json:"activity_id,string" gorm:"column:activity_id;index;comment:活动"`
	CandidateID int64  `json:"candidate_id,string" gorm:"column:candidate_id;index;comment:候选人"`
	Stage       string `json:"stage" gorm:"column:stage;size:32;index;comment:阶段(new/screening/...)"`
}

func (Application) TableName() string { return "applications" }
