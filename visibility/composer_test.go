package visibility

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/signatur/rms-go-pkg/permission"
	"github.com/signatur/rms-go-pkg/scope"
)

const (
	permViewAll      int64 = 1
	permEditAll      int64 = 2
	permViewWorkArea int64 = 3
	permEditWorkArea int64 = 4
)

type visActivity struct {
	ID            int64  `gorm:"column:id;primaryKey"`
	ClientID      int64  `gorm:"column:client_id"`
	AuthorID      int64  `gorm:"column:author_id"`
	ResponsibleID int64  `gorm:"column:responsible_id"`
	WorkAreaID    *int64 `gorm:"column:work_area_id"`
	Title         string `gorm:"column:title"`
}

func (visActivity) TableName() string { return "vis_activities" }

type visActivityMember struct {
	ID         int64 `gorm:"column:id;primaryKey"`
	ActivityID int64 `gorm:"column:activity_id"`
	UserID     int64 `gorm:"column:user_id"`
}

func (visActivityMember) TableName() string { return "vis_activity_members" }

type visWorkAreaMember struct {
	ID         int64 `gorm:"column:id;primaryKey"`
	UserID     int64 `gorm:"column:user_id"`
	WorkAreaID int64 `gorm:"column:work_area_id"`
}

func (visWorkAreaMember) TableName() string { return "vis_work_area_members" }

var visTarget = Target{
	Table:             "vis_activities",
	AuthorColumn:      "author_id",
	ResponsibleColumn: "responsible_id",
	MemberTable:       "vis_activity_members",
	MemberForeignKey:  "activity_id",
	MemberUserColumn:  "user_id",
	WorkAreaColumn:    "work_area_id",
	ViewAll:           permViewAll,
	EditAll:           permEditAll,
	ViewWorkArea:      permViewWorkArea,
	EditWorkArea:      permEditWorkArea,
}

func visConfig() Config {
	return Config{
		WorkAreaMemberTable: "vis_work_area_members",
		UserColumn:          "user_id",
		GroupColumn:         "work_area_id",
	}
}

// 固定数据（主体 7，归属 client 10）:
//   A1 作者 7
//   A2 负责人 7
//   A3 成员 7
//   A4 工作域 50（7 属于 50）
//   A5 工作域 60（与 7 无关）
//   A6 无工作域（未认领）
func openVisDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&visActivity{}, &visActivityMember{}, &visWorkAreaMember{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	wa50, wa60 := int64(50), int64(60)
	rows := []visActivity{
		{ID: 1, ClientID: 10, AuthorID: 7, ResponsibleID: 8, Title: "authored"},
		{ID: 2, ClientID: 10, AuthorID: 8, ResponsibleID: 7, Title: "responsible"},
		{ID: 3, ClientID: 10, AuthorID: 8, ResponsibleID: 8, Title: "member"},
		{ID: 4, ClientID: 10, AuthorID: 8, ResponsibleID: 8, WorkAreaID: &wa50, Title: "own work area"},
		{ID: 5, ClientID: 10, AuthorID: 8, ResponsibleID: 8, WorkAreaID: &wa60, Title: "foreign work area"},
		{ID: 6, ClientID: 10, AuthorID: 8, ResponsibleID: 8, Title: "unclaimed"},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("seed activities: %v", err)
	}
	if err := db.Create(&visActivityMember{ID: 1, ActivityID: 3, UserID: 7}).Error; err != nil {
		t.Fatalf("seed member: %v", err)
	}
	if err := db.Create(&visWorkAreaMember{ID: 1, UserID: 7, WorkAreaID: 50}).Error; err != nil {
		t.Fatalf("seed work area: %v", err)
	}
	return db
}

func clientPrincipal(id int64) scope.Principal {
	home := int64(10)
	return scope.Principal{ID: id, ClientID: &home}
}

func visibleIDs(t *testing.T, db *gorm.DB, p scope.Principal, perms permission.Set) []int64 {
	t.Helper()
	sc, err := NewComposer(db, visConfig()).Scope(context.Background(), visTarget, p, perms)
	if err != nil {
		t.Fatalf("scope: %v", err)
	}
	var ids []int64
	if err := db.Model(&visActivity{}).Scopes(sc).Order("id").Pluck("vis_activities.id", &ids).Error; err != nil {
		t.Fatalf("query: %v", err)
	}
	return ids
}

func sameIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TestTierFullAccess 第 1 层: view-all 不加谓词；edit-all 隐含 view-all
func TestTierFullAccess(t *testing.T) {
	db := openVisDB(t)
	p := clientPrincipal(7)

	if got := visibleIDs(t, db, p, permission.NewSet(permViewAll)); !sameIDs(got, []int64{1, 2, 3, 4, 5, 6}) {
		t.Fatalf("view-all: %v", got)
	}
	if got := visibleIDs(t, db, p, permission.NewSet(permEditAll)); !sameIDs(got, []int64{1, 2, 3, 4, 5, 6}) {
		t.Fatalf("edit-all should imply view-all: %v", got)
	}
}

// TestTierWorkArea 第 2 层: 成员 OR 未认领 OR 本人工作域
func TestTierWorkArea(t *testing.T) {
	db := openVisDB(t)
	p := clientPrincipal(7)

	got := visibleIDs(t, db, p, permission.NewSet(permViewWorkArea))
	if !sameIDs(got, []int64{1, 2, 3, 4, 6}) {
		t.Fatalf("work-area tier: %v", got)
	}
}

// TestTierWorkAreaUnclaimedEdge 未认领的行对持有工作域权限的任何人可见，
// 与其自身工作域成员关系无关（有意为之: 未认领的记录必须保持可发现）
func TestTierWorkAreaUnclaimedEdge(t *testing.T) {
	db := openVisDB(t)
	p := clientPrincipal(9) // 无任何成员身份、无工作域

	got := visibleIDs(t, db, p, permission.NewSet(permViewWorkArea))
	if !sameIDs(got, []int64{6}) {
		t.Fatalf("expected only unclaimed row, got %v", got)
	}
}

// TestTierMembershipOnly 第 3 层: 成员 / 作者 / 负责人
func TestTierMembershipOnly(t *testing.T) {
	db := openVisDB(t)
	p := clientPrincipal(7)

	got := visibleIDs(t, db, p, permission.NewSet())
	if !sameIDs(got, []int64{1, 2, 3}) {
		t.Fatalf("membership tier: %v", got)
	}
}

// TestInternalStaffSkipsWorkAreaTier 内部员工不适用第 2 层，落到默认层
func TestInternalStaffSkipsWorkAreaTier(t *testing.T) {
	db := openVisDB(t)
	p := scope.Principal{ID: 7, Internal: true}

	got := visibleIDs(t, db, p, permission.NewSet(permViewWorkArea))
	if !sameIDs(got, []int64{1, 2, 3}) {
		t.Fatalf("internal staff should fall through to membership tier: %v", got)
	}
}

// TestUnresolvedPrincipalFailsClosed 未解析主体 + 空权限 = 空结果集
func TestUnresolvedPrincipalFailsClosed(t *testing.T) {
	db := openVisDB(t)

	got := visibleIDs(t, db, scope.Principal{}, permission.NewSet())
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

// TestTierMonotonicity 层级单调性: 第 3 层 ⊆ 第 2 层 ⊆ 第 1 层
func TestTierMonotonicity(t *testing.T) {
	db := openVisDB(t)
	p := clientPrincipal(7)

	tier1 := visibleIDs(t, db, p, permission.NewSet(permViewAll))
	tier2 := visibleIDs(t, db, p, permission.NewSet(permViewWorkArea))
	tier3 := visibleIDs(t, db, p, permission.NewSet())

	subset := func(small, big []int64) bool {
		set := make(map[int64]struct{}, len(big))
		for _, id := range big {
			set[id] = struct{}{}
		}
		for _, id := range small {
			if _, ok := set[id]; !ok {
				return false
			}
		}
		return true
	}
	if !subset(tier3, tier2) {
		t.Fatalf("tier3 %v not subset of tier2 %v", tier3, tier2)
	}
	if !subset(tier2, tier1) {
		t.Fatalf("tier2 %v not subset of tier1 %v", tier2, tier1)
	}
}
