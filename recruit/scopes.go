package recruit

import (
	"github.com/signatur/rms-go-pkg/scope"
)

// RegisterScopes 把招聘域全部实体的行级过滤规则注册到 reg。
// 未注册的实体不受行级过滤影响（role_grants / role_assignments
// 由权限解析器按角色两段式过滤，不在此处注册）。
func RegisterScopes(reg *scope.Registry) {
	// 用户: 站点过滤; ClientID 为 NULL 的内部员工对站点内所有 client 可见
	reg.MustRegister(&User{}, scope.Rule{
		SiteColumn:   "site_id",
		ClientColumn: "client_id",
		SiteWide:     true,
	})

	// 角色: 站点级角色(ClientID NULL)对站点内所有 client 可见
	reg.MustRegister(&Role{}, scope.Rule{
		SiteColumn:   "site_id",
		ClientColumn: "client_id",
		SiteWide:     true,
	})

	reg.MustRegister(&WorkArea{}, scope.Rule{
		SiteColumn:   "site_id",
		ClientColumn: "client_id",
	})

	reg.MustRegister(&WorkAreaMember{}, scope.Rule{
		Parent: &scope.ParentRule{
			Table:        "work_areas",
			ForeignKey:   "work_area_id",
			ClientColumn: "client_id",
		},
	})

	reg.MustRegister(&Activity{}, scope.Rule{
		SiteColumn:   "site_id",
		ClientColumn: "client_id",
	})

	reg.MustRegister(&ActivityMember{}, scope.Rule{
		Parent: &scope.ParentRule{
			Table:        "activities",
			ForeignKey:   "activity_id",
			ClientColumn: "client_id",
		},
	})

	reg.MustRegister(&Candidate{}, scope.Rule{
		SiteColumn:   "site_id",
		ClientColumn: "client_id",
	})

	reg.MustRegister(&Application{}, scope.Rule{
		Parent: &scope.ParentRule{
			Table:        "activities",
			ForeignKey:   "activity_id",
			ClientColumn: "client_id",
		},
	})
}
