// Package authz holds the admin authorization model shared by the server,
// which derives it, and the client, which caches and displays it.
package authz

type Level int

const (
	LevelNone Level = iota
	LevelBasic
	LevelManager
	LevelSuper
)

func (l Level) String() string {
	switch l {
	case LevelBasic:
		return "basic-admin"
	case LevelManager:
		return "manager"
	case LevelSuper:
		return "super-admin"
	default:
		return "none"
	}
}

// Permissions is monotonic in level: a flag granted at level N is granted
// at every level above N.
type Permissions struct {
	CanViewOrders      bool `json:"canViewOrders"`
	CanUpdateOrders    bool `json:"canUpdateOrders"`
	CanViewCustomers   bool `json:"canViewCustomers"`
	CanManageItems     bool `json:"canManageItems"`
	CanAccessAnalytics bool `json:"canAccessAnalytics"`
	CanExportData      bool `json:"canExportData"`
	CanManageAdmins    bool `json:"canManageAdmins"`
	CanAccessLogs      bool `json:"canAccessLogs"`
}

func PermissionsFor(level Level) Permissions {
	return Permissions{
		CanViewOrders:      level >= LevelBasic,
		CanUpdateOrders:    level >= LevelBasic,
		CanViewCustomers:   level >= LevelManager,
		CanManageItems:     level >= LevelManager,
		CanAccessAnalytics: level >= LevelManager,
		CanExportData:      level >= LevelManager,
		CanManageAdmins:    level >= LevelSuper,
		CanAccessLogs:      level >= LevelSuper,
	}
}

// Authorization is the derived admin status of one account. It never
// carries the configured lists.
type Authorization struct {
	IsAdmin     bool        `json:"isAdmin"`
	AdminLevel  Level       `json:"adminLevel"`
	Permissions Permissions `json:"permissions"`
}

// For builds the authorization granted at level.
func For(level Level) Authorization {
	return Authorization{
		IsAdmin:     level > LevelNone,
		AdminLevel:  level,
		Permissions: PermissionsFor(level),
	}
}
