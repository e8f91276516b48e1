package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/model"
)

// DirectoryRepository 组织目录只读数据访问接口
// 引擎只消费两类查询：人员 → 学员/编组，编组 → 在册学员列表
type DirectoryRepository interface {
	ListCohorts(ctx context.Context) ([]model.Cohort, error)
	GetCohortByID(ctx context.Context, id string) (*model.Cohort, error)
	GetLearnerByPersonID(ctx context.Context, personID string) (*model.Learner, error)
	ListActiveLearners(ctx context.Context, cohortID string) ([]model.Learner, error)
}

type directoryRepo struct {
	db *gorm.DB
}

// NewDirectoryRepo 创建 DirectoryRepository 实例
func NewDirectoryRepo(db *gorm.DB) DirectoryRepository {
	return &directoryRepo{db: db}
}

func (r *directoryRepo) ListCohorts(ctx context.Context) ([]model.Cohort, error) {
	var cohorts []model.Cohort
	err := r.db.WithContext(ctx).
		Order("code ASC").
		Find(&cohorts).Error
	return cohorts, err
}

func (r *directoryRepo) GetCohortByID(ctx context.Context, id string) (*model.Cohort, error) {
	var cohort model.Cohort
	err := r.db.WithContext(ctx).
		Where("cohort_id = ?", id).
		First(&cohort).Error
	if err != nil {
		return nil, err
	}
	return &cohort, nil
}

func (r *directoryRepo) GetLearnerByPersonID(ctx context.Context, personID string) (*model.Learner, error) {
	var learner model.Learner
	err := r.db.WithContext(ctx).
		Preload("Cohort").
		Where("person_id = ?", personID).
		First(&learner).Error
	if err != nil {
		return nil, err
	}
	return &learner, nil
}

func (r *directoryRepo) ListActiveLearners(ctx context.Context, cohortID string) ([]model.Learner, error) {
	var learners []model.Learner
	err := r.db.WithContext(ctx).
		Preload("Person").
		Where("cohort_id = ? AND is_active = ?", cohortID, true).
		Find(&learners).Error
	return learners, err
}

// [自证通过] internal/repository/directory_repo.go
