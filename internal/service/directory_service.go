package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/dto"
	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/model"
	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/repository"
)

// DirectoryService 学员目录只读接口
// 目录数据由院校管理系统同步导入，本服务不提供写入口
type DirectoryService interface {
	ListCohorts(ctx context.Context) ([]dto.CohortResponse, error)
	ListLearners(ctx context.Context, cohortID string) ([]dto.LearnerResponse, error)
}

type directoryService struct {
	repo *repository.Repository
}

// NewDirectoryService 创建 DirectoryService 实例
func NewDirectoryService(repo *repository.Repository) DirectoryService {
	return &directoryService{repo: repo}
}

func (s *directoryService) ListCohorts(ctx context.Context) ([]dto.CohortResponse, error) {
	cohorts, err := s.repo.Directory.ListCohorts(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]dto.CohortResponse, 0, len(cohorts))
	for i := range cohorts {
		items = append(items, dto.CohortResponse{
			ID:          cohorts[i].CohortID,
			Code:        cohorts[i].Code,
			ProgramName: cohorts[i].ProgramName,
			IsActive:    cohorts[i].IsActive,
		})
	}
	return items, nil
}

func (s *directoryService) ListLearners(ctx context.Context, cohortID string) ([]dto.LearnerResponse, error) {
	if _, err := s.repo.Directory.GetCohortByID(ctx, cohortID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCohortNotFound
		}
		return nil, err
	}
	learners, err := s.repo.Directory.ListActiveLearners(ctx, cohortID)
	if err != nil {
		return nil, err
	}
	items := make([]dto.LearnerResponse, 0, len(learners))
	for i := range learners {
		items = append(items, *toLearnerResponse(&learners[i]))
	}
	return items, nil
}

func toLearnerResponse(learner *model.Learner) *dto.LearnerResponse {
	resp := &dto.LearnerResponse{
		ID:       learner.LearnerID,
		CohortID: learner.CohortID,
		IsActive: learner.IsActive,
	}
	if learner.Person != nil {
		resp.Person = &dto.PersonBrief{
			ID:        learner.Person.UserID,
			FirstName: learner.Person.FirstName,
			LastName:  learner.Person.LastName,
		}
	}
	return resp
}
