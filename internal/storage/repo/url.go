package repo

import (
	"context"
	"time"

	"txdb/internal/storage/model"
	"txdb/pkg/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// URLRepo 已处理 URL 仓库
type URLRepo struct {
	BaseRepository[model.URL]
}

// NewURLRepo 创建 URL 仓库实例
func NewURLRepo(db *gorm.DB) *URLRepo {
	return &URLRepo{
		BaseRepository: *NewBaseRepository[model.URL](db),
	}
}

// Import 批量登记 URL（存在则更新，不存在则创建）
func (r *URLRepo) Import(ctx context.Context, urls []domain.URLImport) error {
	if len(urls) == 0 {
		return nil
	}
	return r.Db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, u := range urls {
			rec := model.URL{
				URL:       u.URL,
				Visited:   u.Imported,
				Scope:     u.InScope,
				CreatedAt: now,
				UpdatedAt: now,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "url"}},
				DoUpdates: clause.AssignmentColumns([]string{"visited", "scope", "updated_at"}),
			}).Create(&rec).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Get 获取单个 URL 记录，不存在时返回 nil
func (r *URLRepo) Get(ctx context.Context, url string) (*model.URL, error) {
	return r.FindOne(ctx, urlFilter(url))
}

// List 按范围列出 URL
func (r *URLRepo) List(ctx context.Context, scope bool) ([]*model.URL, error) {
	return r.FindAll(ctx, nil, nil, Orders{{Field: "url", Sort: "ASC"}}, WithScopes(func(db *gorm.DB) *gorm.DB {
		return db.Where("scope = ?", scope)
	}))
}

type urlFilter string

func (f urlFilter) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("url = ?", string(f))
}
