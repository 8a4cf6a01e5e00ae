package repo

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"txdb/internal/grep"
	"txdb/internal/storage/model"
	"txdb/pkg/domain"

	"github.com/RoaringBitmap/roaring/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GrepRepo 匹配索引仓库
type GrepRepo struct {
	BaseRepository[model.GrepOutput]
}

// NewGrepRepo 创建匹配索引仓库实例
func NewGrepRepo(db *gorm.DB) *GrepRepo {
	return &GrepRepo{
		BaseRepository: *NewBaseRepository[model.GrepOutput](db),
	}
}

// Index 记录一个事务的扫描结果
//
// 同名规则下相同输出只保存一份，重复关联被忽略，可重复执行。
func (r *GrepRepo) Index(ctx context.Context, transactionID uint, results map[string][]grep.Match, opts ...CreateOption) error {
	cfg := &CreateConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	db := r.getDb(cfg).WithContext(ctx)

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, m := range results[name] {
			output, err := json.Marshal(m)
			if err != nil {
				return err
			}
			id, err := r.ensureOutput(db, name, string(output))
			if err != nil {
				return err
			}
			link := model.TransactionGrepOutput{TransactionID: transactionID, GrepOutputID: id}
			if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *GrepRepo) ensureOutput(db *gorm.DB, name, output string) (uint, error) {
	var rec model.GrepOutput
	err := db.Where("name = ? AND output = ?", name, output).Take(&rec).Error
	if err == nil {
		return rec.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	rec = model.GrepOutput{Name: name, Output: output}
	if err := db.Create(&rec).Error; err != nil {
		return 0, err
	}
	return rec.ID, nil
}

// SearchByName 查询单个规则的匹配结果
func (r *GrepRepo) SearchByName(ctx context.Context, name string, stats bool, opts ...QueryOption) (*domain.GrepResult, error) {
	results, err := r.SearchByNames(ctx, []string{name}, stats, opts...)
	if err != nil {
		return nil, err
	}
	return &results[0], nil
}

// SearchByNames 批量查询规则匹配结果，结果顺序与入参一致
//
// 所有查询共用同一个连接或调用方传入的事务，范围内事务集合只加载一次。
func (r *GrepRepo) SearchByNames(ctx context.Context, names []string, stats bool, opts ...QueryOption) ([]domain.GrepResult, error) {
	db := r.buildQuery(ctx, opts...)

	var inScope *roaring.Bitmap
	if stats {
		var err error
		if inScope, err = r.inScope(db); err != nil {
			return nil, err
		}
	}

	out := make([]domain.GrepResult, 0, len(names))
	for _, name := range names {
		res, err := r.lookup(db, name, inScope)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

type outputRow struct {
	Output        string
	TransactionID uint
}

func (r *GrepRepo) lookup(db *gorm.DB, name string, inScope *roaring.Bitmap) (domain.GrepResult, error) {
	res := domain.GrepResult{Name: name, Outputs: []any{}, TransactionIDs: []uint{}}
	outputs := r.TableName()
	links := tableName(db, &model.TransactionGrepOutput{})

	var rows []outputRow
	err := db.Table(outputs+" AS g").
		Select("g.output AS output, MIN(l.transaction_id) AS transaction_id").
		Joins("JOIN "+links+" AS l ON l.grep_output_id = g.id").
		Where("g.name = ?", name).
		Group("g.id").
		Order("g.id ASC").
		Scan(&rows).Error
	if err != nil {
		return res, err
	}
	for _, row := range rows {
		var v any
		if err := json.Unmarshal([]byte(row.Output), &v); err != nil {
			return res, err
		}
		res.Outputs = append(res.Outputs, v)
		res.TransactionIDs = append(res.TransactionIDs, row.TransactionID)
	}

	if inScope == nil {
		return res, nil
	}

	var ids []uint32
	err = db.Table(links+" AS l").
		Joins("JOIN "+outputs+" AS g ON g.id = l.grep_output_id").
		Where("g.name = ?", name).
		Pluck("l.transaction_id", &ids).Error
	if err != nil {
		return res, err
	}
	percent := 0
	if total := inScope.GetCardinality(); total > 0 {
		matched := roaring.And(roaring.BitmapOf(ids...), inScope).GetCardinality()
		percent = int(matched * 100 / total)
	}
	res.MatchPercent = &percent
	return res, nil
}

func (r *GrepRepo) inScope(db *gorm.DB) (*roaring.Bitmap, error) {
	var ids []uint32
	if err := db.Model(&model.Transaction{}).Where("scope = ?", true).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return roaring.BitmapOf(ids...), nil
}
