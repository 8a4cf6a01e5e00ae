package repo

import (
	"context"

	"txdb/internal/query"
	"txdb/internal/storage/model"
	"txdb/pkg/domain"

	"gorm.io/gorm"
)

// TransactionRepo 事务仓库
type TransactionRepo struct {
	BaseRepository[model.Transaction]
}

// NewTransactionRepo 创建事务仓库实例
func NewTransactionRepo(db *gorm.DB) *TransactionRepo {
	return &TransactionRepo{
		BaseRepository: *NewBaseRepository[model.Transaction](db),
	}
}

var byID = Orders{{Field: "id", Sort: "ASC"}}

// Find 按条件查询，结果按插入顺序排列
func (r *TransactionRepo) Find(ctx context.Context, c query.Criteria, opts ...QueryOption) ([]*model.Transaction, error) {
	return r.FindAll(ctx, nil, nil, byID, append(opts, WithScopes(c.Scoped(false)))...)
}

// First 返回符合条件的第一条记录，不存在时返回 nil
func (r *TransactionRepo) First(ctx context.Context, c query.Criteria, opts ...QueryOption) (*model.Transaction, error) {
	c.Limit = query.Int(1)
	list, err := r.Find(ctx, c, opts...)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

// CountMatching 统计符合条件（忽略分页）的记录数
func (r *TransactionRepo) CountMatching(ctx context.Context, c query.Criteria, opts ...QueryOption) (int64, error) {
	return r.Count(ctx, nil, append(opts, WithScopes(c.Scoped(true)))...)
}

// CountScope 统计指定范围内的记录数
func (r *TransactionRepo) CountScope(ctx context.Context, scope bool, opts ...QueryOption) (int64, error) {
	return r.CountMatching(ctx, query.Criteria{Scope: &scope}, opts...)
}

// FindByIDs 批量按主键查询，无法解析的 id 被忽略，结果保持入参顺序
func (r *TransactionRepo) FindByIDs(ctx context.Context, ids []uint, opts ...QueryOption) ([]*model.Transaction, error) {
	if len(ids) == 0 {
		return []*model.Transaction{}, nil
	}
	list, err := r.FindAll(ctx, nil, nil, nil, append(opts, WithScopes(func(db *gorm.DB) *gorm.DB {
		return db.Where("id IN ?", ids)
	}))...)
	if err != nil {
		return nil, err
	}
	found := make(map[uint]*model.Transaction, len(list))
	for _, t := range list {
		found[t.ID] = t
	}
	out := make([]*model.Transaction, 0, len(list))
	for _, id := range ids {
		if t, ok := found[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// TopBySpeed 按耗时排序返回前 n 条，Desc 为最慢优先
func (r *TransactionRepo) TopBySpeed(ctx context.Context, order domain.SortOrder, n int, opts ...QueryOption) ([]*model.Transaction, error) {
	sort := "ASC"
	if order == domain.SortDesc {
		sort = "DESC"
	}
	return r.FindAll(ctx, nil, &Pagination{Limit: n}, Orders{{Field: "time", Sort: sort}, {Field: "id", Sort: "ASC"}}, opts...)
}

// linksOf 筛选某个事务的匹配关联
type linksOf uint

func (f linksOf) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("transaction_id = ?", uint(f))
}

// DeleteWithLinks 删除事务及其匹配关联，匹配结果本身保留
func (r *TransactionRepo) DeleteWithLinks(ctx context.Context, id uint) (bool, error) {
	var deleted bool
	err := r.Db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		links := NewBaseRepository[model.TransactionGrepOutput](tx)
		if _, err := links.Delete(ctx, linksOf(id)); err != nil {
			return err
		}
		n, err := r.Delete(ctx, id, WithTx[*DeleteConfig](tx))
		if err != nil {
			return err
		}
		deleted = n > 0
		return nil
	})
	return deleted, err
}

// SessionTokenRow 会话令牌查询行
type SessionTokenRow struct {
	URL           string
	SessionTokens string
}

// SessionTokens 返回所有非空会话令牌及其 URL，按插入顺序
func (r *TransactionRepo) SessionTokens(ctx context.Context, opts ...QueryOption) ([]SessionTokenRow, error) {
	var rows []SessionTokenRow
	err := r.buildQuery(ctx, opts...).Model(&model.Transaction{}).
		Select("url", "session_tokens").
		Where("session_tokens IS NOT NULL").
		Order("id ASC").
		Scan(&rows).Error
	return rows, err
}
