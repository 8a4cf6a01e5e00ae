package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Filter 筛选器接口
type Filter interface {
	Apply(db *gorm.DB) *gorm.DB
}

// Pagination 分页参数，非正值表示不限制
type Pagination struct {
	Offset int
	Limit  int
}

// Apply 应用分页
func (p *Pagination) Apply(db *gorm.DB) *gorm.DB {
	if p.Offset > 0 {
		db = db.Offset(p.Offset)
	}
	if p.Limit > 0 {
		db = db.Limit(p.Limit)
	}
	return db
}

// Order 排序参数
type Order struct {
	Field string
	Sort  string
}

// Orders 排序参数切片
type Orders []Order

// TxConfigurer 事务配置接口
type TxConfigurer interface {
	SetTx(tx *gorm.DB)
	GetTx() *gorm.DB
}

// TxConfig 事务配置
type TxConfig struct {
	tx *gorm.DB
}

// SetTx 设置事务
func (c *TxConfig) SetTx(tx *gorm.DB) {
	c.tx = tx
}

// GetTx 获取事务
func (c *TxConfig) GetTx() *gorm.DB {
	return c.tx
}

// WithTx 添加事务
func WithTx[T TxConfigurer](tx *gorm.DB) func(T) {
	return func(c T) {
		c.SetTx(tx)
	}
}

// QueryOption 查询选项
type QueryOption func(*QueryConfig)

// ScopeFunc 筛选作用域方法
type ScopeFunc func(*gorm.DB) *gorm.DB

// QueryConfig 查询配置
type QueryConfig struct {
	TxConfig
	scopes []ScopeFunc
}

// WithScopes 添加筛选
func WithScopes(scopes ...ScopeFunc) QueryOption {
	return func(c *QueryConfig) {
		c.scopes = scopes
	}
}

// CreateOption 创建选项
type CreateOption func(*CreateConfig)

// CreateConfig 创建配置
type CreateConfig struct {
	TxConfig
}

// DeleteOption 删除选项
type DeleteOption func(*DeleteConfig)

// DeleteConfig 删除配置
type DeleteConfig struct {
	TxConfig
}

// BaseRepository 基础DAO层
type BaseRepository[T any] struct {
	Db *gorm.DB
}

// NewBaseRepository 创建基础DAO层
func NewBaseRepository[T any](db *gorm.DB) *BaseRepository[T] {
	return &BaseRepository[T]{
		Db: db,
	}
}

// CreateBatch 批量创建记录
func (r *BaseRepository[T]) CreateBatch(ctx context.Context, item []*T, opts ...CreateOption) error {
	if len(item) == 0 {
		return nil
	}
	cfg := &CreateConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return r.getDb(cfg).WithContext(ctx).CreateInBatches(item, 100).Error
}

// Delete 按主键或筛选器删除记录，返回删除的行数
func (r *BaseRepository[T]) Delete(ctx context.Context, id any, opts ...DeleteOption) (int64, error) {
	cfg := &DeleteConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	query := r.getDb(cfg).WithContext(ctx)

	var res *gorm.DB
	if filter, ok := id.(Filter); ok {
		res = filter.Apply(query).Delete(new(T))
	} else {
		res = query.Delete(new(T), id)
	}
	return res.RowsAffected, res.Error
}

// FindOne 根据主键或筛选器查询首条记录，不存在时返回 nil
func (r *BaseRepository[T]) FindOne(ctx context.Context, id any, opts ...QueryOption) (*T, error) {
	item := new(T)
	query := r.buildQuery(ctx, opts...)
	var err error

	if filter, ok := id.(Filter); ok {
		err = filter.Apply(query).First(item).Error
	} else {
		err = query.First(item, id).Error
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// FindAll 查询所有记录
func (r *BaseRepository[T]) FindAll(ctx context.Context, filter Filter, pagination *Pagination, orders Orders, opts ...QueryOption) ([]*T, error) {
	list := make([]*T, 0)
	query := r.buildQuery(ctx, opts...).Model(new(T))

	if filter != nil {
		query = filter.Apply(query)
	}

	if pagination != nil {
		query = pagination.Apply(query)
	}

	for _, order := range orders {
		query = query.Order(order.Field + " " + order.Sort)
	}

	if err := query.Find(&list).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return list, nil
}

// Count 统计记录数量
func (r *BaseRepository[T]) Count(ctx context.Context, filter Filter, opts ...QueryOption) (int64, error) {
	var count int64
	query := r.buildQuery(ctx, opts...).Model(new(T))

	if filter != nil {
		query = filter.Apply(query)
	}

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// TableName 返回模型在当前命名策略下的物理表名
func (r *BaseRepository[T]) TableName() string {
	return tableName(r.Db, new(T))
}

func tableName(db *gorm.DB, value any) string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(value); err != nil {
		return ""
	}
	return stmt.Schema.Table
}

// buildQuery 构建查询
func (r *BaseRepository[T]) buildQuery(ctx context.Context, opts ...QueryOption) *gorm.DB {
	cfg := &QueryConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	query := r.getDb(cfg).WithContext(ctx)

	for _, scopeFunc := range cfg.scopes {
		if scopeFunc != nil {
			query = query.Scopes(scopeFunc)
		}
	}

	return query
}

// getDb 获取数据库连接
func (r *BaseRepository[T]) getDb(cfg TxConfigurer) *gorm.DB {
	if cfg != nil {
		if tx := cfg.GetTx(); tx != nil {
			return tx
		}
	}
	return r.Db
}
