package api

import (
	"context"

	"txdb/internal/grep"
	"txdb/internal/query"
	"txdb/internal/transaction"
	"txdb/pkg/domain"
)

// Service 事务存储服务接口，target 为空时使用当前目标
type Service interface {
	// Count 统计指定范围内的事务数
	Count(ctx context.Context, scope bool, target domain.TargetID) (int64, error)

	// CountInScope 统计范围内事务数
	CountInScope(ctx context.Context, target domain.TargetID) (int64, error)

	// Exists 判断是否存在符合条件的事务
	Exists(ctx context.Context, c query.Criteria, target domain.TargetID) (bool, error)

	// GetFirst 返回第一条符合条件的事务
	GetFirst(ctx context.Context, c query.Criteria, target domain.TargetID) (*domain.Transaction, error)

	// GetAll 返回全部符合条件的事务
	GetAll(ctx context.Context, c query.Criteria, target domain.TargetID) ([]*domain.Transaction, error)

	// GetByID 按 id 获取事务
	GetByID(ctx context.Context, id uint, target domain.TargetID) (*domain.Transaction, error)

	// GetByIDs 批量获取事务
	GetByIDs(ctx context.Context, ids []uint, target domain.TargetID) ([]*domain.Transaction, error)

	// GetByIDAsRecord 以字段映射形式获取事务
	GetByIDAsRecord(ctx context.Context, id uint, target domain.TargetID) (domain.Record, error)

	// GetAllAsRecords 以字段映射形式返回事务列表
	GetAllAsRecords(ctx context.Context, c query.Criteria, target domain.TargetID, includeRaw bool) ([]domain.Record, error)

	// GetTopBySpeed 按耗时排序返回前 n 条
	GetTopBySpeed(ctx context.Context, order domain.SortOrder, n int, target domain.TargetID) ([]*domain.Transaction, error)

	// Ingest 写入事务并建立匹配索引
	Ingest(ctx context.Context, list []domain.HTTPTransaction, target domain.TargetID) ([]uint, error)

	// IngestByTarget 按目标分组写入
	IngestByTarget(ctx context.Context, batches map[domain.TargetID][]domain.HTTPTransaction) error

	// Delete 删除事务
	Delete(ctx context.Context, id uint, target domain.TargetID) error

	// SearchAll 分页查询
	SearchAll(ctx context.Context, c query.Criteria, target domain.TargetID, includeRaw bool) (*domain.SearchResult, error)

	// SearchByRuleName 查询单个规则的匹配结果
	SearchByRuleName(ctx context.Context, name string, stats bool, target domain.TargetID) (*domain.GrepResult, error)

	// SearchByRuleNames 批量查询规则匹配结果
	SearchByRuleNames(ctx context.Context, names []string, stats bool, target domain.TargetID) ([]domain.GrepResult, error)

	// SessionData 返回会话令牌负载
	SessionData(ctx context.Context, target domain.TargetID) ([]any, error)

	// SessionURLs 按会话令牌分组的 URL
	SessionURLs(ctx context.Context, target domain.TargetID) ([]domain.SessionURLGroup, error)

	// ReloadRules 重新编译匹配规则
	ReloadRules(p grep.Provider) error

	// Rules 当前规则名
	Rules() []string
}

// Options 服务依赖
type Options = transaction.Options

// NewService 创建并返回服务接口实现
func NewService(opts Options) (Service, error) {
	m, err := transaction.New(opts)
	if err != nil {
		return nil, err
	}
	return m, nil
}
