// Package transaction 提供按目标分区的事务存储与匹配索引门面
package transaction

import (
	"context"
	"fmt"
	"sync"

	"txdb/internal/grep"
	"txdb/internal/logger"
	"txdb/internal/query"
	"txdb/internal/storage/repo"
	"txdb/internal/storage/target"
	"txdb/pkg/domain"
	"txdb/pkg/errx"

	"gorm.io/gorm"
)

// URLTracker 接收已处理 URL 的外部组件
type URLTracker interface {
	ImportProcessedURLs(ctx context.Context, target domain.TargetID, urls []domain.URLImport) error
}

// Recorder 录制入库事务的外部组件
type Recorder interface {
	IsRecording() bool
	AddRecorded(items []domain.RecordedTransaction)
}

// Options 管理器依赖
type Options struct {
	Registry *target.Registry
	Compiler *grep.Compiler
	// URLTracker 为空时使用目标分区内的 URL 表
	URLTracker URLTracker
	Recorder   Recorder
	Logger     logger.Logger
}

// Manager 事务存储门面
type Manager struct {
	registry *target.Registry
	compiler *grep.Compiler
	urls     URLTracker
	recorder Recorder
	log      logger.Logger

	locks sync.Map // domain.TargetID -> *sync.Mutex
}

// New 创建管理器
func New(opts Options) (*Manager, error) {
	if opts.Registry == nil {
		return nil, domain.ErrDatabaseNotInitialized
	}
	if opts.Compiler == nil {
		return nil, errx.Wrap(errx.CodeInvalidRuleConfig, domain.ErrInvalidRuleConfig, "规则未编译")
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	m := &Manager{
		registry: opts.Registry,
		compiler: opts.Compiler,
		urls:     opts.URLTracker,
		recorder: opts.Recorder,
		log:      opts.Logger.With("component", "transaction"),
	}
	if m.urls == nil {
		m.urls = &partitionURLs{registry: opts.Registry}
	}
	return m, nil
}

func (m *Manager) lock(id domain.TargetID) *sync.Mutex {
	mu, _ := m.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (m *Manager) transactions(ctx context.Context, id domain.TargetID) (*repo.TransactionRepo, domain.TargetID, func(), error) {
	gdb, id, release, err := m.registry.Open(ctx, id)
	if err != nil {
		return nil, id, nil, err
	}
	return repo.NewTransactionRepo(gdb), id, release, nil
}

// Count 统计指定范围内的事务数
func (m *Manager) Count(ctx context.Context, scope bool, id domain.TargetID) (int64, error) {
	r, _, release, err := m.transactions(ctx, id)
	if err != nil {
		return 0, err
	}
	defer release()
	return r.CountScope(ctx, scope)
}

// CountInScope 统计范围内事务数
func (m *Manager) CountInScope(ctx context.Context, id domain.TargetID) (int64, error) {
	return m.Count(ctx, true, id)
}

// Exists 判断是否存在符合条件（过滤模式）的事务
func (m *Manager) Exists(ctx context.Context, c query.Criteria, id domain.TargetID) (bool, error) {
	c.Mode = query.ModeFilter
	t, err := m.GetFirst(ctx, c, id)
	return t != nil, err
}

// GetFirst 返回符合条件的第一条事务，不存在时返回 nil
func (m *Manager) GetFirst(ctx context.Context, c query.Criteria, id domain.TargetID) (*domain.Transaction, error) {
	r, _, release, err := m.transactions(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()
	rec, err := r.First(ctx, c)
	if err != nil || rec == nil {
		return nil, err
	}
	return toDomain(rec)
}

// GetAll 返回符合条件的全部事务
func (m *Manager) GetAll(ctx context.Context, c query.Criteria, id domain.TargetID) ([]*domain.Transaction, error) {
	r, _, release, err := m.transactions(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()
	list, err := r.Find(ctx, c)
	if err != nil {
		return nil, err
	}
	return toDomainList(list)
}

// GetByID 按 id 获取事务，不存在时返回 nil
func (m *Manager) GetByID(ctx context.Context, txID uint, id domain.TargetID) (*domain.Transaction, error) {
	r, _, release, err := m.transactions(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()
	rec, err := r.FindOne(ctx, txID)
	if err != nil || rec == nil {
		return nil, err
	}
	return toDomain(rec)
}

// GetByIDs 批量获取事务，无法解析的 id 被忽略
func (m *Manager) GetByIDs(ctx context.Context, ids []uint, id domain.TargetID) ([]*domain.Transaction, error) {
	r, _, release, err := m.transactions(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()
	list, err := r.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return toDomainList(list)
}

// GetByIDAsRecord 以字段映射形式返回事务（包含原始数据）
func (m *Manager) GetByIDAsRecord(ctx context.Context, txID uint, id domain.TargetID) (domain.Record, error) {
	r, id, release, err := m.transactions(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()
	rec, err := r.FindOne(ctx, txID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, notFound(txID, id)
	}
	return toRecord(rec, true)
}

// GetAllAsRecords 以字段映射形式返回符合条件的事务
func (m *Manager) GetAllAsRecords(ctx context.Context, c query.Criteria, id domain.TargetID, includeRaw bool) ([]domain.Record, error) {
	r, _, release, err := m.transactions(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()
	list, err := r.Find(ctx, c)
	if err != nil {
		return nil, err
	}
	return toRecords(list, includeRaw)
}

// GetTopBySpeed 按耗时排序返回前 n 条事务
func (m *Manager) GetTopBySpeed(ctx context.Context, order domain.SortOrder, n int, id domain.TargetID) ([]*domain.Transaction, error) {
	r, _, release, err := m.transactions(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()
	list, err := r.TopBySpeed(ctx, order, n)
	if err != nil {
		return nil, err
	}
	return toDomainList(list)
}

// Delete 删除事务及其匹配关联
func (m *Manager) Delete(ctx context.Context, txID uint, id domain.TargetID) error {
	r, id, release, err := m.transactions(ctx, id)
	if err != nil {
		return err
	}
	defer release()
	ok, err := r.DeleteWithLinks(ctx, txID)
	if err != nil {
		return err
	}
	if !ok {
		return notFound(txID, id)
	}
	m.log.Debug("删除事务", "target", id, "id", txID)
	return nil
}

// SearchAll 分页查询，返回总数、过滤后总数与当前页
func (m *Manager) SearchAll(ctx context.Context, c query.Criteria, id domain.TargetID, includeRaw bool) (*domain.SearchResult, error) {
	gdb, _, release, err := m.registry.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()
	res := &domain.SearchResult{}
	err = gdb.Transaction(func(tx *gorm.DB) error {
		r := repo.NewTransactionRepo(tx)
		var err error
		if res.RecordsTotal, err = r.Count(ctx, nil); err != nil {
			return err
		}
		if res.RecordsFiltered, err = r.CountMatching(ctx, c); err != nil {
			return err
		}
		list, err := r.Find(ctx, c)
		if err != nil {
			return err
		}
		res.Data, err = toRecords(list, includeRaw)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// SearchByRuleName 查询单个规则的匹配结果
func (m *Manager) SearchByRuleName(ctx context.Context, name string, stats bool, id domain.TargetID) (*domain.GrepResult, error) {
	results, err := m.SearchByRuleNames(ctx, []string{name}, stats, id)
	if err != nil {
		return nil, err
	}
	return &results[0], nil
}

// SearchByRuleNames 批量查询规则匹配结果，所有查询共享一个读事务
func (m *Manager) SearchByRuleNames(ctx context.Context, names []string, stats bool, id domain.TargetID) ([]domain.GrepResult, error) {
	gdb, _, release, err := m.registry.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()
	var out []domain.GrepResult
	err = gdb.Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = repo.NewGrepRepo(gdb).SearchByNames(ctx, names, stats, repo.WithTx[*repo.QueryConfig](tx))
		return err
	})
	return out, err
}

// ReloadRules 重新编译规则，失败时保留当前规则
func (m *Manager) ReloadRules(p grep.Provider) error {
	return m.compiler.Reload(p)
}

// Rules 返回当前生效的规则名
func (m *Manager) Rules() []string {
	return m.compiler.Rules().Names()
}

func notFound(txID uint, id domain.TargetID) error {
	return errx.Wrap(errx.CodeTransactionNotFound, domain.ErrTransactionNotFound,
		fmt.Sprintf("no transaction with %d exists for target with id %s", txID, id))
}
