// Package target 管理按评估目标划分的数据库分区
package target

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"txdb/internal/logger"
	"txdb/internal/storage/db"
	"txdb/internal/storage/model"
	"txdb/pkg/domain"
	"txdb/pkg/errx"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

var validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// Options 注册表配置
type Options struct {
	// Dir 分区文件目录，为空时使用平台默认目录
	Dir string
	// Prefix 表前缀
	Prefix string
	// Default 初始当前目标
	Default domain.TargetID
	// CacheSize 同时打开的分区上限
	CacheSize int
	// InMemory 每个分区使用独立内存库，用于测试
	InMemory bool
	Logger   logger.Logger
}

// partition 已打开的分区及其引用计数
type partition struct {
	db      *gorm.DB
	refs    int
	evicted bool
	closed  bool
}

// Registry 目标分区注册表
//
// 分区被 LRU 淘汰后，仍有调用方持有时延迟到最后一次释放再关闭。
type Registry struct {
	opts  Options
	log   logger.Logger
	cache *lru.Cache[domain.TargetID, *partition]
	group singleflight.Group

	mu      sync.RWMutex
	current domain.TargetID

	refMu     sync.Mutex
	closeErrs []error
}

// New 创建注册表
func New(opts Options) (*Registry, error) {
	if opts.Default == "" {
		opts.Default = "default"
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 16
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if err := Validate(opts.Default); err != nil {
		return nil, err
	}

	r := &Registry{
		opts:    opts,
		log:     opts.Logger.With("component", "target"),
		current: opts.Default,
	}
	cache, err := lru.NewWithEvict(opts.CacheSize, r.evict)
	if err != nil {
		return nil, err
	}
	r.cache = cache
	return r, nil
}

// Validate 校验目标标识
func Validate(id domain.TargetID) error {
	if !validID.MatchString(string(id)) {
		return errx.Wrap(errx.CodeInvalidParameter, domain.ErrInvalidParameterType, fmt.Sprintf("target: %q", id))
	}
	return nil
}

// Current 返回当前目标
func (r *Registry) Current() domain.TargetID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// SetCurrent 切换当前目标
func (r *Registry) SetCurrent(id domain.TargetID) error {
	if err := Validate(id); err != nil {
		return err
	}
	r.mu.Lock()
	r.current = id
	r.mu.Unlock()
	return nil
}

// Resolve 空目标解析为当前目标
func (r *Registry) Resolve(id domain.TargetID) domain.TargetID {
	if id == "" {
		return r.Current()
	}
	return id
}

// Open 返回目标分区的连接，首次访问时创建并迁移
//
// 调用方使用完毕后必须调用 release，之前连接不会被关闭。
func (r *Registry) Open(ctx context.Context, id domain.TargetID) (*gorm.DB, domain.TargetID, func(), error) {
	id = r.Resolve(id)
	if err := Validate(id); err != nil {
		return nil, id, nil, err
	}
	for {
		p, err := r.partition(id)
		if err != nil {
			return nil, id, nil, err
		}
		if r.acquire(p) {
			var once sync.Once
			release := func() { once.Do(func() { r.release(id, p) }) }
			return p.db.WithContext(ctx), id, release, nil
		}
		// 取出后被淘汰，重新打开
	}
}

func (r *Registry) partition(id domain.TargetID) (*partition, error) {
	if p, ok := r.cache.Get(id); ok {
		return p, nil
	}
	v, err, _ := r.group.Do(string(id), func() (any, error) {
		if p, ok := r.cache.Get(id); ok {
			return p, nil
		}
		gdb, err := r.open(id)
		if err != nil {
			return nil, err
		}
		p := &partition{db: gdb}
		r.cache.Add(id, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*partition), nil
}

func (r *Registry) acquire(p *partition) bool {
	r.refMu.Lock()
	defer r.refMu.Unlock()
	if p.evicted {
		return false
	}
	p.refs++
	return true
}

func (r *Registry) release(id domain.TargetID, p *partition) {
	r.refMu.Lock()
	defer r.refMu.Unlock()
	p.refs--
	if p.refs == 0 && p.evicted {
		r.closeLocked(id, p)
	}
}

// evict LRU 淘汰回调
func (r *Registry) evict(id domain.TargetID, p *partition) {
	r.refMu.Lock()
	defer r.refMu.Unlock()
	p.evicted = true
	if p.refs == 0 {
		r.closeLocked(id, p)
		return
	}
	r.log.Debug("分区仍在使用，延迟关闭", "target", id, "refs", p.refs)
}

func (r *Registry) closeLocked(id domain.TargetID, p *partition) {
	if p.closed {
		return
	}
	p.closed = true
	if err := db.Close(p.db); err != nil {
		r.log.Err(err, "关闭目标分区失败", "target", id)
		r.closeErrs = append(r.closeErrs, fmt.Errorf("target %s: %w", id, err))
	}
}

func (r *Registry) open(id domain.TargetID) (*gorm.DB, error) {
	opts := db.Options{
		Name:   string(id) + ".db",
		Dir:    r.opts.Dir,
		Prefix: r.opts.Prefix,
		Logger: db.NewLogger(r.log.With("target", id)),
	}
	if r.opts.InMemory {
		opts.FullPath = db.MemoryPath
	}
	gdb, err := db.New(opts)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gdb, model.All()...); err != nil {
		_ = db.Close(gdb)
		return nil, err
	}
	r.log.Info("打开目标分区", "target", id, "memory", r.opts.InMemory)
	return gdb, nil
}

// Close 关闭全部已打开的分区，返回此前累计的关闭错误
//
// 仍被持有的分区在最后一次释放时关闭。
func (r *Registry) Close() error {
	r.cache.Purge()
	r.refMu.Lock()
	defer r.refMu.Unlock()
	err := errors.Join(r.closeErrs...)
	r.closeErrs = nil
	return err
}
