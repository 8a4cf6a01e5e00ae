package transaction

import (
	"context"

	"txdb/internal/storage/model"
	"txdb/internal/storage/repo"
	"txdb/pkg/domain"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Ingest 批量写入事务并为范围内的文本响应建立匹配索引，返回新事务 id
//
// 基础记录与匹配关联分两个数据库事务提交，索引失败时本批次不留下任何关联。
func (m *Manager) Ingest(ctx context.Context, list []domain.HTTPTransaction, id domain.TargetID) ([]uint, error) {
	if len(list) == 0 {
		return nil, nil
	}
	gdb, id, release, err := m.registry.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	mu := m.lock(id)
	mu.Lock()
	defer mu.Unlock()

	log := m.log.With("batch", uuid.NewString(), "target", id)
	log.Debug("开始写入事务", "count", len(list))

	records := make([]*model.Transaction, len(list))
	urls := make([]domain.URLImport, len(list))
	for i := range list {
		rec, err := toModel(&list[i])
		if err != nil {
			return nil, err
		}
		records[i] = rec
		urls[i] = domain.URLImport{URL: rec.URL, Imported: true, InScope: rec.Scope}
	}

	err = gdb.Transaction(func(tx *gorm.DB) error {
		return repo.NewTransactionRepo(tx).CreateBatch(ctx, records)
	})
	if err != nil {
		log.Err(err, "写入事务失败")
		return nil, err
	}

	ids := make([]uint, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}

	if err := m.index(ctx, gdb, records); err != nil {
		log.Err(err, "建立匹配索引失败，已回滚本批次关联")
		return ids, err
	}

	if err := m.urls.ImportProcessedURLs(ctx, id, urls); err != nil {
		log.Err(err, "登记 URL 失败")
		return ids, err
	}

	if m.recorder != nil && m.recorder.IsRecording() {
		items := make([]domain.RecordedTransaction, len(ids))
		for i, txID := range ids {
			items[i] = domain.RecordedTransaction{Target: id, TransactionID: txID}
		}
		m.recorder.AddRecorded(items)
	}

	log.Info("写入事务完成", "count", len(ids))
	return ids, nil
}

// index 扫描范围内的文本响应并在单个数据库事务中写入关联
func (m *Manager) index(ctx context.Context, gdb *gorm.DB, records []*model.Transaction) error {
	rules := m.compiler.Rules()
	if rules.Len() == 0 {
		return nil
	}
	return gdb.Transaction(func(tx *gorm.DB) error {
		g := repo.NewGrepRepo(tx)
		for _, rec := range records {
			if rec.BinaryResponse || !rec.Scope {
				continue
			}
			results := rules.Scan(rec.ResponseHeaders, rec.ResponseBody)
			if len(results) == 0 {
				continue
			}
			if err := g.Index(ctx, rec.ID, results); err != nil {
				return err
			}
		}
		return nil
	})
}

// IngestByTarget 按目标分组写入，空列表跳过，不同目标并行处理
func (m *Manager) IngestByTarget(ctx context.Context, batches map[domain.TargetID][]domain.HTTPTransaction) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for id, list := range batches {
		if len(list) == 0 {
			continue
		}
		g.Go(func() error {
			_, err := m.Ingest(ctx, list, id)
			return err
		})
	}
	return g.Wait()
}
