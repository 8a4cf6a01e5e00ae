package transaction

import (
	"context"

	"txdb/internal/storage/repo"
	"txdb/internal/storage/target"
	"txdb/pkg/domain"

	"github.com/tidwall/gjson"
)

// SessionData 返回所有非空会话令牌负载
func (m *Manager) SessionData(ctx context.Context, id domain.TargetID) ([]any, error) {
	r, _, release, err := m.transactions(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()
	rows, err := r.SessionTokens(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, gjson.Parse(row.SessionTokens).Value())
	}
	return out, nil
}

// SessionURLs 按相同会话令牌负载对 URL 分组，组与组内 URL 均按首次出现排序
func (m *Manager) SessionURLs(ctx context.Context, id domain.TargetID) ([]domain.SessionURLGroup, error) {
	r, _, release, err := m.transactions(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()
	rows, err := r.SessionTokens(ctx)
	if err != nil {
		return nil, err
	}

	groups := make([]domain.SessionURLGroup, 0)
	index := make(map[string]int)
	seen := make(map[string]map[string]struct{})
	for _, row := range rows {
		i, ok := index[row.SessionTokens]
		if !ok {
			i = len(groups)
			index[row.SessionTokens] = i
			seen[row.SessionTokens] = make(map[string]struct{})
			groups = append(groups, domain.SessionURLGroup{
				SessionTokens: gjson.Parse(row.SessionTokens).Value(),
				URLs:          []string{},
			})
		}
		if _, dup := seen[row.SessionTokens][row.URL]; dup {
			continue
		}
		seen[row.SessionTokens][row.URL] = struct{}{}
		groups[i].URLs = append(groups[i].URLs, row.URL)
	}
	return groups, nil
}

// partitionURLs 将已处理 URL 写入目标分区自身的 URL 表
type partitionURLs struct {
	registry *target.Registry
}

// ImportProcessedURLs 实现 URLTracker
func (p *partitionURLs) ImportProcessedURLs(ctx context.Context, id domain.TargetID, urls []domain.URLImport) error {
	gdb, _, release, err := p.registry.Open(ctx, id)
	if err != nil {
		return err
	}
	defer release()
	return repo.NewURLRepo(gdb).Import(ctx, urls)
}
