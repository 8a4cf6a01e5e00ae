package repo_test

import (
	"context"
	"testing"

	"txdb/internal/grep"
	"txdb/internal/query"
	"txdb/internal/storage/db"
	"txdb/internal/storage/model"
	"txdb/internal/storage/repo"
	"txdb/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupTestDB 创建已迁移的内存数据库
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.New(db.Options{
		FullPath: db.MemoryPath,
		Prefix:   "test_",
	})
	require.NoError(t, err, "创建内存数据库失败")
	t.Cleanup(func() { _ = db.Close(gdb) })
	require.NoError(t, db.Migrate(gdb, model.All()...), "迁移数据库失败")
	return gdb
}

func seed(t *testing.T, gdb *gorm.DB, rows ...*model.Transaction) {
	t.Helper()
	require.NoError(t, repo.NewTransactionRepo(gdb).CreateBatch(context.Background(), rows))
}

func TestTransactionRepo_FindAndCount(t *testing.T) {
	gdb := setupTestDB(t)
	ctx := context.Background()
	r := repo.NewTransactionRepo(gdb)
	seed(t, gdb,
		&model.Transaction{URL: "u1", Method: "GET", Scope: true, Time: 0.3},
		&model.Transaction{URL: "u2", Method: "GET", Scope: false, Time: 0.1},
		&model.Transaction{URL: "u3", Method: "POST", Scope: true, Time: 0.9},
	)

	list, err := r.Find(ctx, query.Criteria{}.With(query.FieldMethod, "GET"))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "u1", list[0].URL)

	n, err := r.CountScope(ctx, true)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	first, err := r.First(ctx, query.Criteria{}.With(query.FieldURL, "nope"))
	require.NoError(t, err)
	assert.Nil(t, first)

	one, err := r.FindOne(ctx, uint(999))
	require.NoError(t, err)
	assert.Nil(t, one, "不存在的主键应返回 nil")

	byIDs, err := r.FindByIDs(ctx, []uint{3, 42, 1})
	require.NoError(t, err)
	require.Len(t, byIDs, 2)
	assert.Equal(t, []string{"u3", "u1"}, []string{byIDs[0].URL, byIDs[1].URL})

	slow, err := r.TopBySpeed(ctx, domain.SortDesc, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"u3", "u1"}, []string{slow[0].URL, slow[1].URL})
	fast, err := r.TopBySpeed(ctx, domain.SortAsc, 1)
	require.NoError(t, err)
	assert.Equal(t, "u2", fast[0].URL)
}

func TestTransactionRepo_SessionTokens(t *testing.T) {
	gdb := setupTestDB(t)
	tok := `[{"name":"sid","value":"1"}]`
	seed(t, gdb,
		&model.Transaction{URL: "a"},
		&model.Transaction{URL: "b", SessionTokens: &tok},
	)
	rows, err := repo.NewTransactionRepo(gdb).SessionTokens(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "b", rows[0].URL)
	assert.Equal(t, tok, rows[0].SessionTokens)
}

func TestGrepRepo_IndexAndSearch(t *testing.T) {
	gdb := setupTestDB(t)
	ctx := context.Background()
	seed(t, gdb,
		&model.Transaction{URL: "1", Scope: true},
		&model.Transaction{URL: "2", Scope: true},
		&model.Transaction{URL: "3", Scope: true},
		&model.Transaction{URL: "4", Scope: false},
	)
	g := repo.NewGrepRepo(gdb)

	cookie := map[string][]grep.Match{"HEADERS_FOR_COOKIES": {{"Set-Cookie", "a=1"}}}
	require.NoError(t, g.Index(ctx, 2, cookie))
	require.NoError(t, g.Index(ctx, 1, cookie))
	require.NoError(t, g.Index(ctx, 1, cookie), "重复索引应当幂等")
	require.NoError(t, g.Index(ctx, 1, map[string][]grep.Match{"RESPONSE_TODO": {{"TODO: x"}}}))

	var outputs int64
	require.NoError(t, gdb.Model(&model.GrepOutput{}).Count(&outputs).Error)
	assert.EqualValues(t, 2, outputs, "相同输出只保存一份")

	res, err := g.SearchByName(ctx, "HEADERS_FOR_COOKIES", true)
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{"Set-Cookie", "a=1"}}, res.Outputs)
	assert.Equal(t, []uint{1}, res.TransactionIDs, "代表事务为最小 id")
	require.NotNil(t, res.MatchPercent)
	assert.Equal(t, 66, *res.MatchPercent)

	res, err = g.SearchByName(ctx, "RESPONSE_TODO", false)
	require.NoError(t, err)
	assert.Equal(t, []any{"TODO: x"}, res.Outputs)
	assert.Nil(t, res.MatchPercent)

	batch, err := g.SearchByNames(ctx, []string{"RESPONSE_TODO", "UNKNOWN", "HEADERS_FOR_COOKIES"}, true)
	require.NoError(t, err)
	require.Len(t, batch, 3)
	assert.Equal(t, "RESPONSE_TODO", batch[0].Name)
	assert.Equal(t, 33, *batch[0].MatchPercent)
	assert.Empty(t, batch[1].Outputs)
	assert.Equal(t, 0, *batch[1].MatchPercent)
	assert.Equal(t, 66, *batch[2].MatchPercent)
}

func TestGrepRepo_NoInScopeTransactions(t *testing.T) {
	gdb := setupTestDB(t)
	ctx := context.Background()
	seed(t, gdb, &model.Transaction{URL: "x", Scope: false})

	res, err := repo.NewGrepRepo(gdb).SearchByName(ctx, "ANY", true)
	require.NoError(t, err)
	require.NotNil(t, res.MatchPercent)
	assert.Equal(t, 0, *res.MatchPercent)
}

func TestGrepRepo_IndexRollback(t *testing.T) {
	gdb := setupTestDB(t)
	ctx := context.Background()
	seed(t, gdb, &model.Transaction{URL: "x", Scope: true})
	g := repo.NewGrepRepo(gdb)

	err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := g.Index(ctx, 1, map[string][]grep.Match{"R": {{"v"}}}, repo.WithTx[*repo.CreateConfig](tx)); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	var links int64
	require.NoError(t, gdb.Model(&model.TransactionGrepOutput{}).Count(&links).Error)
	assert.Zero(t, links, "失败的事务不应留下关联")
}

func TestTransactionRepo_DeleteKeepsOutputs(t *testing.T) {
	gdb := setupTestDB(t)
	ctx := context.Background()
	seed(t, gdb, &model.Transaction{URL: "x", Scope: true}, &model.Transaction{URL: "y", Scope: true})
	g := repo.NewGrepRepo(gdb)
	require.NoError(t, g.Index(ctx, 1, map[string][]grep.Match{"R": {{"v"}}}))
	require.NoError(t, g.Index(ctx, 2, map[string][]grep.Match{"R": {{"v"}}}))

	ok, err := repo.NewTransactionRepo(gdb).DeleteWithLinks(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	var outputs int64
	var linked []uint
	gdb.Model(&model.GrepOutput{}).Count(&outputs)
	gdb.Model(&model.TransactionGrepOutput{}).Pluck("transaction_id", &linked)
	assert.EqualValues(t, 1, outputs)
	assert.Equal(t, []uint{2}, linked, "只删除该事务自己的关联")

	ok, err = repo.NewTransactionRepo(gdb).DeleteWithLinks(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestURLRepo_Import(t *testing.T) {
	gdb := setupTestDB(t)
	ctx := context.Background()
	r := repo.NewURLRepo(gdb)

	require.NoError(t, r.Import(ctx, []domain.URLImport{
		{URL: "http://a", Imported: true, InScope: true},
		{URL: "http://b", Imported: true, InScope: false},
	}))
	require.NoError(t, r.Import(ctx, []domain.URLImport{{URL: "http://a", Imported: true, InScope: false}}))

	u, err := r.Get(ctx, "http://a")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.False(t, u.Scope)
	assert.True(t, u.Visited)

	out, err := r.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}
