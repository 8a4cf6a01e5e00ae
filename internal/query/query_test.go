package query_test

import (
	"testing"

	"txdb/internal/query"
	"txdb/internal/storage/db"
	"txdb/internal/storage/model"
	"txdb/pkg/domain"
	"txdb/pkg/errx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.New(db.Options{FullPath: db.MemoryPath})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })
	require.NoError(t, db.Migrate(gdb, model.All()...))

	rows := []*model.Transaction{
		{URL: "http://a/foo", Method: "GET", Scope: true, ResponseBody: "Hello World"},
		{URL: "http://a/FOO", Method: "POST", Scope: true, ResponseBody: "aGVsbG8=", BinaryResponse: true},
		{URL: "foo", Method: "GET", Scope: false, ResponseBody: "hello"},
		{URL: "http://b/bar", Method: "PUT", Scope: true, ResponseBody: "world"},
	}
	require.NoError(t, gdb.Create(rows).Error)
	return gdb
}

func find(t *testing.T, gdb *gorm.DB, c query.Criteria) []string {
	t.Helper()
	var urls []string
	require.NoError(t, query.Build(gdb.Model(&model.Transaction{}), c, false).Order("id ASC").Pluck("url", &urls).Error)
	return urls
}

func TestParseJSON(t *testing.T) {
	t.Run("标量与列表", func(t *testing.T) {
		c, err := query.ParseJSON([]byte(`{"url":"x","method":["GET","POST"],"limit":"10","offset":2}`))
		require.NoError(t, err)
		assert.Equal(t, query.ModeFilter, c.Mode)
		assert.Equal(t, []string{"x"}, c.Values[query.FieldURL])
		assert.Equal(t, []string{"GET", "POST"}, c.Values[query.FieldMethod])
		require.NotNil(t, c.Limit)
		assert.Equal(t, 10, *c.Limit)
		require.NotNil(t, c.Offset)
		assert.Equal(t, 2, *c.Offset)
	})

	t.Run("search 真值选择搜索模式", func(t *testing.T) {
		c, err := query.ParseJSON([]byte(`{"search":"true","url":"foo"}`))
		require.NoError(t, err)
		assert.Equal(t, query.ModeSearch, c.Mode)
	})

	t.Run("布尔字段", func(t *testing.T) {
		c, err := query.ParseJSON([]byte(`{"scope":"yes","binary_response":["false"]}`))
		require.NoError(t, err)
		require.NotNil(t, c.Scope)
		assert.True(t, *c.Scope)
		require.NotNil(t, c.BinaryResponse)
		assert.False(t, *c.BinaryResponse)
	})

	t.Run("假值视为未设置", func(t *testing.T) {
		c, err := query.ParseJSON([]byte(`{"url":"","method":[],"scope":false,"limit":""}`))
		require.NoError(t, err)
		assert.Empty(t, c.Values)
		assert.Nil(t, c.Scope)
		assert.Nil(t, c.Limit)
	})

	t.Run("非数字 limit", func(t *testing.T) {
		_, err := query.ParseJSON([]byte(`{"limit":"abc"}`))
		require.Error(t, err)
		assert.Equal(t, errx.CodeInvalidParameter, errx.CodeOf(err))
		assert.ErrorIs(t, err, domain.ErrInvalidParameterType)
	})

	t.Run("负数分页", func(t *testing.T) {
		for _, raw := range []string{`{"limit":-1}`, `{"offset":"-3"}`} {
			_, err := query.ParseJSON([]byte(raw))
			assert.Equal(t, errx.CodeInvalidParameter, errx.CodeOf(err), raw)
		}
	})

	t.Run("非对象", func(t *testing.T) {
		_, err := query.ParseJSON([]byte(`[1,2]`))
		assert.Equal(t, errx.CodeInvalidParameter, errx.CodeOf(err))
	})
}

func TestParseMap(t *testing.T) {
	c, err := query.Parse(map[string]any{"url": []string{"a", "b"}, "limit": 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, c.Values[query.FieldURL])
	assert.Equal(t, 5, *c.Limit)

	c, err = query.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, query.Criteria{}, c)
}

func TestBuild(t *testing.T) {
	gdb := setupDB(t)

	t.Run("过滤模式精确匹配", func(t *testing.T) {
		got := find(t, gdb, query.Criteria{}.With(query.FieldURL, "foo"))
		assert.Equal(t, []string{"foo"}, got)
	})

	t.Run("搜索模式区分大小写", func(t *testing.T) {
		got := find(t, gdb, query.Criteria{Mode: query.ModeSearch}.With(query.FieldURL, "foo"))
		assert.Equal(t, []string{"http://a/foo", "foo"}, got)
	})

	t.Run("多值使用 IN", func(t *testing.T) {
		got := find(t, gdb, query.Criteria{}.With(query.FieldMethod, "POST", "PUT"))
		assert.Equal(t, []string{"http://a/FOO", "http://b/bar"}, got)
	})

	t.Run("响应体搜索排除二进制", func(t *testing.T) {
		got := find(t, gdb, query.Criteria{Mode: query.ModeSearch}.With(query.FieldResponseBody, "G"))
		assert.Empty(t, got)
		got = find(t, gdb, query.Criteria{Mode: query.ModeSearch}.With(query.FieldResponseBody, "World"))
		assert.Equal(t, []string{"http://a/foo"}, got)
	})

	t.Run("范围与分页", func(t *testing.T) {
		c := query.Criteria{Scope: query.Bool(true), Offset: query.Int(1), Limit: query.Int(1)}
		assert.Equal(t, []string{"http://a/FOO"}, find(t, gdb, c))

		var n int64
		require.NoError(t, query.Build(gdb.Model(&model.Transaction{}), c, true).Count(&n).Error)
		assert.EqualValues(t, 3, n)
	})

	t.Run("limit 为 0 不返回记录", func(t *testing.T) {
		c, err := query.ParseJSON([]byte(`{"limit":"0"}`))
		require.NoError(t, err)
		assert.Empty(t, find(t, gdb, c))

		var n int64
		require.NoError(t, query.Build(gdb.Model(&model.Transaction{}), c, true).Count(&n).Error)
		assert.EqualValues(t, 4, n, "统计不受分页影响")
	})

	t.Run("二进制标记", func(t *testing.T) {
		got := find(t, gdb, query.Criteria{BinaryResponse: query.Bool(true)})
		assert.Equal(t, []string{"http://a/FOO"}, got)
	})
}
