package har_test

import (
	"strings"
	"testing"

	"txdb/internal/har"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	txs, err := har.Parse("testdata/sample.har", har.HostScope("shop.example.com"))
	require.NoError(t, err)
	require.Len(t, txs, 2)

	// 按开始时间排序
	logo, login := txs[0], txs[1]

	assert.Equal(t, "https://cdn.other.net/logo.png", logo.URL)
	assert.False(t, logo.InScope)
	assert.Equal(t, "200", logo.Status)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, logo.ResponseBody)
	assert.Equal(t, "GET /logo.png HTTP/1.1\r\n\r\n", logo.RawRequest, "HTTP/2 伪头应被忽略")
	assert.Nil(t, logo.SessionTokens)

	assert.True(t, login.InScope)
	assert.Equal(t, "POST", login.Method)
	assert.Equal(t, `{"user":"a"}`, login.Data)
	assert.Equal(t, "200 OK", login.Status)
	assert.InDelta(t, 1.25, login.Time, 1e-9)
	assert.Equal(t, "1.25s", login.TimeHuman)
	assert.True(t, strings.HasPrefix(login.RawRequest, "POST /api/login?next=%2F HTTP/1.1\r\nHost: shop.example.com\r\n"))
	assert.True(t, strings.HasSuffix(login.RawRequest, "\r\n\r\n{\"user\":\"a\"}"))
	assert.Equal(t, "HTTP/1.1 200 OK\r\nSet-Cookie: sid=abc; HttpOnly\r\nContent-Type: text/html\r\n", login.ResponseHeaders)
	require.Len(t, login.SessionTokens, 1)
	assert.Equal(t, "sid", login.SessionTokens[0].Name)
	assert.Equal(t, map[string]any{"path": "/", "httponly": true}, login.SessionTokens[0].Attributes)
}

func TestDecode_Errors(t *testing.T) {
	_, err := har.Decode(strings.NewReader(`{"log":{"entries":[{"startedDateTime":"yesterday"}]}}`), nil)
	assert.Error(t, err)

	_, err = har.Decode(strings.NewReader(`not json`), nil)
	assert.Error(t, err)

	txs, err := har.Decode(strings.NewReader(`{"log":{"entries":[]}}`), nil)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestHostScope(t *testing.T) {
	txs, err := har.Parse("testdata/sample.har", nil)
	require.NoError(t, err)
	for _, tx := range txs {
		assert.True(t, tx.InScope, "未指定主机时全部在范围内")
	}
}

func TestDecode_TokensFromSetCookie(t *testing.T) {
	doc := `{"log":{"entries":[{
		"startedDateTime":"2024-05-01T10:00:00Z",
		"request":{"method":"GET","url":"http://a/"},
		"response":{"status":302,"statusText":"Found","headers":[
			{"name":"set-cookie","value":"sid=xyz; Path=/; HttpOnly"},
			{"name":"Set-Cookie","value":"broken"}
		]}
	}]}}`
	txs, err := har.Decode(strings.NewReader(doc), nil)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Len(t, txs[0].SessionTokens, 1)
	tok := txs[0].SessionTokens[0]
	assert.Equal(t, "sid", tok.Name)
	assert.Equal(t, "xyz", tok.Value)
	assert.Equal(t, map[string]any{"path": "/", "httponly": true}, tok.Attributes)
	assert.Equal(t, "302 Found", txs[0].Status)
}
