package domain

import (
	"encoding/base64"
	"unicode/utf8"
)

// TargetID 评估目标ID，空值表示当前默认目标
type TargetID string

// SortOrder 排序方向
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SessionToken 从响应中提取的会话令牌
type SessionToken struct {
	Name       string         `json:"name"`
	Value      string         `json:"value"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// HTTPTransaction 捕获到的一次 HTTP 请求/响应（入库前的原始模型）
type HTTPTransaction struct {
	URL             string         `json:"url"`
	Method          string         `json:"method"`
	Data            string         `json:"data"`
	RawRequest      string         `json:"rawRequest"`
	Status          string         `json:"status"`
	ResponseHeaders string         `json:"responseHeaders"`
	ResponseBody    []byte         `json:"responseBody"`
	Time            float64        `json:"time"`
	TimeHuman       string         `json:"timeHuman"`
	SessionTokens   []SessionToken `json:"sessionTokens,omitempty"`
	InScope         bool           `json:"inScope"`
}

// EncodeBody 返回可存储的响应体文本，非 UTF-8 内容以 base64 编码并标记为二进制
func (t *HTTPTransaction) EncodeBody() (body string, binary bool) {
	if utf8.Valid(t.ResponseBody) {
		return string(t.ResponseBody), false
	}
	return base64.StdEncoding.EncodeToString(t.ResponseBody), true
}

// Transaction 从存储中还原的事务视图，二进制响应体已解码
type Transaction struct {
	ID              uint    `json:"id"`
	URL             string  `json:"url"`
	Method          string  `json:"method"`
	Scope           bool    `json:"scope"`
	Status          string  `json:"status"`
	Time            float64 `json:"time"`
	TimeHuman       string  `json:"timeHuman"`
	Data            string  `json:"data"`
	RawRequest      string  `json:"rawRequest"`
	ResponseHeaders string  `json:"responseHeaders"`
	ResponseBody    []byte  `json:"responseBody"`
	BinaryResponse  bool    `json:"binaryResponse"`
}

// Record 事务的字段映射视图，供 API 直接序列化
type Record map[string]any

// SearchResult 分页查询结果
type SearchResult struct {
	RecordsTotal    int64    `json:"records_total"`
	RecordsFiltered int64    `json:"records_filtered"`
	Data            []Record `json:"data"`
}

// GrepResult 按规则名查询匹配索引的结果
type GrepResult struct {
	Name           string `json:"name"`
	Outputs        []any  `json:"outputs"`
	TransactionIDs []uint `json:"transactionIds"`
	MatchPercent   *int   `json:"matchPercent,omitempty"`
}

// URLImport 转发给 URL 追踪方的条目
type URLImport struct {
	URL      string `json:"url"`
	Imported bool   `json:"imported"`
	InScope  bool   `json:"inScope"`
}

// RecordedTransaction 录制中的事务引用
type RecordedTransaction struct {
	Target        TargetID `json:"target"`
	TransactionID uint     `json:"transactionId"`
}

// SessionURLGroup 以相同会话令牌分组的 URL
type SessionURLGroup struct {
	SessionTokens any      `json:"sessionTokens"`
	URLs          []string `json:"urls"`
}
