package model

import (
	"time"
)

// Transaction HTTP 事务表
type Transaction struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	URL             string  `gorm:"index" json:"url"`
	Scope           bool    `gorm:"index" json:"scope"`                // 是否在评估范围内
	Method          string  `json:"method"`                            // 请求方法
	Data            string  `gorm:"type:text" json:"data"`             // 请求体
	Time            float64 `gorm:"index" json:"time"`                 // 耗时（秒）
	TimeHuman       string  `json:"time_human"`                        // 可读耗时
	RawRequest      string  `gorm:"type:text" json:"raw_request"`      // 原始请求
	ResponseStatus  string  `json:"response_status"`                   // 状态行，如 "200 OK"
	ResponseHeaders string  `gorm:"type:text" json:"response_headers"` // 原始响应头块
	ResponseBody    string  `gorm:"type:text" json:"response_body"`    // 文本或 base64
	BinaryResponse  bool    `gorm:"index" json:"binary_response"`      // 响应体是否为 base64
	SessionTokens   *string `gorm:"type:text" json:"session_tokens"`   // 会话令牌 JSON 数组
	Login           *bool   `json:"login"`
	Logout          *bool   `json:"logout"`
}

// GrepOutput grep 匹配结果表，同名规则下同一输出只保存一份
type GrepOutput struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Name   string `gorm:"not null;uniqueIndex:idx_grep_name_output" json:"name"`
	Output string `gorm:"type:text;not null;uniqueIndex:idx_grep_name_output" json:"output"` // 匹配的规范 JSON 编码
}

// TransactionGrepOutput 事务与匹配结果的多对多关联表
type TransactionGrepOutput struct {
	TransactionID uint `gorm:"primaryKey" json:"transaction_id"`
	GrepOutputID  uint `gorm:"primaryKey;index" json:"grep_output_id"`
}

// URL 已处理的 URL 记录
type URL struct {
	URL       string    `gorm:"primaryKey" json:"url"`
	Visited   bool      `json:"visited"`
	Scope     bool      `json:"scope"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// All 返回需要迁移的全部模型
func All() []any {
	return []any{&Transaction{}, &GrepOutput{}, &TransactionGrepOutput{}, &URL{}}
}
