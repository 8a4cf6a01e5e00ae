package domain

import "errors"

// 查询相关错误
var (
	ErrInvalidParameterType = errors.New("invalid parameter type for transaction db")
	ErrTransactionNotFound  = errors.New("transaction not found")
)

// 规则相关错误
var (
	ErrInvalidRuleConfig = errors.New("invalid rule config")
)

// 数据相关错误
var (
	ErrDataCorrupted          = errors.New("data corrupted")
	ErrDatabaseNotInitialized = errors.New("database not initialized")
)
