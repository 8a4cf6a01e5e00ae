// Package errx 提供带错误码的错误类型，便于上层映射为具体的响应码
package errx

import (
	"errors"
	"fmt"
)

// Code 错误码
type Code string

// Error 带错误码的错误
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func New(code Code, msg string) *Error { return &Error{Code: code, Msg: msg} }

func Wrap(code Code, err error, msg string) *Error { return &Error{Code: code, Msg: msg, Err: err} }

// Is 判断错误链中是否存在指定错误码
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf 返回错误链中第一个错误码，不存在时返回空
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

const (
	CodeInvalidParameter    Code = "INVALID_PARAMETER"
	CodeTransactionNotFound Code = "TRANSACTION_NOT_FOUND"
	CodeInvalidRuleConfig   Code = "INVALID_RULE_CONFIG"
	CodeDataCorrupted       Code = "DATA_CORRUPTED"
)
