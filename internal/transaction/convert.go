package transaction

import (
	"encoding/base64"
	"fmt"

	"txdb/internal/storage/model"
	"txdb/pkg/domain"
	"txdb/pkg/errx"

	"github.com/tidwall/sjson"
)

// toModel 将捕获的事务转换为存储记录
func toModel(t *domain.HTTPTransaction) (*model.Transaction, error) {
	body, binary := t.EncodeBody()
	rec := &model.Transaction{
		URL:             t.URL,
		Scope:           t.InScope,
		Method:          t.Method,
		Data:            t.Data,
		Time:            t.Time,
		TimeHuman:       t.TimeHuman,
		RawRequest:      t.RawRequest,
		ResponseStatus:  t.Status,
		ResponseHeaders: t.ResponseHeaders,
		ResponseBody:    body,
		BinaryResponse:  binary,
	}
	if t.SessionTokens != nil {
		payload, err := encodeTokens(t.SessionTokens)
		if err != nil {
			return nil, err
		}
		rec.SessionTokens = &payload
	}
	return rec, nil
}

func encodeTokens(tokens []domain.SessionToken) (string, error) {
	payload := "[]"
	for _, tok := range tokens {
		var err error
		if payload, err = sjson.Set(payload, "-1", tok); err != nil {
			return "", err
		}
	}
	return payload, nil
}

// toDomain 还原事务视图，二进制响应体解码为原始字节
func toDomain(rec *model.Transaction) (*domain.Transaction, error) {
	body := []byte(rec.ResponseBody)
	if rec.BinaryResponse {
		var err error
		if body, err = decodeBody(rec); err != nil {
			return nil, err
		}
	}
	return &domain.Transaction{
		ID:              rec.ID,
		URL:             rec.URL,
		Method:          rec.Method,
		Scope:           rec.Scope,
		Status:          rec.ResponseStatus,
		Time:            rec.Time,
		TimeHuman:       rec.TimeHuman,
		Data:            rec.Data,
		RawRequest:      rec.RawRequest,
		ResponseHeaders: rec.ResponseHeaders,
		ResponseBody:    body,
		BinaryResponse:  rec.BinaryResponse,
	}, nil
}

func decodeBody(rec *model.Transaction) ([]byte, error) {
	body, err := base64.StdEncoding.DecodeString(rec.ResponseBody)
	if err != nil {
		return nil, errx.Wrap(errx.CodeDataCorrupted, domain.ErrDataCorrupted,
			fmt.Sprintf("transaction %d: %v", rec.ID, err))
	}
	return body, nil
}

// toRecord 生成字段映射视图，includeRaw 为 false 时省略原始请求与响应
//
// 二进制响应体保持 base64 文本，但会先校验可解码。
func toRecord(rec *model.Transaction, includeRaw bool) (domain.Record, error) {
	r := domain.Record{
		"id":              rec.ID,
		"url":             rec.URL,
		"method":          rec.Method,
		"scope":           rec.Scope,
		"data":            rec.Data,
		"time":            rec.Time,
		"time_human":      rec.TimeHuman,
		"response_status": rec.ResponseStatus,
		"binary_response": rec.BinaryResponse,
		"session_tokens":  rec.SessionTokens,
		"login":           rec.Login,
		"logout":          rec.Logout,
	}
	if includeRaw {
		if rec.BinaryResponse {
			if _, err := decodeBody(rec); err != nil {
				return nil, err
			}
		}
		r["raw_request"] = rec.RawRequest
		r["response_headers"] = rec.ResponseHeaders
		r["response_body"] = rec.ResponseBody
	}
	return r, nil
}

func toDomainList(list []*model.Transaction) ([]*domain.Transaction, error) {
	out := make([]*domain.Transaction, 0, len(list))
	for _, rec := range list {
		t, err := toDomain(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func toRecords(list []*model.Transaction, includeRaw bool) ([]domain.Record, error) {
	out := make([]domain.Record, 0, len(list))
	for _, rec := range list {
		r, err := toRecord(rec, includeRaw)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
