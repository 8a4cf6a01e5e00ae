package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"txdb/internal/config"
	"txdb/internal/grep"
	"txdb/internal/logger"
	"txdb/internal/query"
	api "txdb/pkg/api"
	"txdb/pkg/domain"
	"txdb/pkg/errx"
)

// 接口层错误码
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeMethodNotFound = "METHOD_NOT_FOUND"
	CodeDatabaseError  = "DATABASE_ERROR"
	CodeUnknown        = "UNKNOWN_ERROR"
)

// 领域错误映射表
var errorMappings = map[error]string{
	domain.ErrInvalidParameterType:   string(errx.CodeInvalidParameter),
	domain.ErrTransactionNotFound:    string(errx.CodeTransactionNotFound),
	domain.ErrInvalidRuleConfig:      string(errx.CodeInvalidRuleConfig),
	domain.ErrDataCorrupted:          string(errx.CodeDataCorrupted),
	domain.ErrDatabaseNotInitialized: CodeDatabaseError,
}

var statusByCode = map[string]int{
	CodeInvalidRequest:                   http.StatusBadRequest,
	CodeMethodNotFound:                   http.StatusNotFound,
	string(errx.CodeInvalidParameter):    http.StatusBadRequest,
	string(errx.CodeInvalidRuleConfig):   http.StatusBadRequest,
	string(errx.CodeTransactionNotFound): http.StatusNotFound,
}

// RuleSource 在未携带规则时提供重载用的规则
type RuleSource func() (grep.Provider, error)

// Server 事务存储的 HTTP 接口入口
type Server struct {
	svc   api.Service
	rules RuleSource
	log   logger.Logger
}

// NewServer 创建 HTTP 接口服务，rules 可为 nil
func NewServer(svc api.Service, rules RuleSource, l logger.Logger) *Server {
	if l == nil {
		l = logger.NewNop()
	}
	return &Server{svc: svc, rules: rules, log: l.With("component", "httpapi")}
}

// Request 表示通用请求结构
type Request struct {
	Method string          `json:"method"`
	ID     string          `json:"id,omitempty"`
	Params json.RawMessage `json:"params"`
}

// Response 表示通用响应结构
type Response struct {
	ID string `json:"id,omitempty"`
	api.Response[any]
}

// ServeHTTP 处理所有 POST 请求
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, &Response{Response: api.Fail[any](CodeInvalidRequest, err.Error())})
		return
	}
	writeResponse(w, s.dispatch(r.Context(), &req))
}

type targetParams struct {
	Target domain.TargetID `json:"target,omitempty"`
}

type criteriaParams struct {
	Target     domain.TargetID `json:"target,omitempty"`
	Criteria   json.RawMessage `json:"criteria,omitempty"`
	IncludeRaw bool            `json:"includeRaw,omitempty"`
}

type idParams struct {
	Target domain.TargetID `json:"target,omitempty"`
	ID     uint            `json:"id"`
}

type ingestParams struct {
	Target       domain.TargetID          `json:"target,omitempty"`
	Transactions []domain.HTTPTransaction `json:"transactions"`
}

type countParams struct {
	Target domain.TargetID `json:"target,omitempty"`
	Scope  *bool           `json:"scope,omitempty"`
}

type topParams struct {
	Target domain.TargetID  `json:"target,omitempty"`
	Order  domain.SortOrder `json:"order"`
	N      int              `json:"n"`
}

type grepParams struct {
	Target domain.TargetID `json:"target,omitempty"`
	Names  []string        `json:"names"`
	Stats  bool            `json:"stats,omitempty"`
}

type reloadParams struct {
	Rules config.Rules `json:"rules,omitempty"`
}

type ingestResult struct {
	IDs []uint `json:"ids"`
}

type countResult struct {
	Count int64 `json:"count"`
}

// dispatch 根据 method 分发请求
func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	var (
		result any
		err    error
	)
	switch req.Method {
	case "transaction.search":
		result, err = handle(ctx, req.Params, s.handleSearch)
	case "transaction.list":
		result, err = handle(ctx, req.Params, s.handleList)
	case "transaction.get":
		result, err = handle(ctx, req.Params, s.handleGet)
	case "transaction.delete":
		result, err = handle(ctx, req.Params, s.handleDelete)
	case "transaction.ingest":
		result, err = handle(ctx, req.Params, s.handleIngest)
	case "transaction.count":
		result, err = handle(ctx, req.Params, s.handleCount)
	case "transaction.top":
		result, err = handle(ctx, req.Params, s.handleTop)
	case "grep.search":
		result, err = handle(ctx, req.Params, s.handleGrep)
	case "session.data":
		result, err = handle(ctx, req.Params, func(ctx context.Context, p targetParams) (any, error) {
			return s.svc.SessionData(ctx, p.Target)
		})
	case "session.urls":
		result, err = handle(ctx, req.Params, func(ctx context.Context, p targetParams) (any, error) {
			return s.svc.SessionURLs(ctx, p.Target)
		})
	case "rules.reload":
		result, err = handle(ctx, req.Params, s.handleReload)
	default:
		return &Response{ID: req.ID, Response: api.Fail[any](CodeMethodNotFound, req.Method)}
	}
	if err != nil {
		code, msg := s.translateError(err)
		return &Response{ID: req.ID, Response: api.Fail[any](code, msg)}
	}
	return &Response{ID: req.ID, Response: api.OK(result)}
}

// handle 解析参数后调用处理函数
func handle[P any](ctx context.Context, raw json.RawMessage, fn func(context.Context, P) (any, error)) (any, error) {
	var p P
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, errx.Wrap(errx.CodeInvalidParameter, domain.ErrInvalidParameterType, err.Error())
		}
	}
	return fn(ctx, p)
}

func (s *Server) handleSearch(ctx context.Context, p criteriaParams) (any, error) {
	c, err := query.ParseJSON(p.Criteria)
	if err != nil {
		return nil, err
	}
	return s.svc.SearchAll(ctx, c, p.Target, p.IncludeRaw)
}

func (s *Server) handleList(ctx context.Context, p criteriaParams) (any, error) {
	c, err := query.ParseJSON(p.Criteria)
	if err != nil {
		return nil, err
	}
	return s.svc.GetAllAsRecords(ctx, c, p.Target, p.IncludeRaw)
}

func (s *Server) handleGet(ctx context.Context, p idParams) (any, error) {
	return s.svc.GetByIDAsRecord(ctx, p.ID, p.Target)
}

func (s *Server) handleDelete(ctx context.Context, p idParams) (any, error) {
	return api.EmptyData{}, s.svc.Delete(ctx, p.ID, p.Target)
}

func (s *Server) handleIngest(ctx context.Context, p ingestParams) (any, error) {
	ids, err := s.svc.Ingest(ctx, p.Transactions, p.Target)
	if err != nil {
		return nil, err
	}
	return ingestResult{IDs: ids}, nil
}

func (s *Server) handleCount(ctx context.Context, p countParams) (any, error) {
	scope := true
	if p.Scope != nil {
		scope = *p.Scope
	}
	n, err := s.svc.Count(ctx, scope, p.Target)
	if err != nil {
		return nil, err
	}
	return countResult{Count: n}, nil
}

func (s *Server) handleTop(ctx context.Context, p topParams) (any, error) {
	if p.Order == "" {
		p.Order = domain.SortDesc
	}
	if p.Order != domain.SortAsc && p.Order != domain.SortDesc {
		return nil, errx.Wrap(errx.CodeInvalidParameter, domain.ErrInvalidParameterType, "order: "+string(p.Order))
	}
	if p.N <= 0 {
		p.N = 10
	}
	return s.svc.GetTopBySpeed(ctx, p.Order, p.N, p.Target)
}

func (s *Server) handleGrep(ctx context.Context, p grepParams) (any, error) {
	if len(p.Names) == 0 {
		p.Names = s.svc.Rules()
	}
	return s.svc.SearchByRuleNames(ctx, p.Names, p.Stats, p.Target)
}

func (s *Server) handleReload(_ context.Context, p reloadParams) (any, error) {
	var provider grep.Provider = p.Rules
	if len(p.Rules) == 0 {
		if s.rules == nil {
			return nil, errx.Wrap(errx.CodeInvalidParameter, domain.ErrInvalidParameterType, "rules: empty")
		}
		var err error
		if provider, err = s.rules(); err != nil {
			return nil, err
		}
	}
	if err := s.svc.ReloadRules(provider); err != nil {
		return nil, err
	}
	return s.svc.Rules(), nil
}

// translateError 将错误转换为错误码，未知错误保留原始信息
func (s *Server) translateError(err error) (code, message string) {
	if c := errx.CodeOf(err); c != "" {
		s.log.Debug("业务错误", "code", c, "error", err.Error())
		return string(c), err.Error()
	}
	for domainErr, errorCode := range errorMappings {
		if errors.Is(err, domainErr) {
			s.log.Err(err, "业务错误", "code", errorCode)
			return errorCode, err.Error()
		}
	}
	s.log.Err(err, "未知错误")
	return CodeUnknown, err.Error()
}

// writeResponse 写出统一响应
func writeResponse(w http.ResponseWriter, res *Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	status := http.StatusOK
	if !res.Success {
		status = http.StatusInternalServerError
		if s, ok := statusByCode[res.Code]; ok {
			status = s
		}
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(res)
}
