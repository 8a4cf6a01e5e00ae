package query

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"txdb/internal/config"
	"txdb/pkg/domain"
	"txdb/pkg/errx"

	"github.com/tidwall/gjson"
)

// Mode 查询模式
type Mode int

const (
	// ModeFilter 精确匹配（url/method/data）
	ModeFilter Mode = iota
	// ModeSearch 子串匹配（区分大小写）
	ModeSearch
)

// Field 可查询的文本列
type Field string

const (
	FieldURL             Field = "url"
	FieldMethod          Field = "method"
	FieldData            Field = "data"
	FieldRawRequest      Field = "raw_request"
	FieldResponseStatus  Field = "response_status"
	FieldResponseHeaders Field = "response_headers"
	FieldResponseBody    Field = "response_body"
)

var (
	searchFields = []Field{
		FieldURL, FieldMethod, FieldData, FieldRawRequest,
		FieldResponseStatus, FieldResponseHeaders, FieldResponseBody,
	}
	filterFields = []Field{FieldURL, FieldMethod, FieldData}
)

// Criteria 事务查询条件
type Criteria struct {
	Mode           Mode
	Values         map[Field][]string
	Scope          *bool
	BinaryResponse *bool
	Offset         *int
	Limit          *int
}

// With 返回追加了字段取值的副本
func (c Criteria) With(f Field, values ...string) Criteria {
	next := make(map[Field][]string, len(c.Values)+1)
	for k, v := range c.Values {
		next[k] = v
	}
	next[f] = values
	c.Values = next
	return c
}

// Bool 返回 b 的指针
func Bool(b bool) *bool { return &b }

// Int 返回 i 的指针
func Int(i int) *int { return &i }

// Parse 从松散的 map 解析查询条件
func Parse(m map[string]any) (Criteria, error) {
	if len(m) == 0 {
		return Criteria{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return Criteria{}, invalid("criteria", err.Error())
	}
	return ParseJSON(data)
}

// ParseJSON 从 JSON 对象解析查询条件
//
// 字段值可以是标量或数组，空字符串、空数组和假值视为未设置。
func ParseJSON(data []byte) (Criteria, error) {
	var c Criteria
	if len(strings.TrimSpace(string(data))) == 0 {
		return c, nil
	}
	if !gjson.ValidBytes(data) {
		return c, invalid("criteria", "invalid json")
	}
	doc := gjson.ParseBytes(data)
	if doc.Type == gjson.Null {
		return c, nil
	}
	if !doc.IsObject() {
		return c, invalid("criteria", "must be an object")
	}

	if truthy(doc.Get("search")) {
		c.Mode = ModeSearch
	}
	for _, f := range searchFields {
		if vals := stringsOf(doc.Get(string(f))); len(vals) > 0 {
			c = c.With(f, vals...)
		}
	}
	c.Scope = boolOf(doc.Get("scope"))
	c.BinaryResponse = boolOf(doc.Get("binary_response"))

	var err error
	if c.Offset, err = intOf("offset", doc.Get("offset")); err != nil {
		return Criteria{}, err
	}
	if c.Limit, err = intOf("limit", doc.Get("limit")); err != nil {
		return Criteria{}, err
	}
	return c, nil
}

func first(r gjson.Result) gjson.Result {
	if r.IsArray() {
		arr := r.Array()
		if len(arr) == 0 {
			return gjson.Result{}
		}
		return arr[0]
	}
	return r
}

func truthy(r gjson.Result) bool {
	if r.IsArray() {
		return len(r.Array()) > 0
	}
	switch r.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return r.Num != 0
	case gjson.String:
		return config.ConvertStrToBool(r.Str)
	}
	return false
}

func stringsOf(r gjson.Result) []string {
	var items []gjson.Result
	if r.IsArray() {
		items = r.Array()
	} else if r.Exists() {
		items = []gjson.Result{r}
	}
	var out []string
	for _, it := range items {
		switch it.Type {
		case gjson.Null, gjson.False:
			continue
		}
		if s := it.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// boolOf 假值视为未设置，字符串按真值约定转换
func boolOf(r gjson.Result) *bool {
	if !truthy(r) && first(r).Type != gjson.String {
		return nil
	}
	v := first(r)
	switch v.Type {
	case gjson.String:
		if v.Str == "" {
			return nil
		}
		return Bool(config.ConvertStrToBool(v.Str))
	case gjson.True:
		return Bool(true)
	case gjson.Number:
		return Bool(v.Num != 0)
	}
	return nil
}

// intOf 解析非负整数，limit 为 0 时不返回任何记录
func intOf(name string, r gjson.Result) (*int, error) {
	v := first(r)
	var n int
	switch v.Type {
	case gjson.Null:
		return nil, nil
	case gjson.Number:
		n = int(v.Num)
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return nil, nil
		}
		var err error
		if n, err = strconv.Atoi(s); err != nil {
			return nil, invalid(name, strconv.Quote(v.Str))
		}
	default:
		return nil, invalid(name, v.Raw)
	}
	if n < 0 {
		return nil, invalid(name, "must not be negative")
	}
	return Int(n), nil
}

func invalid(name, detail string) error {
	return errx.Wrap(errx.CodeInvalidParameter, domain.ErrInvalidParameterType, fmt.Sprintf("%s: %s", name, detail))
}
