// Package har 将 HAR 归档转换为待入库的 HTTP 事务
package har

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"txdb/pkg/domain"
)

type header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type cookie struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Path     string `json:"path,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Expires  string `json:"expires,omitempty"`
	HTTPOnly bool   `json:"httpOnly,omitempty"`
	Secure   bool   `json:"secure,omitempty"`
}

// File HAR 文件结构
type File struct {
	Log struct {
		Entries []Entry `json:"entries"`
	} `json:"log"`
}

// Entry 单条 HAR 记录
type Entry struct {
	StartedDateTime string  `json:"startedDateTime"`
	Time            float64 `json:"time"`
	Request         struct {
		Method      string   `json:"method"`
		URL         string   `json:"url"`
		HTTPVersion string   `json:"httpVersion"`
		Headers     []header `json:"headers"`
		PostData    struct {
			MimeType string `json:"mimeType"`
			Text     string `json:"text"`
		} `json:"postData"`
	} `json:"request"`
	Response struct {
		Status      int      `json:"status"`
		StatusText  string   `json:"statusText"`
		HTTPVersion string   `json:"httpVersion"`
		Headers     []header `json:"headers"`
		Cookies     []cookie `json:"cookies"`
		Content     struct {
			MimeType string `json:"mimeType"`
			Text     string `json:"text"`
			Encoding string `json:"encoding"`
		} `json:"content"`
	} `json:"response"`
}

// ScopeFunc 判断 URL 是否在评估范围内
type ScopeFunc func(u *url.URL) bool

// HostScope 返回按主机名判断范围的函数，hosts 为空时全部在范围内
func HostScope(hosts ...string) ScopeFunc {
	if len(hosts) == 0 {
		return func(*url.URL) bool { return true }
	}
	set := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		set[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	return func(u *url.URL) bool {
		_, ok := set[strings.ToLower(u.Hostname())]
		return ok
	}
}

// Parse 读取 HAR 文件
func Parse(filePath string, scope ScopeFunc) ([]domain.HTTPTransaction, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, scope)
}

// Decode 从 r 解码 HAR，结果按开始时间排序
func Decode(r io.Reader, scope ScopeFunc) ([]domain.HTTPTransaction, error) {
	if scope == nil {
		scope = HostScope()
	}
	var hf File
	if err := json.NewDecoder(r).Decode(&hf); err != nil {
		return nil, err
	}

	type item struct {
		ts time.Time
		tx domain.HTTPTransaction
	}
	items := make([]item, 0, len(hf.Log.Entries))
	for i, e := range hf.Log.Entries {
		ts, err := time.Parse(time.RFC3339Nano, e.StartedDateTime)
		if err != nil {
			return nil, fmt.Errorf("entry %d: parse startedDateTime: %w", i, err)
		}
		u, err := url.Parse(e.Request.URL)
		if err != nil {
			return nil, fmt.Errorf("entry %d: parse request url: %w", i, err)
		}
		body, err := decodeContent(e.Response.Content.Text, e.Response.Content.Encoding)
		if err != nil {
			return nil, fmt.Errorf("entry %d: decode response body: %w", i, err)
		}
		items = append(items, item{ts: ts, tx: toTransaction(&e, u, body, scope(u))})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].ts.Before(items[j].ts) })
	out := make([]domain.HTTPTransaction, len(items))
	for i := range items {
		out[i] = items[i].tx
	}
	return out, nil
}

func toTransaction(e *Entry, u *url.URL, body []byte, inScope bool) domain.HTTPTransaction {
	method := strings.ToUpper(e.Request.Method)
	secs := e.Time / 1000
	tx := domain.HTTPTransaction{
		URL:             e.Request.URL,
		Method:          method,
		Data:            e.Request.PostData.Text,
		RawRequest:      rawRequest(e, u, method),
		Status:          strings.TrimSpace(strconv.Itoa(e.Response.Status) + " " + e.Response.StatusText),
		ResponseHeaders: headerBlock(statusLine(e), e.Response.Headers),
		ResponseBody:    body,
		Time:            secs,
		TimeHuman:       time.Duration(secs * float64(time.Second)).Round(time.Millisecond).String(),
		InScope:         inScope,
	}
	for _, c := range e.Response.Cookies {
		attrs := map[string]any{}
		if c.Path != "" {
			attrs["path"] = c.Path
		}
		if c.Domain != "" {
			attrs["domain"] = c.Domain
		}
		if c.Expires != "" {
			attrs["expires"] = c.Expires
		}
		if c.HTTPOnly {
			attrs["httponly"] = true
		}
		if c.Secure {
			attrs["secure"] = true
		}
		if len(attrs) == 0 {
			attrs = nil
		}
		tx.SessionTokens = append(tx.SessionTokens, domain.SessionToken{Name: c.Name, Value: c.Value, Attributes: attrs})
	}
	if len(e.Response.Cookies) == 0 {
		tx.SessionTokens = tokensFromHeaders(e.Response.Headers)
	}
	return tx
}

func version(v string) string {
	if v == "" || strings.HasPrefix(strings.ToLower(v), "http/2") || strings.EqualFold(v, "h2") {
		return "HTTP/1.1"
	}
	return strings.ToUpper(v)
}

func statusLine(e *Entry) string {
	return strings.TrimSpace(fmt.Sprintf("%s %d %s", version(e.Response.HTTPVersion), e.Response.Status, e.Response.StatusText))
}

func rawRequest(e *Entry, u *url.URL, method string) string {
	line := fmt.Sprintf("%s %s %s", method, u.RequestURI(), version(e.Request.HTTPVersion))
	return headerBlock(line, e.Request.Headers) + "\r\n" + e.Request.PostData.Text
}

func headerBlock(first string, headers []header) string {
	var b strings.Builder
	b.WriteString(first)
	b.WriteString("\r\n")
	for _, h := range headers {
		// HTTP/2 伪头不属于原始报文
		if strings.HasPrefix(h.Name, ":") {
			continue
		}
		b.WriteString(h.Name)
		b.WriteString(": ")
		b.WriteString(h.Value)
		b.WriteString("\r\n")
	}
	return b.String()
}

func decodeContent(text, encoding string) ([]byte, error) {
	if text == "" {
		return nil, nil
	}
	if strings.EqualFold(encoding, "base64") {
		return base64.StdEncoding.DecodeString(text)
	}
	return []byte(text), nil
}
