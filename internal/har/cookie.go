package har

import (
	"strings"

	"txdb/pkg/domain"
)

// parseSetCookie 解析 Set-Cookie 头为会话令牌，首个键值对为令牌本身，其余为属性
func parseSetCookie(s string) (domain.SessionToken, bool) {
	parts := strings.Split(s, ";")
	kv := strings.SplitN(strings.TrimSpace(parts[0]), "=", 2)
	if len(kv) != 2 || kv[0] == "" {
		return domain.SessionToken{}, false
	}
	tok := domain.SessionToken{Name: kv[0], Value: kv[1]}
	for _, p := range parts[1:] {
		attr := strings.SplitN(strings.TrimSpace(p), "=", 2)
		if attr[0] == "" {
			continue
		}
		if tok.Attributes == nil {
			tok.Attributes = make(map[string]any)
		}
		key := strings.ToLower(attr[0])
		if len(attr) == 2 {
			tok.Attributes[key] = attr[1]
		} else {
			tok.Attributes[key] = true
		}
	}
	return tok, true
}

// tokensFromHeaders 在 HAR 未提供 cookies 时从 Set-Cookie 头提取令牌
func tokensFromHeaders(headers []header) []domain.SessionToken {
	var out []domain.SessionToken
	for _, h := range headers {
		if !strings.EqualFold(h.Name, "Set-Cookie") {
			continue
		}
		// 部分导出工具将多个 Set-Cookie 合并为换行分隔
		for _, line := range strings.Split(h.Value, "\n") {
			if tok, ok := parseSetCookie(line); ok {
				out = append(out, tok)
			}
		}
	}
	return out
}
