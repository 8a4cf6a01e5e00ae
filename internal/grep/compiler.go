// Package grep 将命名规则编译为内容匹配器，并对事务的响应头/响应体执行扫描
package grep

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"

	"txdb/internal/logger"
	"txdb/internal/regexutil"
	"txdb/pkg/domain"
	"txdb/pkg/errx"
)

const (
	// HeaderPrefix 响应头规则键前缀
	HeaderPrefix = "HEADERS"
	// BodyPrefix 响应体规则键前缀
	BodyPrefix = "RESPONSE"

	fieldSeparator = "_____"
	keyWrapper     = "@@@"
)

// Provider 规则定义提供方
type Provider interface {
	// Keys 返回全部配置键
	Keys() []string
	// Get 返回键对应的配置值
	Get(key string) string
	// HeaderList 返回响应头规则的头名列表
	HeaderList(key string) []string
}

// Kind 规则类型
type Kind int

const (
	KindHeader Kind = iota
	KindBody
)

// Rule 已编译的规则
type Rule struct {
	Name   string
	Kind   Kind
	Regexp *regexp.Regexp
}

// RuleSet 一次编译得到的完整规则集，编译后只读
type RuleSet struct {
	headers []Rule
	bodies  []Rule
}

// Len 返回规则数量
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.headers) + len(rs.bodies)
}

// Names 返回全部规则名，响应头规则在前
func (rs *RuleSet) Names() []string {
	if rs == nil {
		return nil
	}
	names := make([]string, 0, rs.Len())
	for _, r := range rs.headers {
		names = append(names, r.Name)
	}
	for _, r := range rs.bodies {
		names = append(names, r.Name)
	}
	return names
}

// Compile 从配置中提取 HEADERS/RESPONSE 规则并编译
// 任一规则定义非法时整体失败，不跳过
func Compile(p Provider, cache *regexutil.Cache) (*RuleSet, error) {
	if cache == nil {
		cache = regexutil.New()
	}
	rs := &RuleSet{}
	for _, rawKey := range p.Keys() {
		key := normalizeKey(rawKey)
		switch {
		case strings.HasPrefix(key, HeaderPrefix):
			re, err := compileHeaderRule(cache, key, p.HeaderList(key))
			if err != nil {
				return nil, err
			}
			rs.headers = append(rs.headers, Rule{Name: key, Kind: KindHeader, Regexp: re})
		case strings.HasPrefix(key, BodyPrefix):
			re, err := compileBodyRule(cache, key, p.Get(key))
			if err != nil {
				return nil, err
			}
			rs.bodies = append(rs.bodies, Rule{Name: key, Kind: KindBody, Regexp: re})
		}
	}
	sort.Slice(rs.headers, func(i, j int) bool { return rs.headers[i].Name < rs.headers[j].Name })
	sort.Slice(rs.bodies, func(i, j int) bool { return rs.bodies[i].Name < rs.bodies[j].Name })
	return rs, nil
}

// compileHeaderRule 编译响应头规则，捕获 (头名, 头值)
func compileHeaderRule(cache *regexutil.Cache, key string, headers []string) (*regexp.Regexp, error) {
	if len(headers) == 0 {
		return nil, configError(key, "响应头列表为空", nil)
	}
	pattern := "(" + strings.Join(headers, "|") + "): ([^\r]*)"
	re, err := cache.Compile(pattern, regexutil.IgnoreCase)
	if err != nil {
		return nil, configError(key, "响应头正则编译失败", err)
	}
	return re, nil
}

// compileBodyRule 编译响应体规则，值格式为 "显示名_____grep表达式_____正则表达式"
func compileBodyRule(cache *regexutil.Cache, key, value string) (*regexp.Regexp, error) {
	fields := strings.Split(value, fieldSeparator)
	if len(fields) != 3 {
		return nil, configError(key, fmt.Sprintf("规则定义应包含 3 个字段，实际 %d 个", len(fields)), nil)
	}
	re, err := cache.Compile(fields[2], regexutil.IgnoreCase|regexutil.DotAll)
	if err != nil {
		return nil, configError(key, "响应体正则编译失败", err)
	}
	return re, nil
}

func configError(key, msg string, cause error) error {
	if cause == nil {
		cause = domain.ErrInvalidRuleConfig
	} else {
		cause = fmt.Errorf("%w: %v", domain.ErrInvalidRuleConfig, cause)
	}
	return errx.Wrap(errx.CodeInvalidRuleConfig, cause, fmt.Sprintf("规则 %s: %s", key, msg))
}

// normalizeKey 去除配置键的 @@@ 包裹
func normalizeKey(key string) string {
	if strings.HasPrefix(key, keyWrapper) && strings.HasSuffix(key, keyWrapper) && len(key) >= 2*len(keyWrapper) {
		return key[len(keyWrapper) : len(key)-len(keyWrapper)]
	}
	return key
}

// Compiler 持有当前生效的规则集，重新加载时整体替换
type Compiler struct {
	cache   *regexutil.Cache
	current atomic.Pointer[RuleSet]
	log     logger.Logger
}

// NewCompiler 创建编译器并立即完成首次编译
func NewCompiler(p Provider, l logger.Logger) (*Compiler, error) {
	if l == nil {
		l = logger.NewNop()
	}
	c := &Compiler{cache: regexutil.New(), log: l}
	if err := c.Reload(p); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload 重新编译规则，失败时保留原规则集
func (c *Compiler) Reload(p Provider) error {
	rs, err := Compile(p, c.cache)
	if err != nil {
		c.log.Err(err, "规则编译失败")
		return err
	}
	c.current.Store(rs)
	c.log.Info("规则已加载", "headers", len(rs.headers), "bodies", len(rs.bodies))
	return nil
}

// Rules 返回当前规则集
func (c *Compiler) Rules() *RuleSet {
	return c.current.Load()
}
