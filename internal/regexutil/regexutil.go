// Package regexutil 提供带并发安全缓存的正则表达式编译工具
package regexutil

import (
	"regexp"
	"sync"
)

// Flag 正则编译标志
type Flag uint8

const (
	// IgnoreCase 忽略大小写 (?i)
	IgnoreCase Flag = 1 << iota
	// DotAll 使 . 匹配换行 (?s)
	DotAll
)

// Expr 返回带内联标志前缀的正则表达式
func Expr(pattern string, flags Flag) string {
	prefix := ""
	if flags&IgnoreCase != 0 {
		prefix += "i"
	}
	if flags&DotAll != 0 {
		prefix += "s"
	}
	if prefix == "" {
		return pattern
	}
	return "(?" + prefix + ")" + pattern
}

// Cache 正则表达式编译器缓存
// 规则重新加载时未变化的表达式直接复用
type Cache struct {
	cache sync.Map
}

// New 创建一个新的正则缓存实例
func New() *Cache {
	return &Cache{}
}

// Get 获取编译后的正则表达式对象
func (c *Cache) Get(p string) (*regexp.Regexp, error) {
	return c.Compile(p, 0)
}

// Compile 按标志编译正则，已编译过的表达式从缓存返回
func (c *Cache) Compile(pattern string, flags Flag) (*regexp.Regexp, error) {
	expr := Expr(pattern, flags)
	if val, ok := c.cache.Load(expr); ok {
		return val.(*regexp.Regexp), nil
	}

	compiled, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}

	actual, _ := c.cache.LoadOrStore(expr, compiled)
	return actual.(*regexp.Regexp), nil
}
