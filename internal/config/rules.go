package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules 规则定义集合，键为规则名，值为规则定义
//
// HEADERS 开头的键值为逗号分隔的响应头名列表，
// RESPONSE 开头的键值为 "显示名_____grep表达式_____正则表达式"
type Rules map[string]string

// ruleFile 规则文件结构
type ruleFile struct {
	Rules map[string]string `yaml:"rules"`
}

// LoadRuleFile 从 YAML 文件加载规则定义
func LoadRuleFile(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取规则文件失败: %w", err)
	}
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("解析规则文件失败: %w", err)
	}
	if f.Rules == nil {
		return Rules{}, nil
	}
	return Rules(f.Rules), nil
}

// Keys 返回排序后的全部规则键
func (r Rules) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get 获取规则定义，键可带或不带 @@@ 包裹
func (r Rules) Get(key string) string {
	if v, ok := r[key]; ok {
		return v
	}
	return r["@@@"+key+"@@@"]
}

// HeaderList 返回响应头规则的头名列表
func (r Rules) HeaderList(key string) []string {
	var headers []string
	for _, h := range strings.Split(r.Get(key), ",") {
		if h = strings.TrimSpace(h); h != "" {
			headers = append(headers, h)
		}
	}
	return headers
}
