package grep

import (
	"encoding/json"
	"regexp"
)

// Match 一次匹配的捕获内容
// 无分组时为整体匹配，否则为各分组的值
type Match []string

// Value 返回结构化值：单个捕获为字符串，多个捕获为字符串列表
func (m Match) Value() any {
	if len(m) == 1 {
		return m[0]
	}
	return []string(m)
}

// MarshalJSON 输出与 Value 一致的规范编码，相同匹配的编码结果相同
func (m Match) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Value())
}

// Scan 对响应头与响应体执行全部规则，只返回有匹配的规则
func (rs *RuleSet) Scan(headers, body string) map[string][]Match {
	out := make(map[string][]Match)
	if rs == nil {
		return out
	}
	for _, r := range rs.headers {
		if matches := findAll(r.Regexp, headers); len(matches) > 0 {
			out[r.Name] = matches
		}
	}
	for _, r := range rs.bodies {
		if matches := findAll(r.Regexp, body); len(matches) > 0 {
			out[r.Name] = matches
		}
	}
	return out
}

// findAll 按文本顺序返回所有不重叠的匹配
func findAll(re *regexp.Regexp, data string) []Match {
	found := re.FindAllStringSubmatch(data, -1)
	if len(found) == 0 {
		return nil
	}
	matches := make([]Match, 0, len(found))
	for _, groups := range found {
		if len(groups) == 1 {
			matches = append(matches, Match{groups[0]})
			continue
		}
		matches = append(matches, Match(append([]string(nil), groups[1:]...)))
	}
	return matches
}
