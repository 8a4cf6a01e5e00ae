package config

import "strings"

// ConvertStrToBool 按约定的真值字符串转换为布尔值
func ConvertStrToBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "on", "1":
		return true
	}
	return false
}
