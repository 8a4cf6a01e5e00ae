package logger_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"txdb/internal/logger"
)

// TestNew_FileWriter 验证文件输出与字段写入
func TestNew_FileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l := logger.New(logger.Options{Level: "info", Writers: []string{"file"}, FilePath: path})

	l.Debug("debug 不应写入")
	l.With("target", "t1").Info("事务入库", "count", 3)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取日志文件失败: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "debug 不应写入") {
		t.Error("info 级别下不应输出 debug 日志")
	}
	if !strings.Contains(content, `"target":"t1"`) || !strings.Contains(content, `"count":3`) {
		t.Errorf("日志缺少字段: %s", content)
	}
}

// TestNew_NoWriters 验证无输出目标时返回空日志
func TestNew_NoWriters(t *testing.T) {
	l := logger.New(logger.Options{Level: "debug"})
	if l == nil {
		t.Fatal("New() 返回 nil")
	}
	l.Info("不会输出")
	l.With("k", "v").Err(os.ErrNotExist, "不会输出")
}
