package db_test

import (
	"strings"
	"testing"

	"txdb/internal/storage/db"
)

// TestModel 定义一个用于测试数据库迁移和基础操作的简单模型。
type TestModel struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:255"`
}

// TestGetDefaultPath 测试数据库默认存储路径的生成逻辑。
func TestGetDefaultPath(t *testing.T) {
	dbName := "acme.db"
	path, err := db.GetDefaultPath(dbName)
	if err != nil {
		t.Fatalf("获取默认路径失败: %v", err)
	}

	if !strings.HasSuffix(path, dbName) {
		t.Errorf("路径 %s 不是以 %s 结尾", path, dbName)
	}
	if !strings.Contains(path, "txdb") {
		t.Errorf("路径 %s 不包含应用名称 'txdb'", path)
	}
}

// TestDatabaseInitialization 测试数据库的初始化、连接以及自动迁移功能。
// 验证表前缀配置、SingularTable 策略以及基本的数据读写。
func TestDatabaseInitialization(t *testing.T) {
	gdb, err := db.New(db.Options{
		Dir:    t.TempDir(),
		Name:   "unit_test.db",
		Prefix: "test_",
	})
	if err != nil {
		t.Fatalf("初始化数据库连接失败: %v", err)
	}
	defer db.Close(gdb)

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("获取底层的 sql.DB 失败: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		t.Errorf("数据库 Ping 失败: %v", err)
	}

	if err := db.Migrate(gdb, &TestModel{}); err != nil {
		t.Fatalf("执行数据库迁移失败: %v", err)
	}

	if err := gdb.Create(&TestModel{Name: "clean_code"}).Error; err != nil {
		t.Errorf("向迁移后的表中写入数据失败: %v", err)
	}

	var count int64
	if err := gdb.Model(&TestModel{}).Count(&count).Error; err != nil {
		t.Errorf("查询记录数失败: %v", err)
	}
	if count != 1 {
		t.Errorf("预期记录数为 1，实际为 %d", count)
	}

	// 验证物理表名是否符合前缀规则
	var tableName string
	row := sqlDB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='test_test_model'")
	if err := row.Scan(&tableName); err != nil {
		t.Errorf("未找到预期的带前缀表名 'test_test_model': %v", err)
	}
}

// TestMemoryDatabase 验证内存库可用且不创建文件
func TestMemoryDatabase(t *testing.T) {
	gdb, err := db.New(db.Options{FullPath: db.MemoryPath})
	if err != nil {
		t.Fatalf("创建内存数据库失败: %v", err)
	}
	defer db.Close(gdb)

	if err := db.Migrate(gdb, &TestModel{}); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}
	// 单连接下两次操作应看到同一个库
	gdb.Create(&TestModel{Name: "a"})
	var count int64
	gdb.Model(&TestModel{}).Count(&count)
	if count != 1 {
		t.Errorf("预期记录数为 1，实际为 %d", count)
	}
}
