package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// SqliteConfig 存储配置，每个目标一个数据库文件
type SqliteConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string   `yaml:"level" mapstructure:"level"`
	Writer []string `yaml:"writer" mapstructure:"writer"`
	File   string   `yaml:"file" mapstructure:"file"`
}

// ServerConfig HTTP 接口配置
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// RulesConfig 规则定义文件配置
type RulesConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// TargetConfig 目标分区配置
type TargetConfig struct {
	Default   string `yaml:"default" mapstructure:"default"`
	CacheSize int    `yaml:"cache_size" mapstructure:"cache_size"`
}

// Config 配置文件结构体
type Config struct {
	Version string       `yaml:"version" mapstructure:"version"`
	Sqlite  SqliteConfig `yaml:"sqlite" mapstructure:"sqlite"`
	Log     LogConfig    `yaml:"log" mapstructure:"log"`
	Server  ServerConfig `yaml:"server" mapstructure:"server"`
	Rules   RulesConfig  `yaml:"rules" mapstructure:"rules"`
	Target  TargetConfig `yaml:"target" mapstructure:"target"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Version: "1.0.0",
		Sqlite: SqliteConfig{
			Dir:    "",
			Prefix: "txdb_",
		},
		Log: LogConfig{
			Level:  "info",
			Writer: []string{"console"},
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8009",
		},
		Target: TargetConfig{
			Default:   "default",
			CacheSize: 16,
		},
	}
}

// Load 读取配置文件并应用 TXDB_ 前缀的环境变量，path 为空时在默认位置查找
func Load(path string) (*Config, error) {
	v := viper.New()
	def := NewConfig()
	v.SetDefault("version", def.Version)
	v.SetDefault("sqlite.dir", def.Sqlite.Dir)
	v.SetDefault("sqlite.prefix", def.Sqlite.Prefix)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.writer", def.Log.Writer)
	v.SetDefault("log.file", def.Log.File)
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("rules.file", def.Rules.File)
	v.SetDefault("target.default", def.Target.Default)
	v.SetDefault("target.cache_size", def.Target.CacheSize)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("txdb")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/txdb")
	}

	v.SetEnvPrefix("TXDB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 未指定路径且找不到配置文件时使用默认值
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("读取配置失败: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	return cfg, nil
}
