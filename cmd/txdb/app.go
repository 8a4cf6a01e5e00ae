package main

import (
	"encoding/json"
	"fmt"
	"io"

	"txdb/internal/audit"
	"txdb/internal/config"
	"txdb/internal/grep"
	"txdb/internal/logger"
	"txdb/internal/storage/target"
	api "txdb/pkg/api"
	"txdb/pkg/domain"
)

// app 命令运行时依赖
type app struct {
	log      logger.Logger
	registry *target.Registry
	recorder *audit.Recorder
	svc      api.Service
}

func newApp(c *config.Config) (*app, error) {
	log := logger.New(logger.Options{
		Level:    c.Log.Level,
		Writers:  c.Log.Writer,
		FilePath: c.Log.File,
	})

	rules, err := loadRules(c)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		log.Warn("未配置规则文件，匹配索引为空")
	}
	compiler, err := grep.NewCompiler(rules, log)
	if err != nil {
		return nil, err
	}

	registry, err := target.New(target.Options{
		Dir:       c.Sqlite.Dir,
		Prefix:    c.Sqlite.Prefix,
		Default:   domain.TargetID(c.Target.Default),
		CacheSize: c.Target.CacheSize,
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}

	recorder := audit.New(nil, log)
	svc, err := api.NewService(api.Options{
		Registry: registry,
		Compiler: compiler,
		Recorder: recorder,
		Logger:   log,
	})
	if err != nil {
		_ = registry.Close()
		return nil, err
	}
	return &app{log: log, registry: registry, recorder: recorder, svc: svc}, nil
}

func loadRules(c *config.Config) (config.Rules, error) {
	if c.Rules.File == "" {
		return config.Rules{}, nil
	}
	return config.LoadRuleFile(c.Rules.File)
}

func (a *app) Close() error {
	return a.registry.Close()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
