package query

import (
	"gorm.io/gorm"
)

// Build 将查询条件应用到 db 上，不执行查询
//
// forStats 为 true 时不应用分页，用于统计过滤后的总数。
func Build(db *gorm.DB, c Criteria, forStats bool) *gorm.DB {
	if c.Mode == ModeSearch {
		for _, f := range searchFields {
			vals := nonEmpty(c.Values[f])
			if len(vals) == 0 {
				continue
			}
			if f == FieldResponseBody {
				db = db.Where("binary_response = ?", false)
			}
			// instr 区分大小写，sqlite 的 LIKE 对 ASCII 不区分
			db = db.Where("instr("+string(f)+", ?) > 0", vals[0])
		}
	} else {
		for _, f := range filterFields {
			vals := nonEmpty(c.Values[f])
			switch len(vals) {
			case 0:
			case 1:
				db = db.Where(string(f)+" = ?", vals[0])
			default:
				db = db.Where(string(f)+" IN ?", vals)
			}
		}
	}

	if c.Scope != nil {
		db = db.Where("scope = ?", *c.Scope)
	}
	if c.BinaryResponse != nil {
		db = db.Where("binary_response = ?", *c.BinaryResponse)
	}

	if !forStats {
		if c.Offset != nil && *c.Offset > 0 {
			db = db.Offset(*c.Offset)
		}
		if c.Limit != nil && *c.Limit >= 0 {
			db = db.Limit(*c.Limit)
		}
	}
	return db
}

// Scoped 返回可用于 gorm Scopes 的作用域函数
func (c Criteria) Scoped(forStats bool) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return Build(db, c, forStats)
	}
}

func nonEmpty(vals []string) []string {
	out := vals[:0:0]
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
