package query

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ============================================================================
// 通用列表查询
// ============================================================================
//
// 查询参数 -> Params -> 按 Schema 白名单编译成 WHERE / ORDER / SELECT -> 分页
//
// 【关键点】
//   1. 过滤值只通过占位符传入，列名只来自 Schema，不拼接用户输入
//   2. 计数和取数据基于同一组条件，计数不受分页影响
//   3. 过滤值无法按字段类型解析时返回空结果，不报错
//   4. 关联字段的过滤和排序在 JOIN 之后执行
//
// ============================================================================

// ErrInvalidValue 过滤值无法解析，调用方得到空结果
var ErrInvalidValue = errors.New("过滤值无法解析")

type condition struct {
	sql  string
	args []interface{}
}

type plan struct {
	conds   []condition
	orders  []string
	columns []string
	join    bool
}

// Find 按参数查询一页数据，scopes 用于附加业务范围条件（如只查自己的缴费）
func Find[T any](ctx context.Context, db *gorm.DB, schema *Schema, params Params, scopes ...func(*gorm.DB) *gorm.DB) (*Page[T], error) {
	page, limit := resolvePage(schema, params)

	pl, err := compile(db.Dialector.Name(), schema, params)
	if errors.Is(err, ErrInvalidValue) {
		return &Page[T]{
			Success:    true,
			Pagination: newPagination(page, limit, 0),
			Data:       []T{},
		}, nil
	}
	if err != nil {
		return nil, err
	}

	tx := db.WithContext(ctx).Model(new(T)).Scopes(scopes...)
	if pl.join {
		tx = tx.Joins(schema.Join)
	}
	for _, c := range pl.conds {
		tx = tx.Where(c.sql, c.args...)
	}
	base := tx.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("统计数量失败: %w", err)
	}

	pagination := newPagination(page, limit, total)
	if page > pagination.Pages {
		// 超出最后一页，直接返回空页
		return &Page[T]{Success: true, Pagination: pagination, Data: []T{}}, nil
	}

	data := make([]T, 0, limit)
	q := base
	if len(pl.columns) > 0 {
		q = q.Select(pl.columns)
	}
	for _, o := range pl.orders {
		q = q.Order(o)
	}
	for _, rel := range schema.Preload {
		q = q.Preload(rel)
	}
	if err := q.Offset((page - 1) * limit).Limit(limit).Find(&data).Error; err != nil {
		return nil, fmt.Errorf("查询列表失败: %w", err)
	}

	for i := range data {
		if s, ok := any(&data[i]).(Sanitizer); ok {
			s.Sanitize()
		}
	}

	return &Page[T]{
		Success:    true,
		Count:      len(data),
		Pagination: pagination,
		Data:       data,
	}, nil
}

func compile(dialect string, s *Schema, p Params) (*plan, error) {
	pl := &plan{}

	for _, f := range p.Filters {
		field, ok := s.Fields[f.Field]
		if !ok {
			continue
		}
		c, err := compileFilter(dialect, field, f)
		if err != nil {
			return nil, err
		}
		pl.conds = append(pl.conds, c)
		pl.join = pl.join || field.Join
	}

	if p.Keyword != "" && s.KeywordField != "" {
		if field, ok := s.Fields[s.KeywordField]; ok {
			pl.conds = append(pl.conds, containsCond(field.Column, p.Keyword))
			pl.join = pl.join || field.Join
		}
	}

	dateField, hasDate := s.Fields[s.DateField]
	if hasDate {
		if p.StartDate != "" {
			start, _, err := ParseDay(p.StartDate)
			if err != nil {
				return nil, ErrInvalidValue
			}
			pl.conds = append(pl.conds, condition{sql: dateField.Column + " >= ?", args: []interface{}{start}})
		}
		if p.EndDate != "" {
			_, end, err := ParseDay(p.EndDate)
			if err != nil {
				return nil, ErrInvalidValue
			}
			pl.conds = append(pl.conds, condition{sql: dateField.Column + " <= ?", args: []interface{}{end}})
		}
		if s.MonthFilter && (p.Month != "" || p.Year != "") {
			month, merr := strconv.Atoi(p.Month)
			year, yerr := strconv.Atoi(p.Year)
			if merr != nil || yerr != nil || month < 1 || month > 12 || year < 1 {
				return nil, ErrInvalidValue
			}
			start, end := MonthRange(year, time.Month(month))
			pl.conds = append(pl.conds, condition{
				sql:  dateField.Column + " BETWEEN ? AND ?",
				args: []interface{}{start, end},
			})
		}
	}

	for _, sf := range p.Sort {
		field, ok := s.Fields[sf.Field]
		if !ok {
			continue
		}
		pl.orders = append(pl.orders, orderBy(field.Column, sf.Desc))
		pl.join = pl.join || field.Join
	}
	firstDesc := true
	if len(pl.orders) == 0 {
		if hasDate {
			pl.orders = append(pl.orders, orderBy(dateField.Column, true))
		}
	} else {
		firstDesc = strings.HasSuffix(pl.orders[0], " DESC")
	}
	pl.orders = append(pl.orders, orderBy(s.Table+".id", firstDesc))

	if len(p.Select) > 0 {
		pl.columns = append(pl.columns, s.Table+".id")
		for _, col := range s.Required {
			pl.columns = append(pl.columns, s.Table+"."+col)
		}
		for _, name := range p.Select {
			field, ok := s.Fields[name]
			if !ok || field.Join || name == "id" {
				continue
			}
			pl.columns = append(pl.columns, field.Column)
		}
	} else if pl.join {
		// JOIN 后只取主表列，避免同名列覆盖
		pl.columns = []string{s.Table + ".*"}
	}

	return pl, nil
}

func compileFilter(dialect string, field Field, f Filter) (condition, error) {
	col := field.Column
	op := f.Op

	if op == OpEquals && field.Partial && field.Kind == KindString {
		op = OpContains
	}

	switch op {
	case OpContains:
		if field.Kind != KindString {
			return condition{}, ErrInvalidValue
		}
		return containsCond(col, f.Value), nil

	case OpRegex:
		if field.Kind != KindString {
			return condition{}, ErrInvalidValue
		}
		if _, err := regexp.Compile(f.Value); err != nil {
			return condition{}, ErrInvalidValue
		}
		switch dialect {
		case "mysql":
			return condition{sql: col + " REGEXP ?", args: []interface{}{f.Value}}, nil
		case "postgres":
			return condition{sql: col + " ~* ?", args: []interface{}{f.Value}}, nil
		default:
			return containsCond(col, f.Value), nil
		}

	case OpIn:
		var values []interface{}
		for _, raw := range splitList(f.Value) {
			v, err := parseValue(field.Kind, raw)
			if err != nil {
				return condition{}, err
			}
			values = append(values, v)
		}
		if len(values) == 0 {
			return condition{}, ErrInvalidValue
		}
		return condition{sql: col + " IN ?", args: []interface{}{values}}, nil
	}

	if field.Kind == KindTime {
		start, end, err := parseInstant(f.Value)
		if err != nil {
			return condition{}, ErrInvalidValue
		}
		switch op {
		case OpEquals:
			return condition{sql: col + " BETWEEN ? AND ?", args: []interface{}{start, end}}, nil
		case OpGreaterThan:
			return condition{sql: col + " > ?", args: []interface{}{end}}, nil
		case OpGreaterOrEqual:
			return condition{sql: col + " >= ?", args: []interface{}{start}}, nil
		case OpLessThan:
			return condition{sql: col + " < ?", args: []interface{}{start}}, nil
		case OpLessOrEqual:
			return condition{sql: col + " <= ?", args: []interface{}{end}}, nil
		}
		return condition{}, ErrInvalidValue
	}

	v, err := parseValue(field.Kind, f.Value)
	if err != nil {
		return condition{}, err
	}
	switch op {
	case OpEquals:
		return condition{sql: col + " = ?", args: []interface{}{v}}, nil
	case OpGreaterThan:
		return condition{sql: col + " > ?", args: []interface{}{v}}, nil
	case OpGreaterOrEqual:
		return condition{sql: col + " >= ?", args: []interface{}{v}}, nil
	case OpLessThan:
		return condition{sql: col + " < ?", args: []interface{}{v}}, nil
	case OpLessOrEqual:
		return condition{sql: col + " <= ?", args: []interface{}{v}}, nil
	}
	return condition{}, ErrInvalidValue
}

func parseValue(kind Kind, raw string) (interface{}, error) {
	switch kind {
	case KindInt:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, ErrInvalidValue
		}
		return v, nil
	case KindBool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, ErrInvalidValue
		}
		return v, nil
	case KindTime:
		start, _, err := parseInstant(raw)
		if err != nil {
			return nil, ErrInvalidValue
		}
		return start, nil
	default:
		return raw, nil
	}
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// containsCond 大小写不敏感的模糊匹配，通配符按字面量处理
func containsCond(col, value string) condition {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(value)) + "%"
	return condition{sql: "LOWER(" + col + ") LIKE ? ESCAPE '!'", args: []interface{}{pattern}}
}

func orderBy(col string, desc bool) string {
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}
