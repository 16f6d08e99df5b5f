package query

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Op 过滤操作符
type Op string

const (
	OpEquals         Op = "eq"
	OpGreaterThan    Op = "gt"
	OpGreaterOrEqual Op = "gte"
	OpLessThan       Op = "lt"
	OpLessOrEqual    Op = "lte"
	OpIn             Op = "in"
	OpRegex          Op = "regex"
	OpContains       Op = "contains"
)

var bracketOps = map[string]Op{
	"gt":       OpGreaterThan,
	"gte":      OpGreaterOrEqual,
	"lt":       OpLessThan,
	"lte":      OpLessOrEqual,
	"in":       OpIn,
	"regex":    OpRegex,
	"contains": OpContains,
}

// 保留参数，不参与字段过滤
var reservedKeys = map[string]struct{}{
	"select":    {},
	"sort":      {},
	"page":      {},
	"limit":     {},
	"startDate": {},
	"endDate":   {},
	"keyword":   {},
	"month":     {},
	"year":      {},
}

// amount[gte]=500
var bracketKey = regexp.MustCompile(`^([A-Za-z0-9_.]+)\[([A-Za-z]+)\]$`)

// Filter 类型化的过滤表达式，Field 为对外字段名，由 Schema 白名单翻译成列
type Filter struct {
	Field string
	Op    Op
	Value string
}

type SortField struct {
	Field string
	Desc  bool
}

// Params 列表查询参数
// Page、Limit 为 0 表示未指定（或非法），使用默认值
type Params struct {
	Select    []string
	Sort      []SortField
	Page      int
	Limit     int
	StartDate string
	EndDate   string
	Keyword   string
	Month     string
	Year      string
	Filters   []Filter
}

// ParseParams 从 URL 查询参数中提取保留参数和字段过滤条件
func ParseParams(values url.Values) Params {
	p := Params{
		Select:    splitList(values.Get("select")),
		Sort:      parseSort(values.Get("sort")),
		Page:      parsePositive(values.Get("page")),
		Limit:     parsePositive(values.Get("limit")),
		StartDate: strings.TrimSpace(values.Get("startDate")),
		EndDate:   strings.TrimSpace(values.Get("endDate")),
		Keyword:   strings.TrimSpace(values.Get("keyword")),
		Month:     strings.TrimSpace(values.Get("month")),
		Year:      strings.TrimSpace(values.Get("year")),
	}

	// map 遍历无序，排序保证生成的 SQL 稳定
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, ok := reservedKeys[key]; ok {
			continue
		}
		field, op := key, OpEquals
		if m := bracketKey.FindStringSubmatch(key); m != nil {
			mapped, ok := bracketOps[strings.ToLower(m[2])]
			if !ok {
				continue
			}
			field, op = m[1], mapped
		}
		for _, v := range values[key] {
			p.Filters = append(p.Filters, Filter{Field: field, Op: op, Value: strings.TrimSpace(v)})
		}
	}
	return p
}

func parseSort(raw string) []SortField {
	var fields []SortField
	for _, item := range splitList(raw) {
		desc := strings.HasPrefix(item, "-")
		name := strings.TrimLeft(item, "-+")
		if name == "" {
			continue
		}
		fields = append(fields, SortField{Field: name, Desc: desc})
	}
	return fields
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parsePositive(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0
	}
	return n
}
