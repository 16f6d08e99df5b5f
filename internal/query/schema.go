package query

// Kind 字段值类型，决定过滤值如何解析
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
	KindTime
)

// Field 对外字段到数据库列的映射
type Field struct {
	Column  string // 带表名的列，如 payments.amount
	Kind    Kind
	Join    bool // 列属于关联表，使用前需要 JOIN
	Partial bool // 等值过滤按大小写不敏感的模糊匹配处理
}

// Schema 描述一个实体允许被查询的字段
type Schema struct {
	Table        string
	Fields       map[string]Field
	DateField    string // 默认排序和 startDate/endDate 作用的字段
	KeywordField string
	MonthFilter  bool // 是否支持 month + year 过滤
	DefaultLimit int
	Join         string   // 关联表的 JOIN 子句
	Required     []string // select 投影时必须保留的列（如预加载用到的外键）
	Preload      []string
}

func (s *Schema) defaultLimit() int {
	if s.DefaultLimit > 0 {
		return s.DefaultLimit
	}
	return DefaultLimit
}
