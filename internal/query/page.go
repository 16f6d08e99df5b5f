package query

const (
	DefaultPage  = 1
	DefaultLimit = 100
	MaxLimit     = 1000
)

type Cursor struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type Pagination struct {
	Page     int     `json:"page"`
	Pages    int     `json:"pages"`
	Previous *Cursor `json:"previous,omitempty"`
	Next     *Cursor `json:"next,omitempty"`
}

// Page 列表查询统一返回结构
type Page[T any] struct {
	Success    bool       `json:"success"`
	Count      int        `json:"count"`
	Pagination Pagination `json:"pagination"`
	Data       []T        `json:"data"`
}

// Sanitizer 返回前需要清除敏感字段的实体
type Sanitizer interface {
	Sanitize()
}

func newPagination(page, limit int, total int64) Pagination {
	pages := int((total + int64(limit) - 1) / int64(limit))
	if pages < 1 {
		pages = 1
	}
	p := Pagination{Page: page, Pages: pages}
	// 只比较页号，避免超大 page 相乘溢出
	if page > 1 {
		p.Previous = &Cursor{Page: page - 1, Limit: limit}
	}
	if page < pages {
		p.Next = &Cursor{Page: page + 1, Limit: limit}
	}
	return p
}

func resolvePage(s *Schema, p Params) (page, limit int) {
	page, limit = p.Page, p.Limit
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = s.defaultLimit()
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}
