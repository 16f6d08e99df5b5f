package repository

import (
	"societyhub/internal/query"
)

// 各实体允许的查询字段，对外字段名 -> 列

var AccountSchema = &query.Schema{
	Table: "accounts",
	Fields: map[string]query.Field{
		"id":           {Column: "accounts.id", Kind: query.KindInt},
		"name":         {Column: "accounts.name", Kind: query.KindString, Partial: true},
		"email":        {Column: "accounts.email", Kind: query.KindString, Partial: true},
		"mobileNumber": {Column: "accounts.mobile_number", Kind: query.KindString, Partial: true},
		"houseNumber":  {Column: "accounts.house_number", Kind: query.KindString},
		"houseType":    {Column: "accounts.house_type", Kind: query.KindInt},
		"dues":         {Column: "accounts.dues", Kind: query.KindInt},
		"status":       {Column: "accounts.status", Kind: query.KindString},
		"isAdmin":      {Column: "accounts.is_admin", Kind: query.KindBool},
		"createdAt":    {Column: "accounts.created_at", Kind: query.KindTime},
		"updatedAt":    {Column: "accounts.updated_at", Kind: query.KindTime},
	},
	DateField:    "createdAt",
	KeywordField: "name",
	DefaultLimit: 100,
	Preload:      []string{"Payments"},
}

var PaymentSchema = &query.Schema{
	Table: "payments",
	Fields: map[string]query.Field{
		"id":                {Column: "payments.id", Kind: query.KindInt},
		"paymentNo":         {Column: "payments.payment_no", Kind: query.KindString},
		"accountId":         {Column: "payments.account_id", Kind: query.KindInt},
		"amount":            {Column: "payments.amount", Kind: query.KindInt},
		"category":          {Column: "payments.category", Kind: query.KindString, Partial: true},
		"otherCategoryType": {Column: "payments.other_category_type", Kind: query.KindString, Partial: true},
		"description":       {Column: "payments.description", Kind: query.KindString, Partial: true},
		"status":            {Column: "payments.status", Kind: query.KindString, Partial: true},
		"date":              {Column: "payments.date", Kind: query.KindTime},
		"reviewedAt":        {Column: "payments.reviewed_at", Kind: query.KindTime},
		"createdAt":         {Column: "payments.created_at", Kind: query.KindTime},
		"houseType":         {Column: "accounts.house_type", Kind: query.KindInt, Join: true},
		"houseNumber":       {Column: "accounts.house_number", Kind: query.KindString, Join: true},
		"user.houseType":    {Column: "accounts.house_type", Kind: query.KindInt, Join: true},
		"user.houseNumber":  {Column: "accounts.house_number", Kind: query.KindString, Join: true},
		"user.name":         {Column: "accounts.name", Kind: query.KindString, Join: true, Partial: true},
		"user.email":        {Column: "accounts.email", Kind: query.KindString, Join: true, Partial: true},
	},
	DateField:    "date",
	KeywordField: "category",
	DefaultLimit: 100,
	Join:         "LEFT JOIN accounts ON accounts.id = payments.account_id",
	Required:     []string{"account_id"},
	Preload:      []string{"Account"},
}

var ExpenditureSchema = &query.Schema{
	Table: "expenditures",
	Fields: map[string]query.Field{
		"id":          {Column: "expenditures.id", Kind: query.KindInt},
		"category":    {Column: "expenditures.category", Kind: query.KindString, Partial: true},
		"description": {Column: "expenditures.description", Kind: query.KindString, Partial: true},
		"amount":      {Column: "expenditures.amount", Kind: query.KindInt},
		"date":        {Column: "expenditures.date", Kind: query.KindTime},
		"createdAt":   {Column: "expenditures.created_at", Kind: query.KindTime},
	},
	DateField:    "date",
	KeywordField: "category",
	MonthFilter:  true,
	DefaultLimit: 100,
}

var EarningSchema = &query.Schema{
	Table: "earnings",
	Fields: map[string]query.Field{
		"id":          {Column: "earnings.id", Kind: query.KindInt},
		"name":        {Column: "earnings.name", Kind: query.KindString, Partial: true},
		"category":    {Column: "earnings.category", Kind: query.KindString, Partial: true},
		"description": {Column: "earnings.description", Kind: query.KindString, Partial: true},
		"amount":      {Column: "earnings.amount", Kind: query.KindInt},
		"date":        {Column: "earnings.date", Kind: query.KindTime},
		"paymentId":   {Column: "earnings.payment_id", Kind: query.KindInt},
		"createdAt":   {Column: "earnings.created_at", Kind: query.KindTime},
	},
	DateField:    "date",
	KeywordField: "category",
	MonthFilter:  true,
	DefaultLimit: 100,
}

var AnnouncementSchema = &query.Schema{
	Table: "announcements",
	Fields: map[string]query.Field{
		"id":          {Column: "announcements.id", Kind: query.KindInt},
		"name":        {Column: "announcements.name", Kind: query.KindString, Partial: true},
		"description": {Column: "announcements.description", Kind: query.KindString, Partial: true},
		"createdAt":   {Column: "announcements.created_at", Kind: query.KindTime},
		"expiresAt":   {Column: "announcements.expires_at", Kind: query.KindTime},
	},
	DateField:    "createdAt",
	KeywordField: "name",
	DefaultLimit: 20,
}

var DocumentSchema = &query.Schema{
	Table: "documents",
	Fields: map[string]query.Field{
		"id":          {Column: "documents.id", Kind: query.KindInt},
		"name":        {Column: "documents.name", Kind: query.KindString, Partial: true},
		"description": {Column: "documents.description", Kind: query.KindString, Partial: true},
		"uploadedAt":  {Column: "documents.uploaded_at", Kind: query.KindTime},
	},
	DateField:    "uploadedAt",
	KeywordField: "name",
	DefaultLimit: 20,
}
