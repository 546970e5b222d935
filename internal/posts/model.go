// Package posts はブログ記事の作成・閲覧・編集・削除を提供します。
package posts

import (
	"strings"
	"time"
)

// Category は記事のカテゴリーです。
type Category string

const (
	CategoryAgriculture   Category = "Agriculture"
	CategoryBusiness      Category = "Business"
	CategoryEducation     Category = "Education"
	CategoryEntertainment Category = "Entertainment"
	CategoryArt           Category = "Art"
	CategoryInvestment    Category = "Investment"
	CategoryUncategorized Category = "Uncategorized"
	CategoryWeather       Category = "Weather"
)

var categories = []Category{
	CategoryAgriculture,
	CategoryBusiness,
	CategoryEducation,
	CategoryEntertainment,
	CategoryArt,
	CategoryInvestment,
	CategoryUncategorized,
	CategoryWeather,
}

// ParseCategory は大文字小文字を区別せずにカテゴリー名を解釈します。
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range categories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}

// Post はブログ記事です。Creator は作成者の利用者IDです。
type Post struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Category    Category  `json:"category"`
	Description string    `json:"description"`
	Creator     string    `json:"creator"`
	Thumbnail   string    `json:"thumbnail"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PostUpdate は編集で変更できる項目です。Thumbnail が空の場合は変更しません。
type PostUpdate struct {
	Title       string
	Category    Category
	Description string
	Thumbnail   string
}

// Filter は一覧取得の絞り込み条件です。空の項目は条件にしません。
type Filter struct {
	Category Category
	Creator  string
}

func (p *Post) clone() *Post {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
