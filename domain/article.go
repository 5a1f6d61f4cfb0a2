package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fundwit/go-commons/types"
)

const (
	ArticleStatePending   = "PENDING"
	ArticleStatePublished = "PUBLISHED"
	ArticleStateRejected  = "REJECTED"
)

type Article struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	Title string `json:"title"`
	// Slug is derived from the title and addresses the published article.
	Slug    string `json:"slug" gorm:"unique_index"`
	Content string `json:"content" sql:"type:TEXT"`
	Excerpt string `json:"excerpt"`

	AuthorID   types.ID `json:"authorId"`
	AuthorName string   `json:"authorName"`

	StateName string      `json:"stateName"`
	Tags      ArticleTags `json:"tags" sql:"type:TEXT"`

	Views uint64 `json:"views"`
	Likes uint64 `json:"likes"`

	PublishTime types.Timestamp `json:"publishTime" sql:"type:DATETIME(6)"`
	CreateTime  types.Timestamp `json:"createTime" sql:"type:DATETIME(6)"`
}

func (a *Article) TableName() string {
	return "articles"
}

type ArticleTags []string

func (t ArticleTags) Value() (driver.Value, error) {
	jsonBytes, err := json.Marshal(&t)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (t *ArticleTags) Scan(v interface{}) error {
	jsonString, ok := v.(string)
	if !ok {
		jsonByte, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("type is neither string nor []byte: %T %v", v, v)
		}
		jsonString = string(jsonByte)
	}
	return json.Unmarshal([]byte(jsonString), t)
}

type ArticleCreation struct {
	Title   string      `json:"title" validate:"required"`
	Content string      `json:"content" validate:"required"`
	Excerpt string      `json:"excerpt"`
	Tags    ArticleTags `json:"tags"`
}

type ArticleUpdating struct {
	Title   string      `json:"title" validate:"required"`
	Content string      `json:"content" validate:"required"`
	Excerpt string      `json:"excerpt"`
	Tags    ArticleTags `json:"tags"`
}

type ArticleQuery struct {
	StateName string   `form:"state"`
	AuthorID  types.ID `form:"authorId"`
	Page      int      `form:"page"`
	Size      int      `form:"size"`
}
