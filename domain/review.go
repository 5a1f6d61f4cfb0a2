package domain

import (
	"github.com/fundwit/go-commons/types"
)

type Review struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	ProjectID types.ID `json:"projectId" gorm:"unique_index:uix_review_once"`

	ReviewerID   types.ID `json:"reviewerId" gorm:"unique_index:uix_review_once"`
	ReviewerName string   `json:"reviewerName"`
	RevieweeID   types.ID `json:"revieweeId" gorm:"unique_index:uix_review_once"`

	Rating  int    `json:"rating"`
	Comment string `json:"comment" sql:"type:TEXT"`

	// detail scores are optional, zero means not rated
	Professionalism int `json:"professionalism"`
	Communication   int `json:"communication"`
	Expertise       int `json:"expertise"`
	Quality         int `json:"quality"`
	Punctuality     int `json:"punctuality"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6)"`
}

func (r *Review) TableName() string {
	return "reviews"
}

type ReviewCreation struct {
	ProjectID  types.ID `json:"projectId" validate:"required"`
	RevieweeID types.ID `json:"revieweeId" validate:"required"`

	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment"`

	Professionalism int `json:"professionalism" validate:"gte=0,lte=5"`
	Communication   int `json:"communication" validate:"gte=0,lte=5"`
	Expertise       int `json:"expertise" validate:"gte=0,lte=5"`
	Quality         int `json:"quality" validate:"gte=0,lte=5"`
	Punctuality     int `json:"punctuality" validate:"gte=0,lte=5"`
}

type ReviewQuery struct {
	ProjectID  types.ID `form:"projectId"`
	RevieweeID types.ID `form:"revieweeId"`
	Page       int      `form:"page"`
	Size       int      `form:"size"`
}

type ReviewList struct {
	Reviews       []Review `json:"reviews"`
	AverageRating float64  `json:"averageRating"`
	Total         uint64   `json:"total"`
}
