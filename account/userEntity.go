package account

import (
	"github.com/fundwit/go-commons/types"
)

const (
	RoleAdmin      = "admin"
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
)

type User struct {
	ID       types.ID `json:"id" gorm:"primary_key"`
	Name     string   `json:"name" gorm:"unique_index:uni_user_name"`
	Nickname string   `json:"nickname"`
	Secret   string   `json:"-"`
	Role     string   `json:"role"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6)"`
}

func (u *User) TableName() string {
	return "users"
}

type UserCreation struct {
	Name     string `json:"name" validate:"required"`
	Nickname string `json:"nickname"`
	Secret   string `json:"secret" validate:"required,gte=6"`
	Role     string `json:"role" validate:"required,oneof=admin client freelancer"`
}

type UserInfo struct {
	ID       types.ID `json:"id"`
	Name     string   `json:"name"`
	Nickname string   `json:"nickname"`
	Role     string   `json:"role"`
}

type BasicAuthUpdating struct {
	OriginalSecret string `json:"originalSecret" validate:"required"`
	NewSecret      string `json:"newSecret" validate:"required,gte=6"`
}
