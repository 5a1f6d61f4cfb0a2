package session

import (
	"strings"
	"time"

	"github.com/fundwit/go-commons/types"
)

type Context struct {
	Token       string    `json:"token"`
	Identity    Identity  `json:"identity"`
	Perms       []string  `json:"perms"`
	SigningTime time.Time `json:"-"`
}

type Identity struct {
	ID       types.ID `json:"id"`
	Name     string   `json:"name"`
	Nickname string   `json:"nickname"`
}

func (c *Context) HasRole(role string) bool {
	for _, v := range c.Perms {
		if strings.EqualFold(v, role) {
			return true
		}
	}
	return false
}
