package account

import (
	"crypto/sha256"
	"encoding/hex"

	"gigmarket/bizerror"
	"gigmarket/common"
	"gigmarket/persistence"
	"gigmarket/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

type UserManagerTraits interface {
	CreateUser(c *UserCreation, sec *session.Context) (*UserInfo, error)
	QueryUsers(sec *session.Context) (*[]UserInfo, error)
	UpdateBasicAuthSecret(u *BasicAuthUpdating, sec *session.Context) error
	AuthenticateUser(name, secret string) (*session.Identity, []string, error)
}

type UserManager struct {
	dataSource *persistence.DataSourceManager
	idWorker   *sonyflake.Sonyflake
}

func NewUserManager(ds *persistence.DataSourceManager) *UserManager {
	return &UserManager{
		dataSource: ds,
		idWorker:   sonyflake.NewSonyflake(sonyflake.Settings{}),
	}
}

func HashSha256(raw string) string {
	h := sha256.New()
	h.Write([]byte(raw))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)
}

func (m *UserManager) CreateUser(c *UserCreation, sec *session.Context) (*UserInfo, error) {
	if !sec.HasRole(RoleAdmin) {
		return nil, bizerror.ErrForbidden
	}

	user := User{
		ID:         common.NextId(m.idWorker),
		Name:       c.Name,
		Nickname:   c.Nickname,
		Secret:     HashSha256(c.Secret),
		Role:       c.Role,
		CreateTime: types.CurrentTimestamp(),
	}
	if user.Nickname == "" {
		user.Nickname = user.Name
	}
	if err := m.dataSource.GormDB().Create(&user).Error; err != nil {
		return nil, err
	}
	return &UserInfo{ID: user.ID, Name: user.Name, Nickname: user.Nickname, Role: user.Role}, nil
}

func (m *UserManager) QueryUsers(sec *session.Context) (*[]UserInfo, error) {
	var users []UserInfo
	if err := m.dataSource.GormDB().Model(&User{}).Scan(&users).Error; err != nil {
		return nil, err
	}
	return &users, nil
}

func (m *UserManager) UpdateBasicAuthSecret(u *BasicAuthUpdating, sec *session.Context) error {
	db := m.dataSource.GormDB()
	user := User{}
	if err := db.Model(&User{}).Where(&User{ID: sec.Identity.ID, Secret: HashSha256(u.OriginalSecret)}).
		Scan(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return bizerror.ErrInvalidPassword
		}
		return err
	}

	return db.Model(&User{}).Where(&User{ID: sec.Identity.ID, Secret: HashSha256(u.OriginalSecret)}).
		Update(&User{Secret: HashSha256(u.NewSecret)}).Error
}

func (m *UserManager) AuthenticateUser(name, secret string) (*session.Identity, []string, error) {
	user := User{}
	if err := m.dataSource.GormDB().Where(&User{Name: name, Secret: HashSha256(secret)}).
		First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, bizerror.ErrUnauthenticated
		}
		return nil, nil, err
	}
	identity := session.Identity{ID: user.ID, Name: user.Name, Nickname: user.Nickname}
	return &identity, []string{user.Role}, nil
}
