package notification

import (
	"gigmarket/bizerror"
	"gigmarket/persistence"
	"gigmarket/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

type NotificationManagerTraits interface {
	QueryMyNotifications(query *NotificationQuery, sec *session.Context) (*[]Notification, error)
	CountUnread(sec *session.Context) (*UnreadCount, error)
	MarkRead(id types.ID, sec *session.Context) error
	MarkAllRead(sec *session.Context) error
	DeleteNotification(id types.ID, sec *session.Context) error
}

type NotificationManager struct {
	dataSource *persistence.DataSourceManager
}

func NewNotificationManager(ds *persistence.DataSourceManager) *NotificationManager {
	return &NotificationManager{dataSource: ds}
}

func (m *NotificationManager) QueryMyNotifications(query *NotificationQuery, sec *session.Context) (*[]Notification, error) {
	var notifications []Notification
	db := m.dataSource.GormDB()

	q := db.Where(&Notification{UserID: sec.Identity.ID})
	if query.UnreadOnly {
		q = q.Where("is_read = ?", false)
	}
	size := query.Size
	if size <= 0 {
		size = 20
	}
	if query.Page > 1 {
		q = q.Offset((query.Page - 1) * size)
	}
	if err := q.Order("create_time DESC").Limit(size).Find(&notifications).Error; err != nil {
		return nil, err
	}
	return &notifications, nil
}

func (m *NotificationManager) CountUnread(sec *session.Context) (*UnreadCount, error) {
	var count uint64
	db := m.dataSource.GormDB()
	if err := db.Model(&Notification{}).Where(&Notification{UserID: sec.Identity.ID}).
		Where("is_read = ?", false).Count(&count).Error; err != nil {
		return nil, err
	}
	return &UnreadCount{Count: count}, nil
}

func (m *NotificationManager) MarkRead(id types.ID, sec *session.Context) error {
	db := m.dataSource.GormDB()
	notification := Notification{}
	if err := db.Where(&Notification{ID: id}).First(&notification).Error; err != nil {
		return err
	}
	if notification.UserID != sec.Identity.ID {
		return bizerror.ErrForbidden
	}
	return db.Model(&Notification{}).Where(&Notification{ID: id}).
		Update(&Notification{IsRead: true, ReadTime: types.CurrentTimestamp()}).Error
}

func (m *NotificationManager) MarkAllRead(sec *session.Context) error {
	db := m.dataSource.GormDB()
	return db.Model(&Notification{}).Where(&Notification{UserID: sec.Identity.ID}).
		Where("is_read = ?", false).
		Update(&Notification{IsRead: true, ReadTime: types.CurrentTimestamp()}).Error
}

func (m *NotificationManager) DeleteNotification(id types.ID, sec *session.Context) error {
	db := m.dataSource.GormDB()
	notification := Notification{}
	if err := db.Where(&Notification{ID: id}).First(&notification).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return err
	}
	if notification.UserID != sec.Identity.ID {
		return bizerror.ErrForbidden
	}
	return db.Delete(Notification{}, "id = ?", id).Error
}
