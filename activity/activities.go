package activity

import (
	"gigmarket/common"
	"gigmarket/persistence"
	"gigmarket/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	recordIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	RecordPersistFunc = persistRecord
)

// CreateRecord appends an audit record inside the caller's transaction, so
// the record commits or rolls back together with the state change it
// describes.
func CreateRecord(projectId types.ID, activityType string, payload Payload,
	identity *session.Identity, tx *gorm.DB) (*Record, error) {

	record := Record{
		ID: common.NextId(recordIdWorker),
		Activity: Activity{
			ProjectID: projectId,
			ActorID:   identity.ID,
			ActorName: identity.Nickname,
			Type:      activityType,
			Payload:   payload,
		},
		Timestamp: types.CurrentTimestamp(),
	}
	if err := RecordPersistFunc(&record, tx); err != nil {
		return nil, err
	}
	return &record, nil
}

func persistRecord(record *Record, db *gorm.DB) error {
	return db.Create(record).Error
}

type RecordManagerTraits interface {
	QueryRecords(query *RecordQuery, sec *session.Context) (*[]Record, error)
}

type RecordManager struct {
	dataSource *persistence.DataSourceManager
}

func NewRecordManager(ds *persistence.DataSourceManager) *RecordManager {
	return &RecordManager{dataSource: ds}
}

func (m *RecordManager) QueryRecords(query *RecordQuery, sec *session.Context) (*[]Record, error) {
	var records []Record
	db := m.dataSource.GormDB()

	q := db.Where(Record{Activity: Activity{ProjectID: query.ProjectID}}).Order("timestamp DESC")
	page, size := query.Page, query.Size
	if size <= 0 {
		size = 20
	}
	if page > 1 {
		q = q.Offset((page - 1) * size)
	}
	if err := q.Limit(size).Find(&records).Error; err != nil {
		return nil, err
	}
	return &records, nil
}
