package bid

import (
	"errors"
	"fmt"

	"gigmarket/activity"
	"gigmarket/bizerror"
	"gigmarket/common"
	"gigmarket/domain"
	"gigmarket/persistence"
	"gigmarket/session"

	"github.com/fundwit/go-commons/types"
	"github.com/go-sql-driver/mysql"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

const mysqlDuplicateEntry = 1062

type BidManagerTraits interface {
	PlaceBid(c *domain.BidCreation, sec *session.Context) (*domain.Bid, error)
	AcceptBid(projectId, bidId types.ID, sec *session.Context) (*domain.Bid, error)
	RejectBid(bidId types.ID, sec *session.Context) (*domain.Bid, error)
	WithdrawBid(bidId types.ID, sec *session.Context) error
	QueryProjectBids(projectId types.ID, orderBy string, sec *session.Context) (*[]domain.Bid, error)
	QueryUserBids(sec *session.Context) (*[]domain.Bid, error)
}

type BidManager struct {
	dataSource *persistence.DataSourceManager
	idWorker   *sonyflake.Sonyflake
}

func NewBidManager(ds *persistence.DataSourceManager) *BidManager {
	return &BidManager{
		dataSource: ds,
		idWorker:   sonyflake.NewSonyflake(sonyflake.Settings{}),
	}
}

func (m *BidManager) PlaceBid(c *domain.BidCreation, sec *session.Context) (*domain.Bid, error) {
	bid := domain.Bid{
		ID:             common.NextId(m.idWorker),
		ProjectID:      c.ProjectID,
		FreelancerID:   sec.Identity.ID,
		FreelancerName: sec.Identity.Nickname,
		Amount:         c.Amount,
		Proposal:       c.Proposal,
		StateName:      domain.BidStatePending,
		CreateTime:     types.CurrentTimestamp(),
	}

	var record *activity.Record
	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		project := domain.Project{}
		if err := tx.Where(&domain.Project{ID: c.ProjectID}).First(&project).Error; err != nil {
			return err
		}
		if project.StateName != domain.StateOpen.Name {
			return bizerror.ErrInvalidState
		}
		if project.OwnerID == sec.Identity.ID {
			return bizerror.ErrForbidden
		}
		if c.Amount < project.MinimumBid {
			return &common.ErrBadParam{Cause: fmt.Errorf("bid amount must be at least %v", project.MinimumBid)}
		}

		existing := domain.Bid{}
		err := tx.Where(&domain.Bid{ProjectID: c.ProjectID, FreelancerID: sec.Identity.ID}).First(&existing).Error
		if err == nil {
			return bizerror.ErrConflict
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(&bid).Error; err != nil {
			// the unique index backs up the duplicate pre-check under races
			var mysqlErr *mysql.MySQLError
			if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
				return bizerror.ErrConflict
			}
			return err
		}

		record, err = activity.CreateRecord(c.ProjectID, activity.TypeBidPlaced,
			activity.Payload{
				"bidId":          bid.ID.String(),
				"freelancerId":   bid.FreelancerID.String(),
				"freelancerName": bid.FreelancerName,
				"amount":         bid.Amount,
				"ownerId":        project.OwnerID.String(),
				"projectTitle":   project.Title,
			}, &sec.Identity, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	if activity.InvokeHandlersFunc != nil {
		activity.InvokeHandlersFunc(record)
	}
	return &bid, nil
}

// AcceptBid is the composite transition assigning a freelancer to a
// project. All writes happen in one transaction and both the bid and the
// project rows are updated conditionally on their expected prior state, so
// two racing acceptances cannot both commit: the loser fails with
// ErrConflict and nothing of its sequence is applied.
func (m *BidManager) AcceptBid(projectId, bidId types.ID, sec *session.Context) (*domain.Bid, error) {
	var accepted domain.Bid
	var records []*activity.Record

	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		project := domain.Project{}
		if err := tx.Where(&domain.Project{ID: projectId}).First(&project).Error; err != nil {
			return err
		}
		if project.OwnerID != sec.Identity.ID {
			return bizerror.ErrForbidden
		}
		if project.StateName != domain.StateOpen.Name {
			return bizerror.ErrInvalidState
		}

		bid := domain.Bid{}
		if err := tx.Where(&domain.Bid{ID: bidId}).First(&bid).Error; err != nil {
			return err
		}
		if bid.ProjectID != projectId {
			return &common.ErrBadParam{Cause: errors.New("bid does not belong to the project")}
		}
		if bid.StateName != domain.BidStatePending {
			return bizerror.ErrInvalidState
		}

		// losing siblings, collected before the bulk update for the fan-out
		var siblings []domain.Bid
		if err := tx.Where("project_id = ? AND id <> ? AND state_name = ?",
			projectId, bidId, domain.BidStatePending).Find(&siblings).Error; err != nil {
			return err
		}

		// the project row goes first: every acceptance serializes on it,
		// so racing acceptances never hold sibling bid locks against each
		// other
		db := tx.Model(&domain.Project{}).Where(&domain.Project{ID: projectId, StateName: domain.StateOpen.Name}).
			Update(&domain.Project{StateName: domain.StateInProgress.Name, AssignedFreelancerID: bid.FreelancerID})
		if err := db.Error; err != nil {
			return err
		}
		if db.RowsAffected != 1 {
			return bizerror.ErrConflict
		}

		db = tx.Model(&domain.Bid{}).Where(&domain.Bid{ID: bidId, StateName: domain.BidStatePending}).
			Update(&domain.Bid{StateName: domain.BidStateAccepted})
		if err := db.Error; err != nil {
			return err
		}
		if db.RowsAffected != 1 {
			return bizerror.ErrConflict
		}

		if len(siblings) > 0 {
			if err := tx.Model(&domain.Bid{}).Where("project_id = ? AND id <> ? AND state_name = ?",
				projectId, bidId, domain.BidStatePending).
				Update(&domain.Bid{StateName: domain.BidStateRejected}).Error; err != nil {
				return err
			}
		}

		rejected := make([]map[string]string, 0, len(siblings))
		for _, s := range siblings {
			rejected = append(rejected, map[string]string{
				"bidId": s.ID.String(), "freelancerId": s.FreelancerID.String(),
			})
		}

		acceptedRecord, err := activity.CreateRecord(projectId, activity.TypeBidAccepted,
			activity.Payload{
				"bidId":          bid.ID.String(),
				"freelancerId":   bid.FreelancerID.String(),
				"freelancerName": bid.FreelancerName,
				"amount":         bid.Amount,
				"projectTitle":   project.Title,
				"rejectedBids":   rejected,
			}, &sec.Identity, tx)
		if err != nil {
			return err
		}
		assignedRecord, err := activity.CreateRecord(projectId, activity.TypeFreelancerAssigned,
			activity.Payload{
				"freelancerId":   bid.FreelancerID.String(),
				"freelancerName": bid.FreelancerName,
			}, &sec.Identity, tx)
		if err != nil {
			return err
		}
		records = append(records, acceptedRecord, assignedRecord)

		return tx.Where(&domain.Bid{ID: bidId}).First(&accepted).Error
	})
	if err != nil {
		return nil, err
	}

	if activity.InvokeHandlersFunc != nil {
		for _, record := range records {
			activity.InvokeHandlersFunc(record)
		}
	}
	return &accepted, nil
}

func (m *BidManager) RejectBid(bidId types.ID, sec *session.Context) (*domain.Bid, error) {
	var rejected domain.Bid
	var record *activity.Record

	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		bid := domain.Bid{}
		if err := tx.Where(&domain.Bid{ID: bidId}).First(&bid).Error; err != nil {
			return err
		}
		project := domain.Project{}
		if err := tx.Where(&domain.Project{ID: bid.ProjectID}).First(&project).Error; err != nil {
			return err
		}
		if project.OwnerID != sec.Identity.ID {
			return bizerror.ErrForbidden
		}
		if bid.StateName != domain.BidStatePending {
			return bizerror.ErrInvalidState
		}

		db := tx.Model(&domain.Bid{}).Where(&domain.Bid{ID: bidId, StateName: domain.BidStatePending}).
			Update(&domain.Bid{StateName: domain.BidStateRejected})
		if err := db.Error; err != nil {
			return err
		}
		if db.RowsAffected != 1 {
			return bizerror.ErrConflict
		}

		var err error
		record, err = activity.CreateRecord(bid.ProjectID, activity.TypeBidRejected,
			activity.Payload{
				"bidId":        bid.ID.String(),
				"freelancerId": bid.FreelancerID.String(),
				"projectTitle": project.Title,
			}, &sec.Identity, tx)
		if err != nil {
			return err
		}

		return tx.Where(&domain.Bid{ID: bidId}).First(&rejected).Error
	})
	if err != nil {
		return nil, err
	}

	if activity.InvokeHandlersFunc != nil {
		activity.InvokeHandlersFunc(record)
	}
	return &rejected, nil
}

// WithdrawBid removes a freelancer's own pending bid. An accepted bid is
// immutable and cannot be withdrawn.
func (m *BidManager) WithdrawBid(bidId types.ID, sec *session.Context) error {
	return m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		bid := domain.Bid{}
		if err := tx.Where(&domain.Bid{ID: bidId}).First(&bid).Error; err != nil {
			return err
		}
		if bid.FreelancerID != sec.Identity.ID {
			return bizerror.ErrForbidden
		}
		if bid.StateName != domain.BidStatePending {
			return bizerror.ErrInvalidState
		}

		db := tx.Where("id = ? AND state_name = ?", bidId, domain.BidStatePending).Delete(domain.Bid{})
		if err := db.Error; err != nil {
			return err
		}
		if db.RowsAffected != 1 {
			return bizerror.ErrConflict
		}
		return nil
	})
}

func (m *BidManager) QueryProjectBids(projectId types.ID, orderBy string, sec *session.Context) (*[]domain.Bid, error) {
	order := "amount ASC"
	if orderBy == domain.BidOrderByCreateTime {
		order = "create_time DESC"
	}

	var bids []domain.Bid
	db := m.dataSource.GormDB()
	if err := db.Where(&domain.Bid{ProjectID: projectId}).Order(order).Find(&bids).Error; err != nil {
		return nil, err
	}
	return &bids, nil
}

func (m *BidManager) QueryUserBids(sec *session.Context) (*[]domain.Bid, error) {
	var bids []domain.Bid
	db := m.dataSource.GormDB()
	if err := db.Where(&domain.Bid{FreelancerID: sec.Identity.ID}).
		Order("create_time DESC").Find(&bids).Error; err != nil {
		return nil, err
	}
	return &bids, nil
}
