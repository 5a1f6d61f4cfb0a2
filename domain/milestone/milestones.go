package milestone

import (
	"gigmarket/account"
	"gigmarket/activity"
	"gigmarket/bizerror"
	"gigmarket/common"
	"gigmarket/domain"
	"gigmarket/domain/state"
	"gigmarket/persistence"
	"gigmarket/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

type MilestoneManagerTraits interface {
	CreateMilestone(c *domain.MilestoneCreation, sec *session.Context) (*domain.Milestone, error)
	QueryMilestones(projectId types.ID, sec *session.Context) (*[]domain.Milestone, error)
	UpdateMilestone(id types.ID, u *domain.MilestoneUpdating, sec *session.Context) (*domain.Milestone, error)
	CompleteMilestone(id types.ID, sec *session.Context) (*domain.Milestone, error)
	MarkMilestonePaid(id types.ID, sec *session.Context) (*domain.Milestone, error)
	DeleteMilestone(id types.ID, sec *session.Context) error
}

type MilestoneManager struct {
	dataSource *persistence.DataSourceManager
	idWorker   *sonyflake.Sonyflake
}

func NewMilestoneManager(ds *persistence.DataSourceManager) *MilestoneManager {
	return &MilestoneManager{
		dataSource: ds,
		idWorker:   sonyflake.NewSonyflake(sonyflake.Settings{}),
	}
}

func findProjectAndCheckPerms(tx *gorm.DB, projectId types.ID, sec *session.Context) (*domain.Project, error) {
	project := domain.Project{}
	if err := tx.Where(&domain.Project{ID: projectId}).First(&project).Error; err != nil {
		return nil, err
	}
	if project.OwnerID != sec.Identity.ID && !sec.HasRole(account.RoleAdmin) {
		return nil, bizerror.ErrForbidden
	}
	return &project, nil
}

func (m *MilestoneManager) CreateMilestone(c *domain.MilestoneCreation, sec *session.Context) (*domain.Milestone, error) {
	milestone := domain.Milestone{
		ID:          common.NextId(m.idWorker),
		ProjectID:   c.ProjectID,
		Title:       c.Title,
		Description: c.Description,
		Amount:      c.Amount,
		DueDate:     c.DueDate,
		StateName:   domain.MilestoneStatePending,
		OrderIndex:  c.OrderIndex,
		CreateTime:  types.CurrentTimestamp(),
	}

	var record *activity.Record
	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		project, err := findProjectAndCheckPerms(tx, c.ProjectID, sec)
		if err != nil {
			return err
		}
		stateFound, found := domain.ProjectLifecycle.FindState(project.StateName)
		if !found || stateFound.Category == state.Done || stateFound.Category == state.Terminated {
			return bizerror.ErrInvalidState
		}

		if err := tx.Create(&milestone).Error; err != nil {
			return err
		}
		record, err = activity.CreateRecord(c.ProjectID, activity.TypeMilestoneCreated,
			activity.Payload{
				"milestoneId": milestone.ID.String(),
				"title":       milestone.Title,
				"ownerId":     project.OwnerID.String(),
			}, &sec.Identity, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	if activity.InvokeHandlersFunc != nil {
		activity.InvokeHandlersFunc(record)
	}
	return &milestone, nil
}

func (m *MilestoneManager) QueryMilestones(projectId types.ID, sec *session.Context) (*[]domain.Milestone, error) {
	var milestones []domain.Milestone
	db := m.dataSource.GormDB()
	if err := db.Where(&domain.Milestone{ProjectID: projectId}).
		Order("order_index ASC, create_time ASC").Find(&milestones).Error; err != nil {
		return nil, err
	}
	return &milestones, nil
}

func (m *MilestoneManager) UpdateMilestone(id types.ID, u *domain.MilestoneUpdating, sec *session.Context) (*domain.Milestone, error) {
	var updated domain.Milestone
	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		milestone := domain.Milestone{}
		if err := tx.Where(&domain.Milestone{ID: id}).First(&milestone).Error; err != nil {
			return err
		}
		if _, err := findProjectAndCheckPerms(tx, milestone.ProjectID, sec); err != nil {
			return err
		}
		if milestone.StateName == domain.MilestoneStatePaid {
			return bizerror.ErrInvalidState
		}

		db := tx.Model(&domain.Milestone{}).Where(&domain.Milestone{ID: id}).
			Updates(map[string]interface{}{
				"title":       u.Title,
				"description": u.Description,
				"amount":      u.Amount,
				"due_date":    u.DueDate,
				"order_index": u.OrderIndex,
			})
		if err := db.Error; err != nil {
			return err
		}
		return tx.Where(&domain.Milestone{ID: id}).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (m *MilestoneManager) CompleteMilestone(id types.ID, sec *session.Context) (*domain.Milestone, error) {
	var completed domain.Milestone
	var record *activity.Record

	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		milestone := domain.Milestone{}
		if err := tx.Where(&domain.Milestone{ID: id}).First(&milestone).Error; err != nil {
			return err
		}
		project, err := findProjectAndCheckPerms(tx, milestone.ProjectID, sec)
		if err != nil {
			return err
		}
		if milestone.StateName != domain.MilestoneStatePending &&
			milestone.StateName != domain.MilestoneStateInProgress {
			return bizerror.ErrInvalidState
		}

		now := types.CurrentTimestamp()
		db := tx.Model(&domain.Milestone{}).
			Where("id = ? AND state_name IN (?)", id,
				[]string{domain.MilestoneStatePending, domain.MilestoneStateInProgress}).
			Update(&domain.Milestone{StateName: domain.MilestoneStateCompleted, CompleteTime: now})
		if err := db.Error; err != nil {
			return err
		}
		if db.RowsAffected != 1 {
			return bizerror.ErrConflict
		}

		record, err = activity.CreateRecord(milestone.ProjectID, activity.TypeMilestoneCompleted,
			activity.Payload{
				"milestoneId":          milestone.ID.String(),
				"title":                milestone.Title,
				"ownerId":              project.OwnerID.String(),
				"assignedFreelancerId": project.AssignedFreelancerID.String(),
			}, &sec.Identity, tx)
		if err != nil {
			return err
		}

		return tx.Where(&domain.Milestone{ID: id}).First(&completed).Error
	})
	if err != nil {
		return nil, err
	}

	if activity.InvokeHandlersFunc != nil {
		activity.InvokeHandlersFunc(record)
	}
	return &completed, nil
}

// MarkMilestonePaid releases the payment of a completed milestone. Only the
// project owner spends money, so admins are not allowed here.
func (m *MilestoneManager) MarkMilestonePaid(id types.ID, sec *session.Context) (*domain.Milestone, error) {
	var paid domain.Milestone
	var record *activity.Record

	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		milestone := domain.Milestone{}
		if err := tx.Where(&domain.Milestone{ID: id}).First(&milestone).Error; err != nil {
			return err
		}
		project := domain.Project{}
		if err := tx.Where(&domain.Project{ID: milestone.ProjectID}).First(&project).Error; err != nil {
			return err
		}
		if project.OwnerID != sec.Identity.ID {
			return bizerror.ErrForbidden
		}
		if milestone.StateName != domain.MilestoneStateCompleted {
			return bizerror.ErrInvalidState
		}

		db := tx.Model(&domain.Milestone{}).
			Where(&domain.Milestone{ID: id, StateName: domain.MilestoneStateCompleted}).
			Update(&domain.Milestone{StateName: domain.MilestoneStatePaid})
		if err := db.Error; err != nil {
			return err
		}
		if db.RowsAffected != 1 {
			return bizerror.ErrConflict
		}

		var err error
		record, err = activity.CreateRecord(milestone.ProjectID, activity.TypeMilestonePaid,
			activity.Payload{
				"milestoneId":          milestone.ID.String(),
				"title":                milestone.Title,
				"amount":               milestone.Amount,
				"ownerId":              project.OwnerID.String(),
				"assignedFreelancerId": project.AssignedFreelancerID.String(),
			}, &sec.Identity, tx)
		if err != nil {
			return err
		}

		return tx.Where(&domain.Milestone{ID: id}).First(&paid).Error
	})
	if err != nil {
		return nil, err
	}

	if activity.InvokeHandlersFunc != nil {
		activity.InvokeHandlersFunc(record)
	}
	return &paid, nil
}

func (m *MilestoneManager) DeleteMilestone(id types.ID, sec *session.Context) error {
	return m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		milestone := domain.Milestone{}
		if err := tx.Where(&domain.Milestone{ID: id}).First(&milestone).Error; err != nil {
			return err
		}
		if _, err := findProjectAndCheckPerms(tx, milestone.ProjectID, sec); err != nil {
			return err
		}
		return tx.Delete(domain.Milestone{}, "id = ?", id).Error
	})
}
