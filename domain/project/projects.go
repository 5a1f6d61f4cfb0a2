package project

import (
	"gigmarket/account"
	"gigmarket/activity"
	"gigmarket/bizerror"
	"gigmarket/common"
	"gigmarket/domain"
	"gigmarket/persistence"
	"gigmarket/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

const recentActivityLimit = 10

type ProjectManagerTraits interface {
	CreateProject(c *domain.ProjectCreation, sec *session.Context) (*domain.Project, error)
	QueryProjects(query *domain.ProjectQuery, sec *session.Context) (*[]domain.Project, error)
	ProjectDetail(id types.ID, sec *session.Context) (*domain.ProjectDetail, error)
	UpdateProject(id types.ID, u *domain.ProjectUpdating, sec *session.Context) (*domain.Project, error)
	ApproveProject(id types.ID, sec *session.Context) error
	RejectProject(id types.ID, sec *session.Context) error
	CompleteProject(id types.ID, sec *session.Context) error
	CancelProject(id types.ID, sec *session.Context) error
	DeleteProject(id types.ID, sec *session.Context) error
}

type ProjectManager struct {
	dataSource *persistence.DataSourceManager
	idWorker   *sonyflake.Sonyflake
}

func NewProjectManager(ds *persistence.DataSourceManager) *ProjectManager {
	return &ProjectManager{
		dataSource: ds,
		idWorker:   sonyflake.NewSonyflake(sonyflake.Settings{}),
	}
}

func (m *ProjectManager) CreateProject(c *domain.ProjectCreation, sec *session.Context) (*domain.Project, error) {
	project := domain.Project{
		ID:          common.NextId(m.idWorker),
		Title:       c.Title,
		Description: c.Description,
		OwnerID:     sec.Identity.ID,
		OwnerName:   sec.Identity.Nickname,
		StateName:   domain.StatePending.Name,
		Budget:      c.Budget,
		MinimumBid:  c.MinimumBid,
		CreateTime:  types.CurrentTimestamp(),
	}

	var record *activity.Record
	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		var err error
		record, err = activity.CreateRecord(project.ID, activity.TypeProjectCreated,
			activity.Payload{"title": project.Title}, &sec.Identity, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	if activity.InvokeHandlersFunc != nil {
		activity.InvokeHandlersFunc(record)
	}
	return &project, nil
}

func (m *ProjectManager) QueryProjects(query *domain.ProjectQuery, sec *session.Context) (*[]domain.Project, error) {
	var projects []domain.Project
	db := m.dataSource.GormDB()

	q := db.Model(&domain.Project{})
	if query.StateName != "" {
		q = q.Where("state_name = ?", query.StateName)
	}
	if query.OwnerID != 0 {
		q = q.Where("owner_id = ?", query.OwnerID)
	}
	if query.AssignedFreelancerID != 0 {
		q = q.Where("assigned_freelancer_id = ?", query.AssignedFreelancerID)
	}

	size := query.Size
	if size <= 0 {
		size = 20
	}
	if query.Page > 1 {
		q = q.Offset((query.Page - 1) * size)
	}
	if err := q.Order("create_time DESC").Limit(size).Find(&projects).Error; err != nil {
		return nil, err
	}
	return &projects, nil
}

func (m *ProjectManager) ProjectDetail(id types.ID, sec *session.Context) (*domain.ProjectDetail, error) {
	detail := domain.ProjectDetail{}
	db := m.dataSource.GormDB()

	if err := db.Where(&domain.Project{ID: id}).First(&detail.Project).Error; err != nil {
		return nil, err
	}
	stateFound, found := domain.ProjectLifecycle.FindState(detail.StateName)
	if !found {
		return nil, bizerror.ErrInvalidState
	}
	detail.State = stateFound

	if err := db.Where(&domain.Bid{ProjectID: id}).Order("amount ASC").Find(&detail.Bids).Error; err != nil {
		return nil, err
	}
	if err := db.Where(&domain.Milestone{ProjectID: id}).
		Order("order_index ASC, create_time ASC").Find(&detail.Milestones).Error; err != nil {
		return nil, err
	}
	if err := db.Where(&activity.Record{Activity: activity.Activity{ProjectID: id}}).
		Order("timestamp DESC").Limit(recentActivityLimit).Find(&detail.Activities).Error; err != nil {
		return nil, err
	}
	return &detail, nil
}

func (m *ProjectManager) UpdateProject(id types.ID, u *domain.ProjectUpdating, sec *session.Context) (*domain.Project, error) {
	var updated domain.Project
	var record *activity.Record

	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		origin := domain.Project{}
		if err := tx.Where(&domain.Project{ID: id}).First(&origin).Error; err != nil {
			return err
		}
		if origin.OwnerID != sec.Identity.ID && !sec.HasRole(account.RoleAdmin) {
			return bizerror.ErrForbidden
		}
		if origin.StateName != domain.StatePending.Name && origin.StateName != domain.StateOpen.Name {
			return bizerror.ErrInvalidState
		}

		db := tx.Model(&domain.Project{}).Where(&domain.Project{ID: id}).
			Update(&domain.Project{Title: u.Title, Description: u.Description, Budget: u.Budget, MinimumBid: u.MinimumBid})
		if err := db.Error; err != nil {
			return err
		}

		var err error
		record, err = activity.CreateRecord(id, activity.TypeProjectUpdated,
			activity.Payload{"title": u.Title}, &sec.Identity, tx)
		if err != nil {
			return err
		}

		return tx.Where(&domain.Project{ID: id}).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}

	if activity.InvokeHandlersFunc != nil {
		activity.InvokeHandlersFunc(record)
	}
	return &updated, nil
}

func (m *ProjectManager) ApproveProject(id types.ID, sec *session.Context) error {
	if !sec.HasRole(account.RoleAdmin) {
		return bizerror.ErrForbidden
	}
	return m.transitProject(id, domain.StatePending.Name, domain.StateOpen.Name, sec, nil)
}

func (m *ProjectManager) RejectProject(id types.ID, sec *session.Context) error {
	if !sec.HasRole(account.RoleAdmin) {
		return bizerror.ErrForbidden
	}
	return m.transitProject(id, domain.StatePending.Name, domain.StateRejected.Name, sec, nil)
}

func (m *ProjectManager) CompleteProject(id types.ID, sec *session.Context) error {
	return m.transitProject(id, domain.StateInProgress.Name, domain.StateCompleted.Name, sec, ownerOnly)
}

func (m *ProjectManager) CancelProject(id types.ID, sec *session.Context) error {
	origin := domain.Project{}
	if err := m.dataSource.GormDB().Where(&domain.Project{ID: id}).First(&origin).Error; err != nil {
		return err
	}
	return m.transitProject(id, origin.StateName, domain.StateCancelled.Name, sec, ownerOnly)
}

func ownerOnly(project *domain.Project, sec *session.Context) error {
	if project.OwnerID != sec.Identity.ID {
		return bizerror.ErrForbidden
	}
	return nil
}

// transitProject applies one lifecycle transition as a conditional write:
// the update only matches when the stored state still equals fromState, so
// a racing caller loses with ErrConflict instead of applying the
// transition twice.
func (m *ProjectManager) transitProject(id types.ID, fromState, toState string,
	sec *session.Context, guard func(*domain.Project, *session.Context) error) error {

	availableTransitions := domain.ProjectLifecycle.AvailableTransitions(fromState, toState)
	if len(availableTransitions) != 1 {
		return bizerror.ErrInvalidState
	}

	var record *activity.Record
	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		project := domain.Project{}
		if err := tx.Where(&domain.Project{ID: id}).First(&project).Error; err != nil {
			return err
		}
		if guard != nil {
			if err := guard(&project, sec); err != nil {
				return err
			}
		}
		if project.StateName != fromState {
			return bizerror.ErrInvalidState
		}

		db := tx.Model(&domain.Project{}).Where(&domain.Project{ID: id, StateName: fromState}).
			Update(&domain.Project{StateName: toState})
		if err := db.Error; err != nil {
			return err
		}
		if db.RowsAffected != 1 {
			return bizerror.ErrConflict
		}

		var err error
		record, err = activity.CreateRecord(id, activity.TypeProjectStatusChanged,
			activity.Payload{
				"from": fromState, "to": toState,
				"ownerId": project.OwnerID.String(), "title": project.Title,
				"assignedFreelancerId": project.AssignedFreelancerID.String(),
			}, &sec.Identity, tx)
		return err
	})
	if err != nil {
		return err
	}

	if activity.InvokeHandlersFunc != nil {
		activity.InvokeHandlersFunc(record)
	}
	return nil
}

func (m *ProjectManager) DeleteProject(id types.ID, sec *session.Context) error {
	deleted := domain.Project{}
	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&domain.Project{ID: id}).First(&deleted).Error; err != nil {
			return err
		}
		if deleted.OwnerID != sec.Identity.ID && !sec.HasRole(account.RoleAdmin) {
			return bizerror.ErrForbidden
		}

		if err := tx.Delete(domain.Bid{}, "project_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(domain.Milestone{}, "project_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(domain.Task{}, "project_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(domain.Sprint{}, "project_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(domain.Review{}, "project_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(activity.Record{}, "project_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(domain.Project{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}

	// synthetic record: cascading deletion already removed the audit trail
	if activity.InvokeHandlersFunc != nil {
		activity.InvokeHandlersFunc(&activity.Record{
			Activity: activity.Activity{
				ProjectID: id,
				ActorID:   sec.Identity.ID,
				ActorName: sec.Identity.Nickname,
				Type:      activity.TypeProjectDeleted,
				Payload:   activity.Payload{"title": deleted.Title},
			},
			Timestamp: types.CurrentTimestamp(),
		})
	}
	return nil
}
