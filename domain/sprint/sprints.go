package sprint

import (
	"gigmarket/account"
	"gigmarket/bizerror"
	"gigmarket/common"
	"gigmarket/domain"
	"gigmarket/persistence"
	"gigmarket/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

type SprintManagerTraits interface {
	CreateSprint(c *domain.SprintCreation, sec *session.Context) (*domain.Sprint, error)
	QuerySprints(projectId types.ID, sec *session.Context) (*[]domain.Sprint, error)
	SprintDetail(id types.ID, sec *session.Context) (*domain.Sprint, error)
	UpdateSprint(id types.ID, u *domain.SprintUpdating, sec *session.Context) (*domain.Sprint, error)
	DeleteSprint(id types.ID, sec *session.Context) error

	CreateSprintPlan(plan *domain.SprintPlan, sec *session.Context) (*domain.SprintPlanDetail, error)
	SprintPlanDetail(projectId types.ID, sec *session.Context) (*domain.SprintPlanDetail, error)
}

type SprintManager struct {
	dataSource *persistence.DataSourceManager
	idWorker   *sonyflake.Sonyflake
}

func NewSprintManager(ds *persistence.DataSourceManager) *SprintManager {
	return &SprintManager{
		dataSource: ds,
		idWorker:   sonyflake.NewSonyflake(sonyflake.Settings{}),
	}
}

// findProjectAndCheckCollaborator admits the owner, the assigned freelancer
// and admins. Planning is shared between both sides of a project.
func findProjectAndCheckCollaborator(tx *gorm.DB, projectId types.ID, sec *session.Context) (*domain.Project, error) {
	project := domain.Project{}
	if err := tx.Where(&domain.Project{ID: projectId}).First(&project).Error; err != nil {
		return nil, err
	}
	if project.OwnerID != sec.Identity.ID &&
		(project.AssignedFreelancerID == 0 || project.AssignedFreelancerID != sec.Identity.ID) &&
		!sec.HasRole(account.RoleAdmin) {
		return nil, bizerror.ErrForbidden
	}
	return &project, nil
}

func (m *SprintManager) CreateSprint(c *domain.SprintCreation, sec *session.Context) (*domain.Sprint, error) {
	sprint := domain.Sprint{
		ID:          common.NextId(m.idWorker),
		ProjectID:   c.ProjectID,
		Title:       c.Title,
		Description: c.Description,
		Features:    c.Features,
		StartDate:   c.StartDate,
		EndDate:     c.EndDate,
		StateName:   domain.SprintStatePlanning,
		CreateTime:  types.CurrentTimestamp(),
	}
	if sprint.Features == nil {
		sprint.Features = domain.SprintFeatures{}
	}

	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		if _, err := findProjectAndCheckCollaborator(tx, c.ProjectID, sec); err != nil {
			return err
		}
		return tx.Create(&sprint).Error
	})
	if err != nil {
		return nil, err
	}
	return &sprint, nil
}

func (m *SprintManager) QuerySprints(projectId types.ID, sec *session.Context) (*[]domain.Sprint, error) {
	var sprints []domain.Sprint
	db := m.dataSource.GormDB()
	if err := db.Where(&domain.Sprint{ProjectID: projectId}).
		Order("start_date ASC, create_time ASC").Find(&sprints).Error; err != nil {
		return nil, err
	}
	return &sprints, nil
}

func (m *SprintManager) SprintDetail(id types.ID, sec *session.Context) (*domain.Sprint, error) {
	sprint := domain.Sprint{}
	if err := m.dataSource.GormDB().Where(&domain.Sprint{ID: id}).First(&sprint).Error; err != nil {
		return nil, err
	}
	return &sprint, nil
}

func (m *SprintManager) UpdateSprint(id types.ID, u *domain.SprintUpdating, sec *session.Context) (*domain.Sprint, error) {
	var updated domain.Sprint
	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		sprint := domain.Sprint{}
		if err := tx.Where(&domain.Sprint{ID: id}).First(&sprint).Error; err != nil {
			return err
		}
		if _, err := findProjectAndCheckCollaborator(tx, sprint.ProjectID, sec); err != nil {
			return err
		}

		features := u.Features
		if features == nil {
			features = domain.SprintFeatures{}
		}
		db := tx.Model(&domain.Sprint{}).Where(&domain.Sprint{ID: id}).
			Updates(map[string]interface{}{
				"title":       u.Title,
				"description": u.Description,
				"features":    features,
				"start_date":  u.StartDate,
				"end_date":    u.EndDate,
				"state_name":  u.StateName,
			})
		if err := db.Error; err != nil {
			return err
		}
		return tx.Where(&domain.Sprint{ID: id}).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteSprint removes the sprint with every task scheduled into it.
func (m *SprintManager) DeleteSprint(id types.ID, sec *session.Context) error {
	return m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		sprint := domain.Sprint{}
		if err := tx.Where(&domain.Sprint{ID: id}).First(&sprint).Error; err != nil {
			return err
		}
		if _, err := findProjectAndCheckCollaborator(tx, sprint.ProjectID, sec); err != nil {
			return err
		}
		if err := tx.Delete(domain.Task{}, "sprint_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(domain.Sprint{}, "id = ?", id).Error
	})
}

// CreateSprintPlan replaces the whole planning of a project. Tasks are
// scheduled into their sprint by title, unknown titles land in the backlog.
func (m *SprintManager) CreateSprintPlan(plan *domain.SprintPlan, sec *session.Context) (*domain.SprintPlanDetail, error) {
	detail := domain.SprintPlanDetail{Sprints: []domain.Sprint{}, Tasks: []domain.Task{}}

	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		if _, err := findProjectAndCheckCollaborator(tx, plan.ProjectID, sec); err != nil {
			return err
		}

		if err := tx.Delete(domain.Task{}, "project_id = ?", plan.ProjectID).Error; err != nil {
			return err
		}
		if err := tx.Delete(domain.Sprint{}, "project_id = ?", plan.ProjectID).Error; err != nil {
			return err
		}

		sprintIdsByTitle := map[string]types.ID{}
		for _, planned := range plan.Sprints {
			features := planned.Features
			if features == nil {
				features = domain.SprintFeatures{}
			}
			sprint := domain.Sprint{
				ID:          common.NextId(m.idWorker),
				ProjectID:   plan.ProjectID,
				Title:       planned.Title,
				Description: planned.Description,
				Features:    features,
				StartDate:   planned.StartDate,
				EndDate:     planned.EndDate,
				StateName:   domain.SprintStatePlanning,
				CreateTime:  types.CurrentTimestamp(),
			}
			if err := tx.Create(&sprint).Error; err != nil {
				return err
			}
			sprintIdsByTitle[sprint.Title] = sprint.ID
			detail.Sprints = append(detail.Sprints, sprint)
		}

		for index, planned := range plan.Tasks {
			priority := planned.Priority
			if priority == "" {
				priority = domain.TaskPriorityMedium
			}
			task := domain.Task{
				ID:          common.NextId(m.idWorker),
				ProjectID:   plan.ProjectID,
				SprintID:    sprintIdsByTitle[planned.SprintTitle],
				Title:       planned.Title,
				Description: planned.Description,
				AssigneeID:  planned.AssigneeID,
				StateName:   domain.TaskStateTodo,
				Priority:    priority,
				DueDate:     planned.DueDate,
				OrderIndex:  index,
				CreateTime:  types.CurrentTimestamp(),
			}
			if err := tx.Create(&task).Error; err != nil {
				return err
			}
			detail.Tasks = append(detail.Tasks, task)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func (m *SprintManager) SprintPlanDetail(projectId types.ID, sec *session.Context) (*domain.SprintPlanDetail, error) {
	detail := domain.SprintPlanDetail{Sprints: []domain.Sprint{}, Tasks: []domain.Task{}}
	db := m.dataSource.GormDB()

	if err := db.Where(&domain.Sprint{ProjectID: projectId}).
		Order("start_date ASC, create_time ASC").Find(&detail.Sprints).Error; err != nil {
		return nil, err
	}
	if err := db.Where(&domain.Task{ProjectID: projectId}).
		Order("order_index ASC, create_time ASC").Find(&detail.Tasks).Error; err != nil {
		return nil, err
	}
	return &detail, nil
}
