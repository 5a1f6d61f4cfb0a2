package sprint

import (
	"gigmarket/common"
	"gigmarket/domain"
	"gigmarket/persistence"
	"gigmarket/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

type TaskManagerTraits interface {
	CreateTask(c *domain.TaskCreation, sec *session.Context) (*domain.Task, error)
	QueryTasks(q *domain.TaskQuery, sec *session.Context) (*[]domain.Task, error)
	UpdateTask(id types.ID, u *domain.TaskUpdating, sec *session.Context) (*domain.Task, error)
	MoveTask(id types.ID, move *domain.TaskMove, sec *session.Context) (*domain.Task, error)
	DeleteTask(id types.ID, sec *session.Context) error
}

type TaskManager struct {
	dataSource *persistence.DataSourceManager
	idWorker   *sonyflake.Sonyflake
}

func NewTaskManager(ds *persistence.DataSourceManager) *TaskManager {
	return &TaskManager{
		dataSource: ds,
		idWorker:   sonyflake.NewSonyflake(sonyflake.Settings{}),
	}
}

func (m *TaskManager) CreateTask(c *domain.TaskCreation, sec *session.Context) (*domain.Task, error) {
	priority := c.Priority
	if priority == "" {
		priority = domain.TaskPriorityMedium
	}
	task := domain.Task{
		ID:             common.NextId(m.idWorker),
		ProjectID:      c.ProjectID,
		SprintID:       c.SprintID,
		Title:          c.Title,
		Description:    c.Description,
		AssigneeID:     c.AssigneeID,
		StateName:      domain.TaskStateTodo,
		Priority:       priority,
		EstimatedHours: c.EstimatedHours,
		DueDate:        c.DueDate,
		OrderIndex:     c.OrderIndex,
		CreateTime:     types.CurrentTimestamp(),
	}

	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		if _, err := findProjectAndCheckCollaborator(tx, c.ProjectID, sec); err != nil {
			return err
		}
		if c.SprintID != 0 {
			sprint := domain.Sprint{}
			if err := tx.Where(&domain.Sprint{ID: c.SprintID, ProjectID: c.ProjectID}).
				First(&sprint).Error; err != nil {
				return err
			}
		}
		return tx.Create(&task).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (m *TaskManager) QueryTasks(q *domain.TaskQuery, sec *session.Context) (*[]domain.Task, error) {
	var tasks []domain.Task
	db := m.dataSource.GormDB().
		Where(&domain.Task{ProjectID: q.ProjectID, SprintID: q.SprintID, StateName: q.StateName}).
		Order("order_index ASC, create_time ASC")
	if err := db.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return &tasks, nil
}

func (m *TaskManager) UpdateTask(id types.ID, u *domain.TaskUpdating, sec *session.Context) (*domain.Task, error) {
	var updated domain.Task
	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		task := domain.Task{}
		if err := tx.Where(&domain.Task{ID: id}).First(&task).Error; err != nil {
			return err
		}
		if _, err := findProjectAndCheckCollaborator(tx, task.ProjectID, sec); err != nil {
			return err
		}

		db := tx.Model(&domain.Task{}).Where(&domain.Task{ID: id}).
			Updates(map[string]interface{}{
				"title":           u.Title,
				"description":     u.Description,
				"assignee_id":     u.AssigneeID,
				"state_name":      u.StateName,
				"priority":        u.Priority,
				"estimated_hours": u.EstimatedHours,
				"actual_hours":    u.ActualHours,
				"due_date":        u.DueDate,
			})
		if err := db.Error; err != nil {
			return err
		}
		return tx.Where(&domain.Task{ID: id}).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// MoveTask repositions a task on the board and optionally moves it into
// another column.
func (m *TaskManager) MoveTask(id types.ID, move *domain.TaskMove, sec *session.Context) (*domain.Task, error) {
	var moved domain.Task
	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		task := domain.Task{}
		if err := tx.Where(&domain.Task{ID: id}).First(&task).Error; err != nil {
			return err
		}
		if _, err := findProjectAndCheckCollaborator(tx, task.ProjectID, sec); err != nil {
			return err
		}

		changes := map[string]interface{}{"order_index": move.OrderIndex}
		if move.StateName != "" {
			changes["state_name"] = move.StateName
		}
		if err := tx.Model(&domain.Task{}).Where(&domain.Task{ID: id}).
			Updates(changes).Error; err != nil {
			return err
		}
		return tx.Where(&domain.Task{ID: id}).First(&moved).Error
	})
	if err != nil {
		return nil, err
	}
	return &moved, nil
}

func (m *TaskManager) DeleteTask(id types.ID, sec *session.Context) error {
	return m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		task := domain.Task{}
		if err := tx.Where(&domain.Task{ID: id}).First(&task).Error; err != nil {
			return err
		}
		if _, err := findProjectAndCheckCollaborator(tx, task.ProjectID, sec); err != nil {
			return err
		}
		return tx.Delete(domain.Task{}, "id = ?", id).Error
	})
}
