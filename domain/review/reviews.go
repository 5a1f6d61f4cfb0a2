package review

import (
	"errors"

	"gigmarket/account"
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

var (
	errSelfReview      = errors.New("you cannot review yourself")
	errDuplicateReview = errors.New("you have already reviewed this user for this project")
)

type ReviewManagerTraits interface {
	CreateReview(c *domain.ReviewCreation, sec *session.Context) (*domain.Review, error)
	ReviewDetail(id types.ID, sec *session.Context) (*domain.Review, error)
	QueryReviews(q *domain.ReviewQuery, sec *session.Context) (*domain.ReviewList, error)
	DeleteReview(id types.ID, sec *session.Context) error
}

type ReviewManager struct {
	dataSource *persistence.DataSourceManager
	idWorker   *sonyflake.Sonyflake
}

func NewReviewManager(ds *persistence.DataSourceManager) *ReviewManager {
	return &ReviewManager{
		dataSource: ds,
		idWorker:   sonyflake.NewSonyflake(sonyflake.Settings{}),
	}
}

func (m *ReviewManager) CreateReview(c *domain.ReviewCreation, sec *session.Context) (*domain.Review, error) {
	if c.RevieweeID == sec.Identity.ID {
		return nil, &common.ErrBadParam{Cause: errSelfReview}
	}

	review := domain.Review{
		ID:              common.NextId(m.idWorker),
		ProjectID:       c.ProjectID,
		ReviewerID:      sec.Identity.ID,
		ReviewerName:    sec.Identity.Nickname,
		RevieweeID:      c.RevieweeID,
		Rating:          c.Rating,
		Comment:         c.Comment,
		Professionalism: c.Professionalism,
		Communication:   c.Communication,
		Expertise:       c.Expertise,
		Quality:         c.Quality,
		Punctuality:     c.Punctuality,
		CreateTime:      types.CurrentTimestamp(),
	}

	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		project := domain.Project{}
		if err := tx.Where(&domain.Project{ID: c.ProjectID}).First(&project).Error; err != nil {
			return err
		}
		reviewee := account.User{}
		if err := tx.Where(&account.User{ID: c.RevieweeID}).First(&reviewee).Error; err != nil {
			return err
		}

		existing := domain.Review{}
		err := tx.Where(&domain.Review{
			ProjectID: c.ProjectID, ReviewerID: sec.Identity.ID, RevieweeID: c.RevieweeID,
		}).First(&existing).Error
		if err == nil {
			return &common.ErrBadParam{Cause: errDuplicateReview}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(&review).Error; err != nil {
			// the unique index backs up the duplicate pre-check under races
			var mysqlErr *mysql.MySQLError
			if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
				return bizerror.ErrConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (m *ReviewManager) ReviewDetail(id types.ID, sec *session.Context) (*domain.Review, error) {
	review := domain.Review{}
	if err := m.dataSource.GormDB().Where(&domain.Review{ID: id}).First(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// QueryReviews lists reviews either of a reviewee or of a project, newest
// first, with the average rating computed over the whole filtered set.
func (m *ReviewManager) QueryReviews(q *domain.ReviewQuery, sec *session.Context) (*domain.ReviewList, error) {
	if q.ProjectID == 0 && q.RevieweeID == 0 {
		return nil, &common.ErrBadParam{Cause: errors.New("either projectId or revieweeId is required")}
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	size := q.Size
	if size < 1 || size > 100 {
		size = 10
	}

	db := m.dataSource.GormDB()
	filter := &domain.Review{ProjectID: q.ProjectID, RevieweeID: q.RevieweeID}

	list := domain.ReviewList{Reviews: []domain.Review{}}
	if err := db.Where(filter).Order("create_time DESC").
		Offset((page - 1) * size).Limit(size).Find(&list.Reviews).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&domain.Review{}).Where(filter).Count(&list.Total).Error; err != nil {
		return nil, err
	}
	row := db.Model(&domain.Review{}).Where(filter).
		Select("COALESCE(AVG(rating), 0)").Row()
	if err := row.Scan(&list.AverageRating); err != nil {
		return nil, err
	}
	return &list, nil
}

func (m *ReviewManager) DeleteReview(id types.ID, sec *session.Context) error {
	return m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		review := domain.Review{}
		if err := tx.Where(&domain.Review{ID: id}).First(&review).Error; err != nil {
			return err
		}
		if review.ReviewerID != sec.Identity.ID {
			return bizerror.ErrForbidden
		}
		return tx.Delete(domain.Review{}, "id = ?", id).Error
	})
}
