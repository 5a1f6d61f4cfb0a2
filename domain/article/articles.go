package article

import (
	"errors"
	"regexp"
	"strings"

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

var nonSlugChars = regexp.MustCompile("[^a-zA-Z0-9]+")

type ArticleManagerTraits interface {
	CreateArticle(c *domain.ArticleCreation, sec *session.Context) (*domain.Article, error)
	QueryArticles(q *domain.ArticleQuery, sec *session.Context) (*[]domain.Article, error)
	ArticleDetail(id types.ID, sec *session.Context) (*domain.Article, error)
	ArticleDetailBySlug(slug string, sec *session.Context) (*domain.Article, error)
	UpdateArticle(id types.ID, u *domain.ArticleUpdating, sec *session.Context) (*domain.Article, error)
	PublishArticle(id types.ID, sec *session.Context) (*domain.Article, error)
	RejectArticle(id types.ID, sec *session.Context) (*domain.Article, error)
	DeleteArticle(id types.ID, sec *session.Context) error
}

type ArticleManager struct {
	dataSource *persistence.DataSourceManager
	idWorker   *sonyflake.Sonyflake
}

func NewArticleManager(ds *persistence.DataSourceManager) *ArticleManager {
	return &ArticleManager{
		dataSource: ds,
		idWorker:   sonyflake.NewSonyflake(sonyflake.Settings{}),
	}
}

// Slugify derives the URL handle of an article from its title.
func Slugify(title string) string {
	return strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(title), "-"), "-")
}

var errDuplicateTitle = errors.New("an article with this title already exists")

func (m *ArticleManager) CreateArticle(c *domain.ArticleCreation, sec *session.Context) (*domain.Article, error) {
	article := domain.Article{
		ID:         common.NextId(m.idWorker),
		Title:      c.Title,
		Slug:       Slugify(c.Title),
		Content:    c.Content,
		Excerpt:    c.Excerpt,
		AuthorID:   sec.Identity.ID,
		AuthorName: sec.Identity.Nickname,
		StateName:  domain.ArticleStatePending,
		Tags:       c.Tags,
		CreateTime: types.CurrentTimestamp(),
	}
	if article.Tags == nil {
		article.Tags = domain.ArticleTags{}
	}

	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		existing := domain.Article{}
		err := tx.Where(&domain.Article{Slug: article.Slug}).First(&existing).Error
		if err == nil {
			return &common.ErrBadParam{Cause: errDuplicateTitle}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(&article).Error; err != nil {
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
	return &article, nil
}

// QueryArticles lists published articles by default. Other states are only
// visible to admins, everyone else is narrowed down to their own articles.
func (m *ArticleManager) QueryArticles(q *domain.ArticleQuery, sec *session.Context) (*[]domain.Article, error) {
	if q.StateName == "" {
		q.StateName = domain.ArticleStatePublished
	}
	if q.StateName != domain.ArticleStatePublished && !sec.HasRole(account.RoleAdmin) {
		q.AuthorID = sec.Identity.ID
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	size := q.Size
	if size < 1 || size > 100 {
		size = 10
	}

	query := m.dataSource.GormDB().
		Where(&domain.Article{StateName: q.StateName, AuthorID: q.AuthorID}).
		Offset((page - 1) * size).Limit(size).Order("create_time DESC")

	var articles []domain.Article
	if err := query.Find(&articles).Error; err != nil {
		return nil, err
	}
	return &articles, nil
}

func (m *ArticleManager) ArticleDetail(id types.ID, sec *session.Context) (*domain.Article, error) {
	article := domain.Article{}
	if err := m.dataSource.GormDB().Where(&domain.Article{ID: id}).First(&article).Error; err != nil {
		return nil, err
	}
	return &article, nil
}

// ArticleDetailBySlug resolves a published article and counts the view.
func (m *ArticleManager) ArticleDetailBySlug(slug string, sec *session.Context) (*domain.Article, error) {
	article := domain.Article{}
	db := m.dataSource.GormDB()
	if err := db.Where(&domain.Article{Slug: slug, StateName: domain.ArticleStatePublished}).
		First(&article).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&domain.Article{}).Where(&domain.Article{ID: article.ID}).
		Update("views", gorm.Expr("views + 1")).Error; err != nil {
		return nil, err
	}
	article.Views++
	return &article, nil
}

func (m *ArticleManager) UpdateArticle(id types.ID, u *domain.ArticleUpdating, sec *session.Context) (*domain.Article, error) {
	var updated domain.Article
	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		origin := domain.Article{}
		if err := tx.Where(&domain.Article{ID: id}).First(&origin).Error; err != nil {
			return err
		}
		if origin.AuthorID != sec.Identity.ID {
			return bizerror.ErrForbidden
		}

		slug := origin.Slug
		if u.Title != origin.Title {
			slug = Slugify(u.Title)
			existing := domain.Article{}
			err := tx.Where("slug = ? AND id != ?", slug, id).First(&existing).Error
			if err == nil {
				return &common.ErrBadParam{Cause: errDuplicateTitle}
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		tags := u.Tags
		if tags == nil {
			tags = domain.ArticleTags{}
		}
		db := tx.Model(&domain.Article{}).Where(&domain.Article{ID: id}).
			Updates(map[string]interface{}{
				"title":   u.Title,
				"slug":    slug,
				"content": u.Content,
				"excerpt": u.Excerpt,
				"tags":    tags,
			})
		if err := db.Error; err != nil {
			return err
		}
		return tx.Where(&domain.Article{ID: id}).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (m *ArticleManager) PublishArticle(id types.ID, sec *session.Context) (*domain.Article, error) {
	return m.reviewArticle(id, domain.ArticleStatePublished, sec)
}

func (m *ArticleManager) RejectArticle(id types.ID, sec *session.Context) (*domain.Article, error) {
	return m.reviewArticle(id, domain.ArticleStateRejected, sec)
}

func (m *ArticleManager) reviewArticle(id types.ID, toState string, sec *session.Context) (*domain.Article, error) {
	if !sec.HasRole(account.RoleAdmin) {
		return nil, bizerror.ErrForbidden
	}

	var reviewed domain.Article
	err := m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		article := domain.Article{}
		if err := tx.Where(&domain.Article{ID: id}).First(&article).Error; err != nil {
			return err
		}
		if article.StateName != domain.ArticleStatePending {
			return bizerror.ErrInvalidState
		}

		changes := map[string]interface{}{"state_name": toState}
		if toState == domain.ArticleStatePublished && article.PublishTime.Time().IsZero() {
			changes["publish_time"] = types.CurrentTimestamp()
		}
		db := tx.Model(&domain.Article{}).
			Where(&domain.Article{ID: id, StateName: domain.ArticleStatePending}).
			Updates(changes)
		if err := db.Error; err != nil {
			return err
		}
		if db.RowsAffected != 1 {
			return bizerror.ErrConflict
		}
		return tx.Where(&domain.Article{ID: id}).First(&reviewed).Error
	})
	if err != nil {
		return nil, err
	}
	return &reviewed, nil
}

func (m *ArticleManager) DeleteArticle(id types.ID, sec *session.Context) error {
	return m.dataSource.GormDB().Transaction(func(tx *gorm.DB) error {
		article := domain.Article{}
		if err := tx.Where(&domain.Article{ID: id}).First(&article).Error; err != nil {
			return err
		}
		if article.AuthorID != sec.Identity.ID && !sec.HasRole(account.RoleAdmin) {
			return bizerror.ErrForbidden
		}
		return tx.Delete(domain.Article{}, "id = ?", id).Error
	})
}
