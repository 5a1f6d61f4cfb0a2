package main

import (
	"log"

	"gigmarket/account"
	"gigmarket/activity"
	"gigmarket/bizerror"
	"gigmarket/common"
	"gigmarket/domain"
	"gigmarket/domain/article"
	"gigmarket/domain/bid"
	"gigmarket/domain/milestone"
	"gigmarket/domain/project"
	"gigmarket/domain/review"
	"gigmarket/domain/sprint"
	"gigmarket/es"
	"gigmarket/indices"
	"gigmarket/infra/tracing"
	"gigmarket/notification"
	"gigmarket/persistence"
	"gigmarket/servehttp"
	"gigmarket/session"
	"gigmarket/sessions"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

func main() {
	log.Println("service start")

	dbConfig, err := persistence.ParseDatabaseConfigFromEnv()
	if err != nil {
		log.Fatalf("parse database config failed %v\n", err)
	}

	// create database (no conflict)
	if dbConfig.DriverType == "mysql" {
		if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
			log.Fatalf("failed to prepare database %v\n", err)
		}
	}

	// connect database
	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		log.Fatalf("database connection failed %v\n", err)
	}
	defer ds.Stop()

	// database migration (race condition)
	err = ds.GormDB().AutoMigrate(
		&account.User{}, &domain.Project{}, &domain.Bid{}, &domain.Milestone{},
		&domain.Article{}, &domain.Sprint{}, &domain.Task{}, &domain.Review{},
		&activity.Record{}, &notification.Notification{}).Error
	if err != nil {
		log.Fatalf("database migration failed %v\n", err)
	}

	tracer, closer, err := (&jaegercfg.Configuration{ServiceName: common.GetServiceName()}).NewTracer()
	if err != nil {
		log.Fatalf("tracer setup failed %v\n", err)
	}
	defer closer.Close()
	opentracing.SetGlobalTracer(tracer)

	if err := es.Start(); err != nil {
		log.Fatalf("elasticsearch client setup failed %v\n", err)
	}

	notifier := notification.NewNotifier(ds)
	defer notifier.Close()
	indexer := indices.NewProjectIndexer(ds)
	activity.Handlers = append(activity.Handlers, notifier.OnActivity, indexer.OnActivity)

	userManager := account.NewUserManager(ds)
	projectManager := project.NewProjectManager(ds)
	bidManager := bid.NewBidManager(ds)
	milestoneManager := milestone.NewMilestoneManager(ds)
	articleManager := article.NewArticleManager(ds)
	sprintManager := sprint.NewSprintManager(ds)
	taskManager := sprint.NewTaskManager(ds)
	reviewManager := review.NewReviewManager(ds)
	recordManager := activity.NewRecordManager(ds)
	notificationManager := notification.NewNotificationManager(ds)

	engine := gin.New()
	engine.Use(gin.Logger(), tracing.TracingIngress(), bizerror.ErrorHandling())
	engine.GET("/", func(c *gin.Context) {
		c.String(200, "gigmarket")
	})

	sessions.RegisterSessionsHandler(engine, userManager)
	servehttp.RegisterUserHandler(engine, userManager, session.SimpleAuthFilter())
	servehttp.RegisterProjectHandler(engine, projectManager, session.SimpleAuthFilter())
	servehttp.RegisterBidHandler(engine, bidManager, session.SimpleAuthFilter())
	servehttp.RegisterMilestoneHandler(engine, milestoneManager, session.SimpleAuthFilter())
	servehttp.RegisterArticleHandler(engine, articleManager, session.SimpleAuthFilter())
	servehttp.RegisterSprintHandler(engine, sprintManager, session.SimpleAuthFilter())
	servehttp.RegisterTaskHandler(engine, taskManager, session.SimpleAuthFilter())
	servehttp.RegisterReviewHandler(engine, reviewManager, session.SimpleAuthFilter())
	servehttp.RegisterActivityHandler(engine, recordManager, session.SimpleAuthFilter())
	servehttp.RegisterNotificationHandler(engine, notificationManager, session.SimpleAuthFilter())
	servehttp.RegisterSearchHandler(engine, session.SimpleAuthFilter())

	servehttp.StartHTTPServer(engine)
}
