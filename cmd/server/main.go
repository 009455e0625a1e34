package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	"k8s.io/klog/v2"

	"github.com/sakuralearn/backend/config"
	"github.com/sakuralearn/backend/internal/eventbus"
	"github.com/sakuralearn/backend/internal/handler"
	"github.com/sakuralearn/backend/internal/pkg/database"
	"github.com/sakuralearn/backend/internal/pkg/storage"
	"github.com/sakuralearn/backend/internal/repository"
	"github.com/sakuralearn/backend/internal/router"
	"github.com/sakuralearn/backend/internal/service"
	"github.com/sakuralearn/backend/internal/subscriber"
)

func main() {
	// 初始化 klog
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	// .env 可选，环境变量优先
	_ = godotenv.Load()

	klog.V(6).Info("服务启动中...")

	cfg := config.GetConfig()

	if err := os.MkdirAll(cfg.Data.Dir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	// 初始化数据库
	db, err := database.InitDB(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// 初始化资产存储
	store, err := storage.NewLocalStore(cfg.Data.UploadDir)
	if err != nil {
		log.Fatalf("Failed to initialize asset store: %v", err)
	}

	// 初始化 Repository
	courseRepo := repository.NewCourseRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	chapterRepo := repository.NewChapterRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	choiceRepo := repository.NewChoiceRepository(db)
	refRepo := repository.NewReferenceRepository(db)

	// 事件总线与订阅者：资产清理只在提交后通过事件执行
	bus := eventbus.NewCourseEventBus()
	subscriber.NewCourseEventSubscriber(store).Register(bus)

	// 初始化 Service
	authzService := service.NewAuthzService(courseRepo)
	courseService := service.NewCourseService(cfg, db, bus, store, authzService,
		courseRepo, sectionRepo, chapterRepo, quizRepo, questionRepo, choiceRepo, refRepo)
	catalogService := service.NewCatalogService(refRepo)

	// 初始化 Handler
	courseHandler := handler.NewCourseHandler(courseService)
	catalogHandler := handler.NewCatalogHandler(catalogService)

	// 设置路由
	r := router.Setup(cfg, courseHandler, catalogHandler)

	log.Printf("Server starting on port %s...", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
