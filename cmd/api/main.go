package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tempora-hr/timesheet-backend-go/internal/config"
	appHTTP "github.com/tempora-hr/timesheet-backend-go/internal/handler/http"
	"github.com/tempora-hr/timesheet-backend-go/internal/pkg/cron"
	"github.com/tempora-hr/timesheet-backend-go/internal/pkg/database"
	"github.com/tempora-hr/timesheet-backend-go/internal/pkg/jwt"
	"github.com/tempora-hr/timesheet-backend-go/internal/pkg/sse"
	"github.com/tempora-hr/timesheet-backend-go/internal/repository/postgresql"
	auditService "github.com/tempora-hr/timesheet-backend-go/internal/service/audit"
	cacheService "github.com/tempora-hr/timesheet-backend-go/internal/service/cache"
	notificationService "github.com/tempora-hr/timesheet-backend-go/internal/service/notification"
	ledgerService "github.com/tempora-hr/timesheet-backend-go/internal/service/timesheet"
	"github.com/tempora-hr/timesheet-backend-go/internal/service/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL())
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		return
	}
	defer db.Close()

	rdb, err := database.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		fmt.Println("Error connecting to redis:", err)
		return
	}
	defer rdb.Close()

	timesheetRepo := postgresql.NewTimesheetRepository(db)
	activityRepo := postgresql.NewActivityRepository(db)
	userRepo := postgresql.NewUserRepository(db)
	auditRepo := postgresql.NewAuditRepository(db)

	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.SSETokenLifetime)
	hub := sse.NewHub()

	recorder := auditService.NewRecorder(auditRepo)
	gate := workflow.NewGate()
	dispatcher := notificationService.NewDispatcher(userRepo, notificationService.NewRedisPublisher(rdb), hub, notificationService.Config{})
	defer dispatcher.Stop()
	invalidator := cacheService.NewInvalidator(rdb)

	ledger := ledgerService.NewLedgerService(db, timesheetRepo, activityRepo, recorder)
	engine := workflow.NewEngine(db, gate, timesheetRepo, activityRepo, recorder, dispatcher, invalidator, cfg.Workflow.LockAfter)

	timesheetHandler := appHTTP.NewTimesheetHandler(ledger, engine, recorder)
	eventsHandler := appHTTP.NewEventsHandler(hub, jwtService)

	scheduler := cron.NewScheduler()
	scheduler.AddJob("lock-approved-timesheets", cfg.Workflow.LockSweepInterval, engine.LockDueTimesheets)
	scheduler.Start()
	defer scheduler.Stop()

	router := appHTTP.NewRouter(jwtService, timesheetHandler, eventsHandler)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	server := &http.Server{Addr: port, Handler: router}

	go func() {
		fmt.Printf("Server running at http://localhost%s\n", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Println("Server error:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("Shutting down...")
	_ = server.Close()
}
