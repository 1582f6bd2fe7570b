package routes

import (
	"traintrack/backend/config"
	"traintrack/backend/controllers"
	"traintrack/backend/middleware"
	"traintrack/backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupRoutes registers every operation together with its permitted-role set.
// This table is the single authorization matrix: role checks live here and in
// middleware.Authorize, never ad hoc inside handlers (ownership checks like
// "own session" excepted, since they need the loaded entity).
func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	authController := controllers.NewAuthController(db, cfg)
	userController := controllers.NewUserController(db, cfg)
	trainingController := controllers.NewTrainingController(db, cfg)
	sessionController := controllers.NewSessionController(db, cfg)
	attemptController := controllers.NewAttemptController(db, cfg)
	reportController := controllers.NewReportController(db, cfg)

	api := app.Group("/api")

	// Public: staff login and the QR/phone self-service flow.
	api.Post("/auth/login", authController.Login)
	api.Get("/sessions/:id/public", sessionController.PublicView)
	api.Post("/sessions/:id/login", sessionController.TraineeLogin)
	api.Post("/sessions/:id/scan", sessionController.Scan)
	api.Get("/sessions/:id/questions", sessionController.GetQuestions)
	api.Post("/sessions/:id/attempts", attemptController.SubmitAttempt)

	// Users
	api.Post("/users",
		middleware.Authorize(cfg, models.RoleSuperadmin, models.RoleHR),
		userController.CreateUser)
	api.Get("/users",
		middleware.Authorize(cfg, models.RoleSuperadmin, models.RoleHR, models.RoleHSE),
		userController.ListUsers)
	api.Get("/users/:id",
		middleware.Authorize(cfg, models.RoleSuperadmin, models.RoleHR, models.RoleHSE),
		userController.GetUser)
	api.Put("/users/:id",
		middleware.Authorize(cfg, models.RoleSuperadmin, models.RoleHR, models.RoleHSE),
		userController.UpdateUser)
	api.Patch("/users/:id/status",
		middleware.Authorize(cfg, models.RoleSuperadmin, models.RoleHR),
		userController.ToggleStatus)
	api.Delete("/users/:id",
		middleware.Authorize(cfg, models.RoleSuperadmin, models.RoleHR, models.RoleHSE),
		userController.DeleteUser)

	// Self-service profile (any authenticated identity)
	api.Get("/profile", middleware.Authorize(cfg), userController.GetProfile)
	api.Put("/profile", middleware.Authorize(cfg), userController.UpdateProfile)

	// Trainings
	api.Post("/trainings",
		middleware.Authorize(cfg, models.RoleSuperadmin, models.RoleHSE),
		trainingController.CreateTraining)
	api.Get("/trainings",
		middleware.Authorize(cfg, models.RoleSuperadmin, models.RoleHR, models.RoleHSE, models.RoleFacilitator),
		trainingController.ListTrainings)
	api.Get("/trainings/:id",
		middleware.Authorize(cfg, models.RoleSuperadmin, models.RoleHR, models.RoleHSE, models.RoleFacilitator),
		trainingController.GetTraining)
	api.Post("/trainings/:id/questions",
		middleware.Authorize(cfg, models.RoleSuperadmin, models.RoleHSE),
		trainingController.PublishQuestions)
	api.Get("/trainings/:id/questionsets/:version",
		middleware.Authorize(cfg, models.RoleSuperadmin, models.RoleHSE, models.RoleFacilitator),
		trainingController.GetQuestionSet)
	api.Put("/trainings/:id",
		middleware.Authorize(cfg, models.RoleSuperadmin, models.RoleHSE),
		trainingController.UpdateTraining)
	api.Delete("/trainings/:id",
		middleware.Authorize(cfg, models.RoleSuperadmin, models.RoleHSE),
		trainingController.DeleteTraining)

	// Sessions
	api.Post("/sessions",
		middleware.Authorize(cfg, models.RoleSuperadmin, models.RoleHR, models.RoleHSE),
		sessionController.CreateSession)
	api.Get("/sessions",
		middleware.Authorize(cfg, models.RoleSuperadmin, models.RoleHR, models.RoleHSE, models.RoleFacilitator),
		sessionController.ListSessions)
	api.Get("/sessions/:id",
		middleware.Authorize(cfg, models.RoleSuperadmin, models.RoleHR, models.RoleHSE, models.RoleFacilitator),
		sessionController.GetSession)
	api.Post("/sessions/:id/start",
		middleware.Authorize(cfg, models.RoleSuperadmin, models.RoleHSE, models.RoleFacilitator),
		sessionController.StartSession)
	api.Post("/sessions/:id/end",
		middleware.Authorize(cfg, models.RoleSuperadmin, models.RoleHSE, models.RoleFacilitator),
		sessionController.EndSession)
	api.Post("/sessions/:id/enroll",
		middleware.Authorize(cfg, models.RoleSuperadmin, models.RoleHR),
		sessionController.EnrollTrainees)
	api.Get("/sessions/:id/attendance",
		middleware.Authorize(cfg, models.RoleSuperadmin, models.RoleHR, models.RoleHSE, models.RoleFacilitator),
		sessionController.Attendance)
	api.Get("/sessions/:id/results",
		middleware.Authorize(cfg, models.RoleSuperadmin, models.RoleHR, models.RoleFacilitator),
		attemptController.SessionResults)

	// Attempt history
	api.Get("/trainees/:id/history",
		middleware.Authorize(cfg),
		attemptController.TraineeHistory)

	// Reports
	api.Get("/reports/summary",
		middleware.Authorize(cfg, models.RoleSuperadmin, models.RoleHR, models.RoleHSE),
		reportController.Summary)
}
