package routes

import (
	"quizhub/backend/config"
	"quizhub/backend/controllers"
	"quizhub/backend/middleware"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware(db, cfg)

	// Homepage
	homepageController := controllers.NewHomepageController(db, cfg)
	app.Get("/api/homepage", homepageController.GetHomepage)

	// User routes
	userController := controllers.NewUserController(db, cfg)
	app.Get("/api/user/profile", authMiddleware, userController.GetProfile)
	app.Put("/api/user/profile", authMiddleware, userController.UpdateProfile)

	// Progress routes
	progressController := controllers.NewProgressController(db, cfg)
	app.Get("/api/progress", authMiddleware, progressController.GetProgress)

	// Question set routes. Catalog and details are public so anonymous
	// visitors can browse; the access verdict is computed per caller.
	questionSetsController := controllers.NewQuestionSetsController(db, cfg)
	sets := app.Group("/api/questionsets")
	sets.Get("/", questionSetsController.ListQuestionSets)
	sets.Get("/:id", questionSetsController.GetQuestionSet)
	sets.Post("/:id/answers", authMiddleware, questionSetsController.SubmitAnswers)
	sets.Get("/:id/result", authMiddleware, questionSetsController.GetResult)

	// Quiz session routes
	sessionController := controllers.NewSessionController(db, cfg)
	sets.Post("/:id/session", authMiddleware, sessionController.StartSession)
	sets.Put("/:id/session/mode", authMiddleware, sessionController.SetMode)
	sets.Post("/:id/session/navigate", authMiddleware, sessionController.Navigate)

	// Payment and redeem routes
	paymentsController := controllers.NewPaymentsController(db, cfg)
	app.Post("/api/redeem", authMiddleware, paymentsController.Redeem)
	sets.Post("/:id/purchase", authMiddleware, paymentsController.CompletePurchase)
	app.Get("/api/entitlements", authMiddleware, paymentsController.ListEntitlements)

	// Admin routes for question sets
	adminSets := app.Group("/api/admin/questionsets", authMiddleware, adminMiddleware)
	adminSets.Post("/", questionSetsController.CreateQuestionSet)
	adminSets.Put("/:id", questionSetsController.UpdateQuestionSet)
	adminSets.Delete("/:id", questionSetsController.DeleteQuestionSet)
	adminSets.Post("/:id/questions", questionSetsController.AddQuestion)
	adminSets.Put("/:id/questions/:questionId", questionSetsController.UpdateQuestion)
	adminSets.Delete("/:id/questions/:questionId", questionSetsController.DeleteQuestion)

	// Admin routes for redeem codes
	adminCodes := app.Group("/api/admin/codes", authMiddleware, adminMiddleware)
	adminCodes.Post("/", paymentsController.GenerateCodes)
	adminCodes.Get("/", paymentsController.ListCodes)

	// Admin routes for users and homepage content
	adminUsers := app.Group("/api/admin/users", authMiddleware, adminMiddleware)
	adminUsers.Get("/", userController.ListUsers)
	adminUsers.Delete("/:id", userController.DeleteUser)
	app.Put("/api/admin/homepage", authMiddleware, adminMiddleware, homepageController.UpdateHomepage)
}
