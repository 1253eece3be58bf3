package main

import (
	"expvar"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/justinas/alice"
)

// wsRoutes() holds the long lived routes: the notification stream and the
// websocket assistant. They are served on their own port without a write timeout.
func (app *application) wsRoutes() http.Handler {
	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.config.cors.trustedOrigins,
		AllowedMethods:   []string{"GET"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	//Use alice to make a global middleware chain.
	wsMiddleware := alice.New(app.recoverPanic).Then

	v1Router := chi.NewRouter()
	v1Router.With(wsMiddleware).Get("/notifications/stream", app.ServeSSE)
	v1Router.With(wsMiddleware).Get("/ws/assistant", app.assistantWebSocketHandler)
	router.Mount("/v1", v1Router)
	return router
}

// routes() is a method that returns a http.Handler that contains all the routes for the application
func (app *application) routes() http.Handler {
	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.config.cors.trustedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))
	router.NotFound(app.notFoundResponse)
	router.MethodNotAllowed(app.methodNotAllowedResponse)

	//Use alice to make a global middleware chain.
	globalMiddleware := alice.New(app.metrics, app.recoverPanic, app.rateLimit).Then
	router.Use(globalMiddleware)

	datasetMiddleware := alice.New(app.requireDataset)

	v1Router := chi.NewRouter()
	v1Router.Get("/healthcheck", app.healthcheckHandler)
	v1Router.With(datasetMiddleware.Then).Mount("/dashboard", app.dashboardRoutes())
	v1Router.With(datasetMiddleware.Then).Mount("/savings", app.savingsRoutes())
	v1Router.Post("/dataset/refresh", app.refreshDatasetHandler)
	v1Router.Mount("/goals", app.goalRoutes())
	v1Router.Mount("/assistant", app.assistantRoutes())
	v1Router.Mount("/feed", app.feedRoutes())

	router.Mount("/v1", v1Router)
	router.Method(http.MethodGet, "/debug/vars", expvar.Handler())
	return router
}

func (app *application) dashboardRoutes() chi.Router {
	dashboardRoutes := chi.NewRouter()
	dashboardRoutes.Get("/summary", app.getDashboardSummaryHandler)
	dashboardRoutes.Get("/categories", app.getCategoryBreakdownHandler)
	dashboardRoutes.Get("/monthly", app.getMonthlyOverviewHandler)
	dashboardRoutes.Get("/transactions", app.getFilteredTransactionsHandler)
	return dashboardRoutes
}

func (app *application) savingsRoutes() chi.Router {
	savingsRoutes := chi.NewRouter()
	savingsRoutes.Get("/analysis", app.getSavingsAnalysisHandler)
	savingsRoutes.Get("/recommendations", app.getRecommendationsHandler)
	return savingsRoutes
}

func (app *application) goalRoutes() chi.Router {
	goalRoutes := chi.NewRouter()
	goalRoutes.Get("/", app.getAllGoalsWithProgressHandler)
	goalRoutes.Post("/", app.createNewGoalHandler)
	goalRoutes.Get("/{goalID}", app.getGoalHandler)
	goalRoutes.Delete("/{goalID}", app.deleteGoalHandler)
	goalRoutes.Patch("/{goalID}/progress", app.addGoalProgressHandler)
	return goalRoutes
}

func (app *application) assistantRoutes() chi.Router {
	assistantRoutes := chi.NewRouter()
	assistantRoutes.Get("/messages", app.getChatHistoryHandler)
	assistantRoutes.Post("/messages", app.askAssistantHandler)
	assistantRoutes.Delete("/messages", app.clearChatHistoryHandler)
	assistantRoutes.Get("/quick-questions", app.getQuickQuestionsHandler)
	assistantRoutes.Put("/credentials", app.setAssistantCredentialHandler)
	assistantRoutes.Delete("/credentials", app.removeAssistantCredentialHandler)
	return assistantRoutes
}

func (app *application) feedRoutes() chi.Router {
	feedRoutes := chi.NewRouter()
	feedRoutes.Get("/{kind}", app.getLedgerFeedHandler)
	return feedRoutes
}
