package http

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"

	"github.com/tempora-hr/timesheet-backend-go/internal/domain/user"
	"github.com/tempora-hr/timesheet-backend-go/internal/handler/http/middleware"
	"github.com/tempora-hr/timesheet-backend-go/internal/pkg/jwt"
)

func NewRouter(jwtService jwt.Service, timesheetHandler TimesheetHandler, eventsHandler EventsHandler) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "timesheet-backend"),
		slog.String("version", "v1.0.0"),
		slog.String("env", "development"),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {

		// The stream endpoint authenticates with its own short-lived token.
		r.Get("/events/stream", eventsHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(jwtService.JWTAuth()))
			r.Use(middleware.AuthRequired(jwtService.JWTAuth()))
			r.Use(middleware.WithActor)

			r.Get("/events/token", eventsHandler.GetSSEToken)

			r.Route("/timesheets", func(r chi.Router) {
				r.Post("/", timesheetHandler.Create)
				r.Get("/my", timesheetHandler.GetMy)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRoles(user.RoleManager, user.RoleHR, user.RoleDirector, user.RoleAdmin))
					r.Get("/pending", timesheetHandler.GetPending)
				})

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", timesheetHandler.Get)
					r.Delete("/", timesheetHandler.Delete)
					r.Get("/audit", timesheetHandler.AuditTrail)

					r.Post("/activities", timesheetHandler.AddActivity)
					r.Put("/activities/{activityID}", timesheetHandler.UpdateActivity)
					r.Delete("/activities/{activityID}", timesheetHandler.DeleteActivity)

					r.Post("/submit", timesheetHandler.Submit)
					r.Post("/cancel", timesheetHandler.Cancel)
					r.Post("/manager-decision", timesheetHandler.ManagerDecision)
					r.Post("/final-decision", timesheetHandler.FinalDecision)

					// Admin only
					r.Group(func(r chi.Router) {
						r.Use(middleware.AdminOnly)
						r.Post("/revert", timesheetHandler.Revert)
					})
				})
			})
		})
	})
	return r
}
