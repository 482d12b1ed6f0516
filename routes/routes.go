package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Dosada05/mob-api/handlers"
	"github.com/Dosada05/mob-api/middleware"
	"github.com/Dosada05/mob-api/repositories"
	"github.com/Dosada05/mob-api/services"
)

type Handlers struct {
	Auth        *handlers.AuthHandler
	User        *handlers.UserHandler
	Tournament  *handlers.TournamentHandler
	Encounter   *handlers.EncounterHandler
	Leaderboard *handlers.LeaderboardHandler
}

type Options struct {
	AllowedOrigins []string
	// RequestLogging turns on chi's request logger.
	RequestLogging bool
}

func SetupRoutes(h Handlers, verifier services.TokenVerifier, opts Options) http.Handler {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	if opts.RequestLogging {
		router.Use(chiMiddleware.Logger)
	}
	router.Use(chiMiddleware.Recoverer)
	router.Use(chiMiddleware.Timeout(30 * time.Second))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticated := middleware.Authenticate(verifier)

	router.Route("/api", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.Post("/refreshToken", h.Auth.RefreshToken)
		r.With(authenticated).Get("/me", h.Auth.Me)

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", h.User.ListUsers)

			r.Group(func(r chi.Router) {
				r.Use(authenticated)

				r.Get("/{id}", h.User.GetUserByID)
				r.Patch("/{id}", h.User.UpdateProfile)
				r.Delete("/{id}", h.User.DeleteAccount)
				r.Patch("/{id}/pwd", h.User.ChangePassword)
				r.Post("/{id}/add-honor", h.User.AddHonor)
				r.Post("/{id}/remove-honor", h.User.RemoveHonor)
				r.Post("/{id}/add-trophies", h.User.AddTrophy)
				r.Get("/{id}/tournaments", h.User.ListTournaments)
				r.Post("/{id}/avatar", h.User.UploadAvatar)
			})
		})

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", h.Tournament.ListHandler)
			r.Get("/{id}", h.Tournament.GetByIDHandler)
			r.Get("/{id}/encounters", h.Tournament.ListEncountersHandler)
			r.Get("/{id}/encounters/profiles", h.Tournament.ListEncounterProfilesHandler)

			r.Group(func(r chi.Router) {
				r.Use(authenticated)

				r.Post("/", h.Tournament.CreateHandler)
				r.Patch("/{id}", h.Tournament.UpdateHandler)
				r.Delete("/{id}", h.Tournament.DeleteHandler)
				r.Post("/{id}/image", h.Tournament.UploadImageHandler)
				r.Get("/{id}/profiles", h.Tournament.ListProfilesHandler)
				r.Post("/{id}/profiles", h.Tournament.EnrollHandler)
				r.Delete("/{id}/profiles/{user_id}", h.Tournament.UnenrollHandler)
			})
		})

		r.Route("/encounters", func(r chi.Router) {
			r.Get("/{id}", h.Encounter.GetByIDHandler)
			r.Get("/tournaments/{id}", h.Encounter.ListByTournamentHandler)

			r.Group(func(r chi.Router) {
				r.Use(authenticated)

				r.Post("/", h.Encounter.CreateHandler)
				r.Patch("/{id}", h.Encounter.UpdateHandler)
				r.Get("/{id}/profiles", h.Encounter.ListProfilesHandler)
				r.Post("/{id}/profiles", h.Encounter.AddProfileHandler)
			})
		})

		r.Route("/leaderboard", func(r chi.Router) {
			r.Get("/", h.Leaderboard.All)
			for _, order := range []repositories.LeaderboardOrder{
				repositories.OrderMostTrophies,
				repositories.OrderMostHonor,
				repositories.OrderLessHonor,
				repositories.OrderLastRegistered,
			} {
				r.Get("/"+string(order), h.Leaderboard.Board(order))
			}
		})
	})

	return router
}
