package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/ftpong/arena-server/handlers"
	"github.com/ftpong/arena-server/middleware"
)

func SetupRoutes(
	router *chi.Mux,
	receptionHandler *handlers.ReceptionHandler,
	tournamentHandler *handlers.TournamentHandler,
	matchHandler *handlers.MatchHandler,
	receptionWS *handlers.ReceptionWSHandler,
	arenaWS *handlers.ArenaWSHandler,
	jwtSecret []byte,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)

	router.Route("/receptions", func(r chi.Router) {
		r.Get("/", receptionHandler.ListHandler)
		r.Get("/{receptionID}", receptionHandler.GetByIDHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/", receptionHandler.CreateHandler)
			r.Post("/{receptionID}/join", receptionHandler.JoinHandler)
			r.Post("/{receptionID}/invite", receptionHandler.InviteHandler)
		})
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", tournamentHandler.ListHandler)
		r.Get("/{tournamentID}", tournamentHandler.GetByIDHandler)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/", tournamentHandler.CreateHandler)
			r.Post("/{tournamentID}/join", tournamentHandler.JoinHandler)
			r.Put("/{tournamentID}/banner", tournamentHandler.UploadBannerHandler)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Use(authenticate)
		r.Get("/history", matchHandler.HistoryHandler)
	})

	// Websocket endpoints authenticate via query parameters, never headers.
	router.Get("/ws/receptions/{receptionID}", receptionWS.ServeWS)
	router.Get("/ws/arenas/{arenaID}", arenaWS.ServeReceptionArena)
	router.Get("/ws/tournaments/{tournamentID}/matches/{matchNumber}", arenaWS.ServeTournamentArena)

	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
}
