package routes

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Aibek0/bracket-engine/handlers"
	"github.com/Aibek0/bracket-engine/middleware"
	"github.com/Aibek0/bracket-engine/models"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Tournament *handlers.TournamentHandler
	Team       *handlers.TeamHandler
	Bracket    *handlers.BracketHandler
	WebSocket  *handlers.WebSocketHandler
}

func InitRoutes(h Handlers, auth *middleware.Authenticator) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/swagger/*", httpSwagger.Handler())

	router.Post("/auth/register", h.Auth.Register)
	router.Post("/auth/login", h.Auth.Login)

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)

	organizerOnly := middleware.Authorize(string(models.RoleOrganizer), string(models.RoleAdmin))

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", h.Tournament.List)
		r.Get("/{tournamentID}", h.Tournament.GetByID)
		r.Get("/{tournamentID}/teams", h.Team.List)
		r.Get("/{tournamentID}/brackets", h.Bracket.List)
		r.Get("/{tournamentID}/brackets/{bracketIdx}/standings", h.Bracket.Standings)
		r.Get("/{tournamentID}/brackets/{bracketIdx}/simulation", h.Bracket.Simulate)
		r.Get("/{tournamentID}/brackets/{bracketIdx}/prepared-maps", h.Bracket.GetPreparedMaps)
		r.Get("/{tournamentID}/standings", h.Bracket.FinalStandings)
		r.Get("/{tournamentID}/matches/{matchID}/can-reopen", h.Bracket.MatchCanBeReopened)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(organizerOnly)

			r.Post("/", h.Tournament.Create)
			r.Patch("/{tournamentID}", h.Tournament.Update)
			r.Patch("/{tournamentID}/status", h.Tournament.UpdateStatus)
			r.Post("/{tournamentID}/logo", h.Tournament.UploadLogo)
			r.Delete("/{tournamentID}", h.Tournament.Delete)

			r.Post("/{tournamentID}/teams", h.Team.Register)

			r.Post("/{tournamentID}/brackets/{bracketIdx}/start", h.Bracket.Start)
			r.Post("/{tournamentID}/brackets/{bracketIdx}/swiss-rounds", h.Bracket.GenerateSwissRound)
			r.Put("/{tournamentID}/brackets/{bracketIdx}/prepared-maps", h.Bracket.SavePreparedMaps)
			r.Post("/{tournamentID}/matches/{matchID}/result", h.Bracket.ReportMatchResult)
			r.Post("/{tournamentID}/matches/{matchID}/reopen", h.Bracket.ReopenMatch)
			r.Post("/{tournamentID}/finalize", h.Bracket.Finalize)
		})
	})

	router.Route("/teams", func(r chi.Router) {
		r.Get("/{teamID}", h.Team.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(organizerOnly)

			r.Post("/{teamID}/check-in", h.Team.CheckIn)
			r.Patch("/{teamID}/dropped-out", h.Team.SetDroppedOut)
			r.Post("/{teamID}/logo", h.Team.UploadLogo)
			r.Delete("/{teamID}", h.Team.Delete)
		})
	})

	return router
}
