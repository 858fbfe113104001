package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"canvass/app"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))
	root.Mount("/", serveUIFiles(app.StaticDir))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	// CRUD survey
	api.Post("/surveys", CreateSurvey(app))
	api.Get("/surveys", ListSurveys(app))
	api.Post("/surveys/import", ImportSurvey(app))
	api.Get(`/surveys/{id:^\d+$}`, GetSurveyById(app))
	api.Delete(`/surveys/{id:^\d+$}`, DeleteSurvey(app))

	// responses
	api.Get(`/surveys/{id:^\d+$}/responses`, GetSurveyResponses(app))
	api.Delete(`/surveys/{id:^\d+$}/responses`, ClearSurveyResponses(app))
	api.Delete(`/responses/{id:^\d+$}`, DeleteResponse(app))

	// export
	api.Get(`/surveys/{id:^\d+$}/definition`, ExportSurveyDefinition(app))
	api.Get(`/surveys/{id:^\d+$}/responses.csv`, ExportResponsesCSV(app))
	api.Get(`/surveys/{id:^\d+$}/responses.xlsx`, ExportResponsesXLSX(app))

	// conduction session
	api.Post(`/surveys/{id:^\d+$}/session`, StartSession(app))
	api.Get("/session", GetSession(app))
	api.Delete("/session", EndSession(app))
	api.Post("/session/cards", AddCard(app))
	api.Put("/session/cards/{cardId}/answers/{index}", SetCardAnswer(app))
	api.Post("/session/cards/{cardId}/commit", CommitCard(app))
	api.Delete("/session/cards/{cardId}", DiscardCard(app))

	return api
}

func serveUIFiles(dir string) http.Handler {
	return http.FileServer(http.Dir(dir))
}
