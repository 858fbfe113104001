package routes

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"canvass/app"
	"canvass/export"
	"canvass/httpx"
	"canvass/log"
	"canvass/model"
	"canvass/store"
)

const maxImportSize = 1 << 20 // 1 MiB is plenty for a survey definition

func CreateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		survey := model.Survey{}
		err := render.DecodeJSON(r.Body, &survey)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		id, err := app.Repo.SaveSurvey(r.Context(), &survey)
		if err != nil {
			if storeFailure(err) {
				httpx.LogInternalError(w, "db.insert_survey", err)
			} else {
				httpx.LogStatusMsg(w, http.StatusUnprocessableEntity, log.DebugLevel, "survey.validate", "%s", err)
			}
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": id,
		})
	}
}

func ImportSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportSize))
		if err != nil {
			httpx.LogStatus(w, http.StatusRequestEntityTooLarge, log.DebugLevel, "request.read_body")
			return
		}

		survey, err := app.Repo.ImportSurvey(r.Context(), doc)
		if err != nil {
			switch {
			case errors.Is(err, export.ErrInvalidFormat):
				httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "survey.import.format", "%s", err)
			case storeFailure(err):
				httpx.LogInternalError(w, "db.import_survey", err)
			default:
				httpx.LogStatusMsg(w, http.StatusUnprocessableEntity, log.DebugLevel, "survey.import.validate", "%s", err)
			}
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, survey)
	}
}

// surveyListing is a survey annotated with its response count for the
// list view. The count is composed here, not in the repository.
type surveyListing struct {
	model.Survey
	ResponseCount int `json:"responseCount"`
}

func ListSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveys, err := app.Repo.ListSurveys(r.Context())
		if err != nil {
			httpx.LogInternalError(w, "db.get_surveys", err)
			return
		}

		listings := []surveyListing{}
		for _, s := range surveys {
			responses, err := app.Repo.GetResponses(r.Context(), s.ID)
			if err != nil {
				httpx.LogInternalError(w, "db.get_surveys.count_responses", err)
				return
			}
			listings = append(listings, surveyListing{Survey: s, ResponseCount: len(responses)})
		}

		render.JSON(w, r, map[string]any{
			"surveys": listings,
		})
	}
}

func GetSurveyById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := urlId(r, "id")
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		survey, err := app.Repo.GetSurvey(r.Context(), surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_survey", err)
			return
		}
		if survey == nil {
			httpx.LogNotFound(w, "get_survey", surveyId)
			return
		}

		render.JSON(w, r, survey)
	}
}

func DeleteSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := urlId(r, "id")
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		// cascades to responses; deleting an unknown id is a no-op
		err = app.Repo.DeleteSurvey(r.Context(), surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_survey", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func GetSurveyResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := urlId(r, "id")
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		survey, err := app.Repo.GetSurvey(r.Context(), surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_survey", err)
			return
		}
		if survey == nil {
			httpx.LogNotFound(w, "get_responses", surveyId)
			return
		}

		responses, err := app.Repo.GetResponses(r.Context(), surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"responses": responses,
		})
	}
}

func ClearSurveyResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := urlId(r, "id")
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		err = app.Repo.ClearResponses(r.Context(), surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.clear_responses", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responseId, err := urlId(r, "id")
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		err = app.Repo.DeleteResponse(r.Context(), responseId)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_response", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func urlId(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// storeFailure tells storage-layer errors apart from domain validation
// errors, which get a 4xx instead of a 500.
func storeFailure(err error) bool {
	var writeErr *store.WriteError
	var readErr *store.ReadError
	return errors.As(err, &writeErr) ||
		errors.As(err, &readErr) ||
		errors.Is(err, store.ErrNotInitialized) ||
		errors.Is(err, store.ErrUnavailable)
}
