package routes

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"canvass/app"
	"canvass/export"
	"canvass/httpx"
	"canvass/log"
	"canvass/model"
)

var reNoIdent = regexp.MustCompile(`\W+`)

// fileSlug turns a survey name into a safe download file name fragment.
func fileSlug(name string) string {
	slug := strings.ToLower(name)
	slug = reNoIdent.ReplaceAllLiteralString(slug, " ")
	slug = strings.Join(strings.Fields(slug), "_")
	if slug == "" {
		slug = "survey"
	}
	return slug
}

func ExportSurveyDefinition(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		survey, ok := loadSurvey(app, w, r, "export_definition")
		if !ok {
			return
		}

		doc, err := export.MarshalDefinition(*survey)
		if err != nil {
			httpx.LogInternalError(w, "export.definition.marshal", err)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+fileSlug(survey.Name)+`.json"`)
		w.Write(doc)
	}
}

func ExportResponsesCSV(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		survey, ok := loadSurvey(app, w, r, "export_csv")
		if !ok {
			return
		}

		responses, ok := loadResponses(app, w, r, survey.ID, "export_csv")
		if !ok {
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+fileSlug(survey.Name)+`_responses.csv"`)
		w.Write(export.ResponsesCSV(*survey, responses))
	}
}

func ExportResponsesXLSX(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		survey, ok := loadSurvey(app, w, r, "export_xlsx")
		if !ok {
			return
		}

		responses, ok := loadResponses(app, w, r, survey.ID, "export_xlsx")
		if !ok {
			return
		}

		workbook, err := export.ResponsesWorkbook(*survey, responses)
		if err != nil {
			httpx.LogInternalError(w, "export.workbook", err)
			return
		}

		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+fileSlug(survey.Name)+`_responses.xlsx"`)
		if err := workbook.Write(w); err != nil {
			log.Errorf("export.workbook.write: %s", err)
		}
	}
}

func loadSurvey(app app.App, w http.ResponseWriter, r *http.Request, op string) (*model.Survey, bool) {
	surveyId, err := urlId(r, "id")
	if err != nil {
		httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
		return nil, false
	}

	survey, err := app.Repo.GetSurvey(r.Context(), surveyId)
	if err != nil {
		httpx.LogInternalError(w, "db.get_survey", err)
		return nil, false
	}
	if survey == nil {
		httpx.LogNotFound(w, op, surveyId)
		return nil, false
	}
	return survey, true
}

// loadResponses honors optional from/to query parameters (RFC 3339) to
// narrow the export window.
func loadResponses(app app.App, w http.ResponseWriter, r *http.Request, surveyId int64, op string) ([]model.Response, bool) {
	from, err := timeParam(r, "from")
	if err != nil {
		httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_query_param.from")
		return nil, false
	}
	to, err := timeParam(r, "to")
	if err != nil {
		httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_query_param.to")
		return nil, false
	}

	responses, err := app.Repo.GetResponsesInRange(r.Context(), surveyId, from, to)
	if err != nil {
		httpx.LogInternalError(w, "db.get_responses."+op, err)
		return nil, false
	}
	return responses, true
}

func timeParam(r *http.Request, name string) (*time.Time, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
