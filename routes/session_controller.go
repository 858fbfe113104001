package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"canvass/app"
	"canvass/httpx"
	"canvass/log"
	"canvass/model"
	"canvass/session"
)

// StartSession opens a conduction session for a survey, dropping any
// previous session and resetting the committed counter.
func StartSession(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		survey, ok := loadSurvey(app, w, r, "start_session")
		if !ok {
			return
		}

		sess := app.Sessions.Start(*survey)

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, sessionView(sess))
	}
}

func GetSession(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := app.Sessions.Active()
		if sess == nil {
			httpx.LogNotFound(w, "get_session", "none active")
			return
		}

		render.JSON(w, r, sessionView(sess))
	}
}

func EndSession(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app.Sessions.End()
		w.WriteHeader(http.StatusNoContent)
	}
}

func AddCard(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := app.Sessions.Active()
		if sess == nil {
			httpx.LogNotFound(w, "add_card", "no active session")
			return
		}

		card := sess.AddCard()

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, card)
	}
}

func SetCardAnswer(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := app.Sessions.Active()
		if sess == nil {
			httpx.LogNotFound(w, "set_answer", "no active session")
			return
		}

		cardId, err := uuid.Parse(chi.URLParam(r, "cardId"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.cardId")
			return
		}
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.index")
			return
		}

		answer := model.Answer{}
		err = render.DecodeJSON(r.Body, &answer)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		err = sess.SetAnswer(cardId, index, answer)
		if errors.Is(err, session.ErrNoCard) {
			httpx.LogNotFound(w, "set_answer", cardId)
			return
		}
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "session.set_answer", "%s", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func CommitCard(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := app.Sessions.Active()
		if sess == nil {
			httpx.LogNotFound(w, "commit_card", "no active session")
			return
		}

		cardId, err := uuid.Parse(chi.URLParam(r, "cardId"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.cardId")
			return
		}

		responseId, err := sess.Commit(r.Context(), cardId)
		if err != nil {
			var invalid *session.ValidationError
			switch {
			case errors.Is(err, session.ErrNoCard):
				httpx.LogNotFound(w, "commit_card", cardId)
			case errors.As(err, &invalid):
				// card stays open, offenders flagged, nothing persisted
				log.Debugf("session.commit.validate: %s", invalid)
				w.WriteHeader(http.StatusUnprocessableEntity)
				render.JSON(w, r, map[string]any{
					"invalid": invalid.Questions,
				})
			default:
				httpx.LogInternalError(w, "db.insert_response", err)
			}
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id":        responseId,
			"committed": sess.Committed(),
		})
	}
}

func DiscardCard(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := app.Sessions.Active()
		if sess == nil {
			httpx.LogNotFound(w, "discard_card", "no active session")
			return
		}

		cardId, err := uuid.Parse(chi.URLParam(r, "cardId"))
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.cardId")
			return
		}

		if err := sess.Discard(cardId); errors.Is(err, session.ErrNoCard) {
			httpx.LogNotFound(w, "discard_card", cardId)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func sessionView(sess *session.Session) map[string]any {
	survey := sess.Survey()
	return map[string]any{
		"surveyId":  survey.ID,
		"survey":    survey,
		"cards":     sess.Cards(),
		"committed": sess.Committed(),
	}
}
