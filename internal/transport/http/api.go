package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/auth"
	"live-quiz-service/internal/domain"
	"live-quiz-service/internal/errors"
	"live-quiz-service/internal/quizfile"
)

const maxQuizBytes = 1 << 20

type API struct {
	svc *app.Service
}

type (
	createSessionRequest struct {
		Quiz      json.RawMessage `json:"quiz,omitempty"`
		QuizID    string          `json:"quizId,omitempty"`
		TimeLimit int             `json:"timeLimit,omitempty"`
	}

	joinRequest struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}

	answerRequest struct {
		QuestionID string       `json:"questionId"`
		Answer     domain.Value `json:"answer"`
	}

	timeoutRequest struct {
		QuestionID string `json:"questionId"`
	}

	savedQuiz struct {
		ID string `json:"id"`
	}
)

var (
	errBadBody    = errors.InvalidArgument("malformed request body")
	errQuestionID = errors.InvalidArgument("questionId is required")
)

// readQuiz imports a quiz document from the request body. YAML is accepted
// when the content type says so.
func readQuiz(c *gin.Context) (domain.Quiz, error) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxQuizBytes))
	if err != nil {
		return domain.Quiz{}, errBadBody.Wrap(err)
	}
	format := quizfile.FormatJSON
	if strings.Contains(c.ContentType(), "yaml") {
		format = quizfile.FormatYAML
	}
	return quizfile.Parse(data, format)
}

func (a *API) ValidateQuiz(c *gin.Context) {
	quiz, err := readQuiz(c)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (a *API) SaveQuiz(c *gin.Context) {
	quiz, err := readQuiz(c)
	if err != nil {
		abort(c, err)
		return
	}
	id, err := a.svc.SaveQuiz(c.Request.Context(), quiz)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, savedQuiz{ID: id})
}

func (a *API) ExportQuiz(c *gin.Context) {
	quiz, err := a.svc.Quiz(c.Request.Context(), c.Param("id"))
	if err != nil {
		abort(c, err)
		return
	}
	data, err := quizfile.Export(quiz)
	if err != nil {
		abort(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

func (a *API) CreateSession(c *gin.Context) {
	var body createSessionRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abort(c, errBadBody.Wrap(err))
		return
	}

	req := app.CreateSessionRequest{QuizID: body.QuizID, TimeLimit: body.TimeLimit}
	if len(body.Quiz) > 0 && string(body.Quiz) != "null" {
		quiz, err := quizfile.ParseJSON(body.Quiz)
		if err != nil {
			abort(c, err)
			return
		}
		req.Quiz = &quiz
	}

	created, err := a.svc.CreateSession(c.Request.Context(), req)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetSession hides correct answers from everyone but the host until the
// session has finished.
func (a *API) GetSession(c *gin.Context) {
	id := c.Param("id")
	session, err := a.svc.Session(c.Request.Context(), id)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, visibleSession(session, claimsFrom(c)))
}

func visibleSession(s domain.Session, claims *auth.Claims) domain.Session {
	if s.Status != domain.StatusFinished && !claims.Can(auth.RoleHost, s.ID) {
		s.Quiz = s.Quiz.Redacted()
	}
	return s
}

func (a *API) StartSession(c *gin.Context) {
	a.transition(c, a.svc.StartSession)
}

func (a *API) FinishSession(c *gin.Context) {
	a.transition(c, a.svc.FinishSession)
}

func (a *API) transition(c *gin.Context, fn func(ctx context.Context, sessionID string) (domain.Session, error)) {
	id := c.Param("id")
	if !claimsFrom(c).Can(auth.RoleHost, id) {
		abort(c, auth.ErrForbidden)
		return
	}
	session, err := fn(c.Request.Context(), id)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func (a *API) Join(c *gin.Context) {
	var body joinRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abort(c, errBadBody.Wrap(err))
		return
	}
	joined, err := a.svc.Join(c.Request.Context(), body.Code, body.Name)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusCreated, joined)
}

// GetParticipant lets a participant resume after a reload. The host may read
// any participant of the session.
func (a *API) GetParticipant(c *gin.Context) {
	id, pid := c.Param("id"), c.Param("pid")
	claims := claimsFrom(c)
	if !claims.Owns(id, pid) && !claims.Can(auth.RoleHost, id) {
		abort(c, auth.ErrForbidden)
		return
	}
	p, err := a.svc.Participant(c.Request.Context(), id, pid)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (a *API) SubmitAnswer(c *gin.Context) {
	id, pid := c.Param("id"), c.Param("pid")
	if !claimsFrom(c).Owns(id, pid) {
		abort(c, auth.ErrForbidden)
		return
	}
	var body answerRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abort(c, errBadBody.Wrap(err))
		return
	}
	if body.QuestionID == "" {
		abort(c, errQuestionID)
		return
	}
	sub, err := a.svc.SubmitAnswer(c.Request.Context(), id, pid, body.QuestionID, body.Answer)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (a *API) SubmitTimeout(c *gin.Context) {
	id, pid := c.Param("id"), c.Param("pid")
	if !claimsFrom(c).Owns(id, pid) {
		abort(c, auth.ErrForbidden)
		return
	}
	var body timeoutRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abort(c, errBadBody.Wrap(err))
		return
	}
	if body.QuestionID == "" {
		abort(c, errQuestionID)
		return
	}
	sub, err := a.svc.SubmitTimeout(c.Request.Context(), id, pid, body.QuestionID)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Results is readable with any token issued for the session.
func (a *API) Results(c *gin.Context) {
	id := c.Param("id")
	if claimsFrom(c).SessionID != id {
		abort(c, auth.ErrForbidden)
		return
	}
	report, err := a.svc.Results(c.Request.Context(), id)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (a *API) ResultsCSV(c *gin.Context) {
	id := c.Param("id")
	if !claimsFrom(c).Can(auth.RoleHost, id) {
		abort(c, auth.ErrForbidden)
		return
	}

	var buf bytes.Buffer
	if err := a.svc.ResultsCSV(c.Request.Context(), id, &buf); err != nil {
		abort(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="results-%s.csv"`, id))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
