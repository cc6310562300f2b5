package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"pomegranate/internal/core/apperror"
	appctx "pomegranate/internal/core/context"
	"pomegranate/internal/domain/survey"
	"pomegranate/internal/infrastructure/http/v1/dto"
)

// SurveyResponses records questionnaire answers for a user.
type SurveyResponses interface {
	Save(ctx context.Context, userID int64, answers []any) (*survey.SaveResult, error)
	Submit(ctx context.Context, userID int64, answers []any) (*survey.SubmitResult, error)
	Status(ctx context.Context, userID int64) (*survey.Progress, error)
}

// SurveyHandler serves the calling user's questionnaire progress.
type SurveyHandler struct {
	*BaseHandler
	responses SurveyResponses
}

// NewSurveyHandler creates a survey handler.
func NewSurveyHandler(base *BaseHandler, responses SurveyResponses) *SurveyHandler {
	return &SurveyHandler{BaseHandler: base, responses: responses}
}

// Save handles POST /surveys/responses/save
func (h *SurveyHandler) Save(c *gin.Context) {
	userID, answers, ok := h.answers(c)
	if !ok {
		return
	}
	res, err := h.responses.Save(c.Request.Context(), userID, answers)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}

// Submit handles POST /surveys/responses/submit
func (h *SurveyHandler) Submit(c *gin.Context) {
	userID, answers, ok := h.answers(c)
	if !ok {
		return
	}
	res, err := h.responses.Submit(c.Request.Context(), userID, answers)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}

// Status handles GET /surveys/responses/status
func (h *SurveyHandler) Status(c *gin.Context) {
	p := appctx.GetPrincipal(c.Request.Context())
	if p == nil {
		h.Error(c, apperror.NewUnauthorized("authentication required"))
		return
	}
	res, err := h.responses.Status(c.Request.Context(), p.ID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, res)
}

func (h *SurveyHandler) answers(c *gin.Context) (int64, []any, bool) {
	p := appctx.GetPrincipal(c.Request.Context())
	if p == nil {
		h.Error(c, apperror.NewUnauthorized("authentication required"))
		return 0, nil, false
	}
	var req dto.SurveyAnswersRequest
	if !h.BindJSON(c, &req) {
		return 0, nil, false
	}
	return p.ID, req.Answers, true
}

// RegisterRoutes registers the response routes on rg.
func (h *SurveyHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/save", h.Save)
	rg.POST("/submit", h.Submit)
	rg.GET("/status", h.Status)
}
