package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wayfarer/internal/models/request_models"
	"wayfarer/internal/services"
	"wayfarer/pkg/utils"
)

type SessionController struct {
	conversation services.ConversationServiceInterface
	log          *zap.Logger
}

func NewSessionController(conversation services.ConversationServiceInterface, log *zap.Logger) *SessionController {
	return &SessionController{conversation: conversation, log: log}
}

// Edit godoc
// @Summary Edit the planned itinerary
// @Description Applies a natural-language edit to only the sections it names.
// @Tags Session
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body request_models.EditRequest true "Edit command"
// @Success 200 {object} response_models.EditResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Failure 422 {object} utils.APIResponse
// @Router /api/sessions/{id}/edit [post]
func (sc *SessionController) Edit(c *gin.Context) {
	var req request_models.EditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	res, err := sc.conversation.Edit(c.Request.Context(), c.Param("id"), req.Command)
	if err != nil {
		utils.HandleServiceError(c, sc.log, err)
		return
	}
	utils.RespondSuccess(c, res, res.Message)
}

// Explain godoc
// @Summary Ask about the itinerary
// @Tags Session
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body request_models.ExplainRequest true "Question"
// @Success 200 {object} response_models.ExplainResponse
// @Failure 404 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Router /api/sessions/{id}/explain [post]
func (sc *SessionController) Explain(c *gin.Context) {
	var req request_models.ExplainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	res, err := sc.conversation.Explain(c.Request.Context(), c.Param("id"), req.Question)
	if err != nil {
		utils.HandleServiceError(c, sc.log, err)
		return
	}
	utils.RespondSuccess(c, res, "Explanation generated")
}

// Export godoc
// @Summary Send the itinerary to the export workflow
// @Description email_sent is null when the workflow accepted the request without reporting delivery.
// @Tags Session
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body request_models.ExportRequest true "Recipient"
// @Success 200 {object} response_models.ExportResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 503 {object} utils.APIResponse
// @Router /api/sessions/{id}/export [post]
func (sc *SessionController) Export(c *gin.Context) {
	var req request_models.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	res, err := sc.conversation.Export(c.Request.Context(), c.Param("id"), req.Email)
	if err != nil {
		utils.HandleServiceError(c, sc.log, err)
		return
	}
	utils.RespondSuccess(c, res, "Itinerary exported")
}

// Snapshot godoc
// @Summary Get the session state
// @Tags Session
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response_models.SessionResponse
// @Failure 404 {object} utils.APIResponse
// @Router /api/sessions/{id} [get]
func (sc *SessionController) Snapshot(c *gin.Context) {
	res, err := sc.conversation.Snapshot(c.Param("id"))
	if err != nil {
		utils.HandleServiceError(c, sc.log, err)
		return
	}
	utils.RespondSuccess(c, res, "Session fetched successfully")
}

// Reset godoc
// @Summary Destroy the session
// @Tags Session
// @Param id path string true "Session ID"
// @Success 200 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Router /api/sessions/{id} [delete]
func (sc *SessionController) Reset(c *gin.Context) {
	if err := sc.conversation.Reset(c.Param("id")); err != nil {
		utils.HandleServiceError(c, sc.log, err)
		return
	}
	utils.RespondSuccess(c, nil, "Session reset")
}
