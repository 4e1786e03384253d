package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wayfarer/internal/models/request_models"
	"wayfarer/internal/models/response_models"
	"wayfarer/internal/services"
	"wayfarer/pkg/utils"
)

type ChatController struct {
	conversation services.ConversationServiceInterface
	log          *zap.Logger
}

func NewChatController(conversation services.ConversationServiceInterface, log *zap.Logger) *ChatController {
	return &ChatController{conversation: conversation, log: log}
}

// Chat godoc
// @Summary Send one message to the trip planner
// @Description Runs one conversational turn. Omit session_id to start a new conversation.
// @Tags Chat
// @Accept json
// @Produce json
// @Param request body request_models.ChatRequest true "Message"
// @Success 200 {object} response_models.ChatResponse
// @Failure 400 {object} utils.APIResponse
// @Failure 404 {object} utils.APIResponse
// @Router /api/chat [post]
func (cc *ChatController) Chat(c *gin.Context) {
	var req request_models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	res, err := cc.conversation.Chat(c.Request.Context(), req.SessionID, req.Message)
	if err != nil {
		utils.HandleServiceError(c, cc.log, err)
		return
	}
	if res.Status == response_models.StatusError {
		respondTurnError(c, cc.log, res)
		return
	}
	utils.RespondSuccess(c, res, res.Message)
}

// respondTurnError reports a failed turn with its kind while still handing
// back the session id and state.
func respondTurnError(c *gin.Context, log *zap.Logger, res response_models.ChatResponse) {
	code := utils.StatusFor(res.Kind)
	if code >= http.StatusInternalServerError {
		log.Error("chat turn failed",
			zap.String("trace_id", c.GetString("trace_id")),
			zap.String("session_id", res.SessionID),
			zap.String("kind", string(res.Kind)))
	}
	c.JSON(code, utils.APIResponse{
		Status:  response_models.StatusError,
		Code:    code,
		Kind:    res.Kind,
		Message: res.Message,
		TraceID: c.GetString("trace_id"),
		Data:    res,
	})
}
