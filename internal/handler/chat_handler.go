package handler

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/serenity-spa/spachat/internal/model"
	"github.com/serenity-spa/spachat/internal/pkg/response"
	"github.com/serenity-spa/spachat/internal/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// chatRequest keeps messages raw so a non-array value can be told apart from
// a body that fails to parse at all. The rag knobs are pointers: an explicit
// zero is a valid caller choice, only an absent field takes the default.
type chatRequest struct {
	Messages       json.RawMessage `json:"messages"`
	ConversationID string          `json:"conversation_id"`
	System         string          `json:"system"`
	RagTopK        *int            `json:"rag_top_k"`
	RagThreshold   *float64        `json:"rag_threshold"`
}

type chatResponse struct {
	Reply          model.ChatMessage  `json:"reply"`
	ConversationID string             `json:"conversation_id"`
	Citations      []service.Citation `json:"citations"`
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Bad JSON")
		return
	}
	var messages []model.ChatMessage
	if len(req.Messages) > 0 {
		// a bare null unmarshals into a slice without error but is not an array
		if !isJSONArray(req.Messages) || json.Unmarshal(req.Messages, &messages) != nil {
			response.Error(c, http.StatusBadRequest, "`messages` must be array")
			return
		}
	}
	result, err := h.chat.Chat(c.Request.Context(), &service.ChatRequest{
		Messages:       messages,
		ConversationID: req.ConversationID,
		System:         req.System,
		TopK:           req.RagTopK,
		Threshold:      req.RagThreshold,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.JSON(c, chatResponse{
		Reply:          result.Reply,
		ConversationID: result.ConversationID,
		Citations:      result.Citations,
	})
}

// isJSONArray reports whether raw's first token opens an array.
func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}

// Health answers the widget's reachability probe.
func (h *ChatHandler) Health(c *gin.Context) {
	response.JSON(c, gin.H{"ok": true, "name": "chat"})
}

func (h *ChatHandler) MethodNotAllowed(c *gin.Context) {
	response.Error(c, http.StatusMethodNotAllowed, "Only POST is allowed")
}
