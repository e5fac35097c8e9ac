package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gaolin1/math-olympic-question-search/services/api/datatypes"
	"github.com/gaolin1/math-olympic-question-search/services/api/observability"
	"github.com/gaolin1/math-olympic-question-search/services/api/sessions"
	"github.com/gaolin1/math-olympic-question-search/services/api/store"
	"github.com/gaolin1/math-olympic-question-search/services/llm"
)

// WSHintRequest is one student message over the hint socket.
type WSHintRequest struct {
	ProblemID string `json:"problem_id"`
	Message   string `json:"message"`
}

// WSHintResponse carries the tutor's reply for one turn.
type WSHintResponse struct {
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	// The API already gates browsers via CORS; the socket accepts any
	// origin so curl and test clients work.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

func sendJSON(ws *websocket.Conn, v interface{}) error {
	err := ws.WriteJSON(v)
	if err != nil {
		slog.Warn("Failed to write WebSocket JSON", "error", err)
	}
	return err
}

// HandleHintWebSocket runs a tutoring conversation over one websocket
// connection. The server owns the conversation context: each reply is
// appended to the connection's history, so clients only ever send the
// new message.
func HandleHintWebSocket(problems *store.ProblemStore, hintSessions *sessions.Store,
	llmClient llm.LLMClient) gin.HandlerFunc {

	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()

		observability.DefaultMetrics.HintSessionStarted()
		defer observability.DefaultMetrics.HintSessionEnded()

		sessionID := uuid.New().String()
		slog.Info("New websocket hint session started", "session_id", sessionID)

		if err := sendJSON(ws, map[string]interface{}{
			"action":     "session_created",
			"session_id": sessionID,
		}); err != nil {
			return
		}

		var history []datatypes.Message

		for {
			var req WSHintRequest
			if err := ws.ReadJSON(&req); err != nil {
				slog.Info("Websocket client disconnected", "error", err.Error())
				break
			}

			ctx := c.Request.Context()

			if strings.TrimSpace(req.Message) == "" {
				if sendJSON(ws, WSHintResponse{Error: "message is required"}) != nil {
					return
				}
				continue
			}

			problem, err := problems.Get(req.ProblemID)
			if err != nil {
				if sendJSON(ws, WSHintResponse{Error: "problem not found"}) != nil {
					return
				}
				continue
			}

			messages := buildHintMessages(problem, history, req.Message)

			start := time.Now()
			reply, err := llmClient.Chat(ctx, messages, hintParams())
			observability.DefaultMetrics.ObserveLLM("hint", time.Since(start).Seconds(), llmFailureReason(err))
			if err != nil {
				slog.Error("Websocket hint generation failed", "error", err, "problem_id", req.ProblemID)
				if sendJSON(ws, WSHintResponse{Error: err.Error()}) != nil {
					return
				}
				continue
			}
			reply = cleanHintReply(reply)

			history = append(history,
				datatypes.Message{Role: "user", Content: req.Message},
				datatypes.Message{Role: "assistant", Content: reply},
			)

			now := time.Now().UTC()
			if err := hintSessions.Append(sessionID, req.ProblemID,
				sessions.Turn{Role: "user", Content: req.Message, CreatedAt: now},
				sessions.Turn{Role: "assistant", Content: reply, CreatedAt: now},
			); err != nil {
				slog.Warn("Failed to persist websocket hint turns", "error", err, "session_id", sessionID)
			}

			if sendJSON(ws, WSHintResponse{Response: reply}) != nil {
				return
			}
		}
	}
}
