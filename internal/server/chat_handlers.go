package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"HealthMate_V0.1/internal/chat"
	"HealthMate_V0.1/internal/pipeline"
	"HealthMate_V0.1/internal/utility"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ChatRequestBody is the body of POST /ai/chat/:session_id and of every websocket frame.
type ChatRequestBody struct {
	Message string `json:"message"`
}

// ChatEvent is pushed to every socket of a session when a turn is recorded.
type ChatEvent struct {
	SessionID string             `json:"session_id"`
	Turn      chat.Turn          `json:"turn"`
	Reply     *pipeline.ChatTurn `json:"reply,omitempty"`
}

type ChatHistoryResponse struct {
	SessionID string      `json:"session_id"`
	MaxTurns  int         `json:"max_turns"`
	Turns     []chat.Turn `json:"turns"`
}

func (s *Server) chatHandler(c echo.Context) error {
	var body ChatRequestBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	out := s.converse(c.Request().Context(), c.Param("session_id"), currentUserID(c), body.Message)
	return respondOutcome(c, out)
}

func (s *Server) chatHistoryHandler(c echo.Context) error {
	ctx := c.Request().Context()
	sessionID := strings.TrimSpace(c.Param("session_id"))

	s.resume(ctx, sessionID)

	turns := s.dispatcher.Chats().Context(sessionID)
	if turns == nil {
		turns = []chat.Turn{}
	}
	return c.JSON(http.StatusOK, ChatHistoryResponse{
		SessionID: sessionID,
		MaxTurns:  s.dispatcher.Chats().MaxTurns(),
		Turns:     turns,
	})
}

// chatSocketHandler upgrades to a websocket. Each text frame is a ChatRequestBody;
// turns are broadcast to every socket on the session, failures go to the sender only.
func (s *Server) chatSocketHandler(c echo.Context) error {
	ctx := c.Request().Context()
	logger := zerolog.Ctx(ctx)
	sessionID := strings.TrimSpace(c.Param("session_id"))
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing session id"})
	}
	userID := currentUserID(c)

	conn, err := utility.Upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return nil
	}
	defer conn.Close()

	s.hub.Register(sessionID, conn)
	defer s.hub.Unregister(sessionID, conn)

	for {
		var frame ChatRequestBody
		if err := conn.ReadJSON(&frame); err != nil {
			logger.Debug().Err(err).Str("session_id", sessionID).Msg("WebSocket read loop ended")
			return nil
		}

		out := s.converse(ctx, sessionID, userID, frame.Message)
		if !out.OK {
			if err := s.hub.Send(sessionID, conn, out); err != nil {
				return nil
			}
		}
	}
}

// converse runs one chat turn and mirrors the recorded turns to the archive and
// to the session's sockets.
func (s *Server) converse(ctx context.Context, sessionID, userID, message string) pipeline.Outcome {
	logger := zerolog.Ctx(ctx).With().Str("session_id", sessionID).Logger()
	sessionID = strings.TrimSpace(sessionID)

	// 1. Restore history unknown to this process
	s.resume(ctx, sessionID)

	// 2. Profile is best effort for chat; loadProfile already logged any failure
	profile, _ := s.loadProfile(ctx, userID)

	// 3. Dispatch
	result, err := s.dispatcher.Dispatch(ctx, pipeline.TaskRequest{
		Kind:        pipeline.TaskChat,
		SessionID:   sessionID,
		Instruction: message,
		Profile:     profile,
	})
	out := pipeline.OutcomeOf(result, err)

	// Rejected input never reached the session.
	if pipeline.KindOf(err) == pipeline.KindInvalidInput {
		return out
	}

	// 4. Mirror
	turns := []chat.Turn{{Role: chat.RoleUser, Text: strings.TrimSpace(message), At: time.Now()}}
	var reply *pipeline.ChatTurn
	if out.OK {
		r := result.(pipeline.ChatTurn)
		reply = &r
		turns = append(turns, chat.Turn{Role: chat.RoleAssistant, Text: r.Reply, At: time.Now()})
	}

	if s.archive != nil {
		if err := s.archive.Save(ctx, sessionID, userID, turns...); err != nil {
			logger.Warn().Err(err).Msg("Failed to archive chat turns")
		}
	}

	for _, t := range turns {
		ev := ChatEvent{SessionID: sessionID, Turn: t}
		if t.Role == chat.RoleAssistant {
			ev.Reply = reply
		}
		s.hub.Broadcast(sessionID, ev)
	}
	return out
}

func (s *Server) resume(ctx context.Context, sessionID string) {
	if s.archive == nil || sessionID == "" {
		return
	}
	restored, err := s.dispatcher.Chats().Resume(ctx, s.archive, sessionID)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("session_id", sessionID).Msg("Failed to restore chat history")
		return
	}
	if restored {
		zerolog.Ctx(ctx).Info().Str("session_id", sessionID).Msg("Chat history restored from archive")
	}
}
