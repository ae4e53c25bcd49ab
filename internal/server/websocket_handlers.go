package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/lotra/internal/api"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// WebSocket upgrader with reasonable defaults.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checks are left to the CORS origin setting of the HTTP API.
		return true
	},
}

// WebSocketTranslateRequest is one translation request sent by a client.
type WebSocketTranslateRequest struct {
	Type       string  `json:"type"` // "translate" or "detect"
	ID         string  `json:"id,omitempty"`
	Text       *string `json:"text"`
	SrcLang    string  `json:"src_lang,omitempty"`
	TgtLang    string  `json:"tgt_lang,omitempty"`
	AutoDetect *bool   `json:"auto_detect,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// WebSocketTranslateResponse is sent for every state change of a request.
type WebSocketTranslateResponse struct {
	Type      string      `json:"type"`
	Status    string      `json:"status"` // "processing", "completed", "error"
	Result    interface{} `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorType string      `json:"error_type,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// translateWebSocketHandler handles WebSocket connections for interactive
// translation.
func (s *Server) translateWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	s.handleWebSocketConnection(ctx, conn, s.clientIP(r))
}

// handleWebSocketConnection processes messages until the client disconnects.
// Requests on one connection are answered in order.
func (s *Server) handleWebSocketConnection(ctx context.Context, conn *websocket.Conn, clientID string) {
	// Same cap as an HTTP body; larger frames close the connection with 1009.
	conn.SetReadLimit(s.maxBodySize)
	// Each pong extends the read deadline
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	// Keep the connection alive with periodic pings
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	// Read loop; one message is handled to completion before the next is read
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}

		websocketMessagesTotal.WithLabelValues("received").Inc()

		// Binary frames are ignored
		if messageType == websocket.TextMessage {
			s.handleWebSocketMessage(ctx, conn, clientID, data)
		}
	}
}

// handleWebSocketMessage answers one request message.
func (s *Server) handleWebSocketMessage(ctx context.Context, conn WebSocketConnWriter, clientID string, data []byte) {
	var req WebSocketTranslateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendWebSocketError(conn, "", api.ErrorResponse{
			Error:     fmt.Sprintf("Failed to parse request: %v", err),
			ErrorType: api.ErrorTypeBadRequest,
		})
		return
	}

	// Echo the client's ID so it can match replies to requests
	requestID := req.ID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	switch req.Type {
	case "translate", "":
		s.processWebSocketTranslate(ctx, conn, clientID, req, requestID)
	case "detect":
		text := ""
		if req.Text != nil {
			text = *req.Text
		}
		s.sendWebSocketResponse(conn, WebSocketTranslateResponse{
			Type:      "detect_response",
			Status:    "completed",
			Result:    api.NewDetectResponse(text),
			RequestID: requestID,
		})
	default:
		s.sendWebSocketError(conn, requestID, api.ErrorResponse{
			Error:     "Unsupported request type: " + req.Type,
			ErrorType: api.ErrorTypeBadRequest,
		})
	}
}

func (s *Server) processWebSocketTranslate(
	ctx context.Context,
	conn WebSocketConnWriter,
	clientID string,
	req WebSocketTranslateRequest,
	requestID string,
) {
	var chars int
	if req.Text != nil {
		chars = utf8.RuneCountInString(*req.Text)
	}
	// Every message counts against the connection's client
	if s.rateLimiter != nil {
		if err := s.rateLimiter.CheckRateLimit(clientID, int64(chars)); err != nil {
			s.sendWebSocketError(conn, requestID, api.ErrorResponse{
				Error:     err.Error(),
				ErrorType: api.ErrorTypeRateLimit,
			})
			return
		}
	}

	// Send processing status
	s.sendWebSocketResponse(conn, WebSocketTranslateResponse{
		Type:      "translate_response",
		Status:    "processing",
		RequestID: requestID,
	})

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	status, body := api.Translate(ctx, s.router, api.TranslateRequest{
		Text:       req.Text,
		SrcLang:    req.SrcLang,
		TgtLang:    req.TgtLang,
		AutoDetect: req.AutoDetect,
	})
	if status != http.StatusOK {
		errResp, _ := body.(api.ErrorResponse)
		s.sendWebSocketError(conn, requestID, errResp)
		return
	}

	// Send completed result
	s.sendWebSocketResponse(conn, WebSocketTranslateResponse{
		Type:      "translate_response",
		Status:    "completed",
		Result:    body,
		RequestID: requestID,
	})
}

// sendWebSocketResponse sends a response message over WebSocket.
func (s *Server) sendWebSocketResponse(conn WebSocketConnWriter, response WebSocketTranslateResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("Failed to marshal WebSocket response", "error", err)
		return
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Error("Failed to send WebSocket message", "error", err)
		return
	}

	websocketMessagesTotal.WithLabelValues("sent").Inc()
}

// sendWebSocketError sends an error message over WebSocket.
func (s *Server) sendWebSocketError(conn WebSocketConnWriter, requestID string, e api.ErrorResponse) {
	s.sendWebSocketResponse(conn, WebSocketTranslateResponse{
		Type:      "translate_response",
		Status:    "error",
		Error:     e.Error,
		ErrorType: e.ErrorType,
		Reason:    e.Reason,
		RequestID: requestID,
	})
}
