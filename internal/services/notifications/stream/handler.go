package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	"github.com/castmatch/castmatch/internal/platform/requestctx"
	"github.com/castmatch/castmatch/internal/platform/timeouts"
	"github.com/castmatch/castmatch/internal/services/notifications/domain"
)

const (
	tokenCookieName = "cm_token"

	maxFramePayloadBytes   = 16 * 1024
	maxFramesPerSecond     = 40
	maxDecodeErrorsPerConn = 3
)

// Authorizer resolves a stream token to a user id.
type Authorizer interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// SummarySource returns the unread badge state sent on connect.
type SummarySource interface {
	UnreadSummary(ctx context.Context, recipientUserID string) (domain.Summary, error)
}

type connectPayload struct {
	UserID     string `json:"user_id"`
	ServerTime string `json:"server_time"`
	Unread     int    `json:"unread"`
}

type wsErrorEnvelope struct {
	Error wsError `json:"error"`
}

type wsError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// NewHandler creates stream routes with enforced connection identity checks.
func NewHandler(registry *Registry, authorizer Authorizer, summaries SummarySource) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/up", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	wsHandler := websocket.Handler(func(conn *websocket.Conn) {
		handleWSConn(conn, registry, summaries)
	})

	mux.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if authorizer == nil {
			http.Error(w, "stream auth is not configured", http.StatusServiceUnavailable)
			return
		}

		accessToken := accessTokenFromRequest(r)
		if accessToken == "" {
			log.Printf("stream: unauthorized: missing auth token for remote=%s", r.RemoteAddr)
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		userID, err := authorizer.Authenticate(r.Context(), accessToken)
		if err != nil || strings.TrimSpace(userID) == "" {
			if err != nil {
				log.Printf("stream: unauthorized: token verification failed for remote=%s err=%v", r.RemoteAddr, err)
			}
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		ctx := requestctx.WithUserID(r.Context(), strings.TrimSpace(userID))
		wsHandler.ServeHTTP(w, r.WithContext(ctx))
	})

	// Explicit logout path. Closing the socket disconnects too; this exists
	// so a client can drop its stream without tearing down the page.
	mux.HandleFunc("/disconnect", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if authorizer == nil {
			http.Error(w, "stream auth is not configured", http.StatusServiceUnavailable)
			return
		}
		accessToken := accessTokenFromRequest(r)
		if accessToken == "" {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		userID, err := authorizer.Authenticate(r.Context(), accessToken)
		if err != nil || strings.TrimSpace(userID) == "" {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		registry.Unregister(strings.TrimSpace(userID))
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func accessTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	cookie, err := r.Cookie(tokenCookieName)
	if err == nil {
		if token := strings.TrimSpace(cookie.Value); token != "" {
			return token
		}
	}
	authorization := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(authorization, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authorization, "Bearer "))
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// wsWriter adapts one websocket connection to the registry's sink contract.
// Writes are serialized and bounded so one stalled client cannot wedge a
// dispatch or heartbeat sweep.
type wsWriter struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	encoder *json.Encoder
}

func newWSWriter(conn *websocket.Conn) *wsWriter {
	return &wsWriter{
		conn:    conn,
		encoder: json.NewEncoder(conn),
	}
}

func (w *wsWriter) WriteFrame(frame Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.SetWriteDeadline(time.Now().Add(timeouts.StreamWrite)); err != nil {
		return err
	}
	return w.encoder.Encode(frame)
}

func (w *wsWriter) Close() error {
	return w.conn.Close()
}

func handleWSConn(conn *websocket.Conn, registry *Registry, summaries SummarySource) {
	defer func() {
		_ = conn.Close()
	}()

	userID := ""
	request := conn.Request()
	if request != nil {
		userID = strings.TrimSpace(requestctx.UserIDFromContext(request.Context()))
	}
	if userID == "" {
		return
	}

	writer := newWSWriter(conn)
	registered := registry.Register(userID, writer)
	defer registry.Remove(registered)

	unread := 0
	if summaries != nil && request != nil {
		if summary, err := summaries.UnreadSummary(request.Context(), userID); err == nil {
			unread = summary.Unread
		} else {
			log.Printf("stream: unread summary lookup failed for user=%q err=%v", userID, err)
		}
	}
	_ = writer.WriteFrame(Frame{
		Type: FrameTypeConnect,
		Payload: mustJSON(connectPayload{
			UserID:     userID,
			ServerTime: time.Now().UTC().Format(time.RFC3339),
			Unread:     unread,
		}),
	})

	decoder := json.NewDecoder(conn)
	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0

	for {
		var frame Frame
		if err := decoder.Decode(&frame); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			decodeErrors++
			_ = writeWSError(writer, "", "INVALID_ARGUMENT", "invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		if len(frame.Payload) > maxFramePayloadBytes {
			_ = writeWSError(writer, frame.RequestID, "INVALID_ARGUMENT", "payload too large")
			continue
		}

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			_ = writeWSError(writer, frame.RequestID, "RESOURCE_EXHAUSTED", "rate limit exceeded")
			return
		}

		switch frame.Type {
		case FrameTypePing:
			_ = writer.WriteFrame(Frame{Type: FrameTypePing, RequestID: frame.RequestID})
		default:
			_ = writeWSError(writer, frame.RequestID, "INVALID_ARGUMENT", "unsupported frame type")
		}
	}
}

func writeWSError(writer *wsWriter, requestID string, code string, message string) error {
	return writer.WriteFrame(Frame{
		Type:      FrameTypeError,
		RequestID: requestID,
		Payload: mustJSON(wsErrorEnvelope{
			Error: wsError{
				Code:      code,
				Message:   message,
				Retryable: false,
			},
		}),
	})
}
