package rpc

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	gensvc "storyweave/internal/gateway/service/generation"
	"storyweave/internal/generation"

	"github.com/gorilla/websocket"
)

// SessionStreamHandler pushes generation session snapshots over a websocket
// and accepts step commands on the same connection.
type SessionStreamHandler struct {
	svc *gensvc.Service
}

func NewSessionStreamHandler(svc *gensvc.Service) *SessionStreamHandler {
	return &SessionStreamHandler{svc: svc}
}

const (
	sessionWSWriteWait = 10 * time.Second
	sessionWSPongWait  = 60 * time.Second
	sessionWSPingEvery = (sessionWSPongWait * 9) / 10
)

var sessionWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type sessionWSInbound struct {
	Type  string                 `json:"type"`
	Image *generation.ImageInput `json:"image,omitempty"`
	Video *generation.VideoInput `json:"video,omitempty"`
}

type sessionWSOutbound struct {
	Type      string               `json:"type"`
	SessionID string               `json:"sessionId,omitempty"`
	Session   *generation.Snapshot `json:"session,omitempty"`
	Code      string               `json:"code,omitempty"`
	Message   string               `json:"message,omitempty"`
}

func wsError(err error) sessionWSOutbound {
	return sessionWSOutbound{Type: "error", Code: codeOf(err).String(), Message: err.Error()}
}

func (h *SessionStreamHandler) HandleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	conn, err := sessionWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(sessionWSPongWait)); err != nil {
		log.Printf("session ws set read deadline failed: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(sessionWSPongWait))
	})

	subCh, subErr := h.svc.Subscribe(ctx, sessionID)
	if subErr != nil {
		_ = conn.SetWriteDeadline(time.Now().Add(sessionWSWriteWait))
		_ = conn.WriteJSON(wsError(subErr))
		return
	}

	writeCh := make(chan sessionWSOutbound, 32)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(sessionWSPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(sessionWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(sessionWSWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	pushSessionWS(writeCh, sessionWSOutbound{Type: "subscribed", SessionID: sessionID})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-subCh:
				if !ok {
					return
				}
				pushSessionWS(writeCh, sessionWSOutbound{Type: "session", SessionID: sessionID, Session: &snap})
			}
		}
	}()

	for {
		var in sessionWSInbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			return
		}
		switch msgType := strings.ToLower(strings.TrimSpace(in.Type)); msgType {
		case "":
			pushSessionWS(writeCh, wsError(invalidArgument("type is required")))
		case "ping":
			pushSessionWS(writeCh, sessionWSOutbound{Type: "pong"})
		case "image":
			if in.Image == nil {
				pushSessionWS(writeCh, wsError(invalidArgument("image is required")))
				continue
			}
			if _, err := h.svc.GenerateImage(ctx, sessionID, *in.Image); err != nil {
				pushSessionWS(writeCh, wsError(err))
			}
		case "video":
			if in.Video == nil {
				pushSessionWS(writeCh, wsError(invalidArgument("video is required")))
				continue
			}
			if _, err := h.svc.GenerateVideo(ctx, sessionID, *in.Video); err != nil {
				pushSessionWS(writeCh, wsError(err))
			}
		case "close":
			if err := h.svc.Close(sessionID); err != nil {
				pushSessionWS(writeCh, wsError(err))
				continue
			}
			pushSessionWS(writeCh, sessionWSOutbound{Type: "close_ack", SessionID: sessionID})
		default:
			pushSessionWS(writeCh, wsError(invalidArgument("unsupported type: "+msgType)))
		}
	}
}

func pushSessionWS(writeCh chan sessionWSOutbound, out sessionWSOutbound) {
	if writeCh == nil {
		return
	}
	select {
	case writeCh <- out:
		return
	default:
	}
	select {
	case <-writeCh:
	default:
	}
	select {
	case writeCh <- out:
	default:
	}
}
