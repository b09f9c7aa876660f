package ws

import (
	"context"
	"net/http"

	"github.com/vedran77/covoit/internal/service"
	"github.com/vedran77/covoit/pkg/logger"
	"nhooyr.io/websocket"
)

// TokenParser validates access tokens.
type TokenParser interface {
	ParseToken(token string) (*service.Claims, error)
}

// ServeWS returns an HTTP handler that upgrades to WebSocket.
// Auth is done via ?token=xxx query param (WebSocket can't send headers).
func ServeWS(hub *Hub, tokens TokenParser, contacts ContactChecker, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := r.URL.Query().Get("token")
		if tokenStr == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		claims, err := tokens.ParseToken(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true, // Allow any origin (dev mode)
		})
		if err != nil {
			log.Warn("ws accept failed", "err", err)
			return
		}

		client := NewClient(hub, conn, claims.UserID, contacts, log)
		if err := hub.add(r.Context(), client); err != nil {
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}

		// The request context ends when this handler returns.
		go client.WritePump()
		go client.ReadPump(context.WithoutCancel(r.Context()))
	}
}
