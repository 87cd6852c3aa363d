package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gdugdh24/rakshak-backend/internal/usecase/dispatch"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type LiveHandler struct {
	feed   *dispatch.Feed
	logger *zap.Logger
}

func NewLiveHandler(feed *dispatch.Feed, logger *zap.Logger) *LiveHandler {
	return &LiveHandler{
		feed:   feed,
		logger: logger,
	}
}

// Live handles GET /emergencies/live
// @Summary Live open requests
// @Description Websocket pushing a snapshot of open requests on every change and guardian alerts for followed users
// @Tags emergencies
// @Param token query string true "Session token"
// @Param lat query number false "Helper latitude"
// @Param lng query number false "Helper longitude"
// @Router /emergencies/live [get]
func (h *LiveHandler) Live(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	from, err := queryLocation(c)
	if err != nil {
		badRequest(c, "invalid lat/lng")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.readPump(conn, cancel)

	sub := h.feed.Subscribe(ctx, userID, from)
	h.logger.Info("live feed connected", zap.String("user_id", userID))
	defer h.logger.Info("live feed disconnected", zap.String("user_id", userID))

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-sub.Messages():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// readPump discards client frames and cancels once the peer goes away.
func (h *LiveHandler) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
	}
}
