package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"venue-presence-api/internal/client"
	"venue-presence-api/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// WSHandler streams live venue count updates. Each connection subscribes to
// the venue's count event channel; clients never send data upstream.
type WSHandler struct {
	logger          *zap.Logger
	userClient      client.UserClient
	presenceService service.PresenceService
	redisClient     *redis.Client
}

func NewWSHandler(
	logger *zap.Logger,
	userClient client.UserClient,
	presenceService service.PresenceService,
	redisClient *redis.Client,
) *WSHandler {
	return &WSHandler{
		logger:          logger,
		userClient:      userClient,
		presenceService: presenceService,
		redisClient:     redisClient,
	}
}

// HandleVenueCounts godoc
// @Summary      Venue 실시간 카운트 WebSocket 연결
// @Description  해당 Venue의 카운트 변경 이벤트를 실시간으로 구독합니다. 연결 직후 현재 스냅샷을 한 번 전송합니다
// @Tags         websocket
// @Param        venueId path string true "Venue ID (UUID)"
// @Param        token query string true "JWT Access Token"
// @Success      101 {string} string "Switching Protocols"
// @Failure      401 {object} map[string]string
// @Router       /ws/venues/{venueId}/counts [get]
func (h *WSHandler) HandleVenueCounts(c *gin.Context) {
	venueID, err := uuid.Parse(c.Param("venueId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid venue ID"})
		return
	}

	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if _, err := h.userClient.ValidateToken(ctx, token); err != nil {
		h.logger.Warn("Invalid token for counts stream", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	if h.redisClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Live counts unavailable"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", zap.Error(err))
		return
	}

	h.logger.Info("Counts WebSocket connected",
		zap.String("venueId", venueID.String()))

	send := make(chan []byte, 16)

	go h.subscribeToCounts(venueID, send)
	go h.writePump(conn, venueID, send)
	h.readPump(conn, venueID)
}

// subscribeToCounts pushes the current snapshot first so the client does not
// have to wait for the next presence write, then relays published events.
func (h *WSHandler) subscribeToCounts(venueID uuid.UUID, send chan<- []byte) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Recovered from panic in counts subscription",
				zap.Any("panic", r),
				zap.String("venueId", venueID.String()))
		}
	}()

	ctx := context.Background()

	if counts, err := h.presenceService.GetVenueCounts(ctx, venueID); err != nil {
		h.logger.Warn("Failed to load initial counts for stream",
			zap.String("venueId", venueID.String()),
			zap.Error(err))
	} else if payload, err := json.Marshal(counts); err == nil {
		select {
		case send <- payload:
		default:
		}
	}

	pubsub := h.redisClient.Subscribe(ctx, service.CountEventChannel(venueID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for msg := range ch {
		select {
		case send <- []byte(msg.Payload):
		case <-time.After(1 * time.Second):
			h.logger.Warn("Slow counts stream client, dropping connection",
				zap.String("venueId", venueID.String()))
			return
		}
	}
}

func (h *WSHandler) readPump(conn *websocket.Conn, venueID uuid.UUID) {
	defer func() {
		conn.Close()
		h.logger.Info("Counts WebSocket disconnected",
			zap.String("venueId", venueID.String()))
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}
	}
}

func (h *WSHandler) writePump(conn *websocket.Conn, venueID uuid.UUID, send <-chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
