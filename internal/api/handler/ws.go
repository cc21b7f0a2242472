package handler

import (
	"log"
	"net/http"
	"strings"

	"vidgogo/backend/internal/pairhub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allows connections from any origin. Tighten in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsToken extracts the auth token from the Authorization header or the
// "token" query parameter. Browsers cannot set headers on WebSocket
// upgrades, so the query parameter is the common path.
func wsToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return c.Query("token")
}

// ServeWebSocket authenticates and upgrades the connection, then hands
// the client to the hub.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	tokenString := wsToken(c)
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
		return
	}

	anonID, err := h.validateAndGetAnonID(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
		return
	}

	banned, err := h.Storage.IsUserBanned(anonID)
	if err != nil {
		log.Printf("ERROR: Ban check failed for %s: %v", anonID, err)
	}
	if banned {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Banned"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
		return
	}

	client := pairhub.NewWebSocketClient(h.Hub, anonID, conn)

	h.Hub.RegisterCh <- client
	client.Run()
}

// Healthz reports liveness plus current hub occupancy.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, h.Hub.Stats())
}
