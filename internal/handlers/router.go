package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mossy-p/flowsync-signaling/internal/middleware"
)

// Controller is everything the router needs from the room controller
type Controller interface {
	Dispatcher
	RoomInspector
}

// RouterConfig carries the router's dependencies
type RouterConfig struct {
	AllowedOrigins []string
	JWTSecret      string
	Hub            *Hub
	Controller     Controller
}

// NewRouter wires the HTTP surface
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger())
	router.Use(OriginFilter(cfg.AllowedOrigins))

	router.GET("/health", Health(cfg.Hub, cfg.Controller))

	// Operator inspection API
	apiGroup := router.Group("/api", middleware.JWTAuth(cfg.JWTSecret))
	{
		apiGroup.GET("/rooms", ListRooms(cfg.Controller))
		apiGroup.GET("/rooms/:code", GetRoom(cfg.Controller))
	}

	// Room coordination over WebSocket
	router.GET("/ws", cfg.Hub.HandleSignaling(cfg.Controller))

	return router
}
