package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mossy-p/flowsync-signaling/internal/models"
)

// RoomInspector exposes live room state to the operator API
type RoomInspector interface {
	Rooms() []models.RoomSummary
	Room(code string) (models.RoomSummary, bool)
	RoomCount() int
}

// ListRooms returns every live room
func ListRooms(rooms RoomInspector) gin.HandlerFunc {
	return func(c *gin.Context) {
		list := rooms.Rooms()
		c.JSON(http.StatusOK, gin.H{
			"rooms": list,
			"count": len(list),
		})
	}
}

// GetRoom returns one live room by code
func GetRoom(rooms RoomInspector) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, ok := rooms.Room(c.Param("code"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

// Health reports liveness plus connection and room counts
func Health(hub *Hub, rooms RoomInspector) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"connections": hub.ActiveConnections(),
			"rooms":       rooms.RoomCount(),
		})
	}
}
