package handler

import (
	"net/http"
	"sensorlink/internal/logger"
	"sensorlink/internal/service"

	"github.com/gorilla/websocket"
)

// viewerReadLimit caps messages from viewers; they only send close frames.
const viewerReadLimit = 512

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ViewWebsocketHandler handles viewer connections over WebSocket and registers
// them in the hub to receive frames, detections and status updates.
func ViewWebsocketHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		connection.SetReadLimit(viewerReadLimit)

		// New viewers get the current state before the first broadcast reaches them.
		if err := connection.WriteJSON(map[string]any{"type": service.MessageStatus, "status": manager.Status()}); err != nil {
			logger.Error("Failed to send initial status: %v", err)
			connection.Close()
			return
		}

		manager.Hub.Register(connection)
		defer manager.Hub.Unregister(connection)

		logger.Info("Viewer connected from %s", r.RemoteAddr)

		for {
			_, _, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Viewer disconnected normally")
				} else {
					logger.Error("Viewer disconnected with error: %v", err)
				}
				break
			}
		}
	}
}
