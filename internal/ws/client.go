package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shenikar/emergency_dispatch_system/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client - одно websocket-подключение диспетчерской консоли или юнита
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// inboundFrame - входящая команда от клиента
type inboundFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type unitLocationUpdateFrame struct {
	UnitID      string    `json:"unitId"`
	Coordinates []float64 `json:"coordinates"`
}

type newIncidentFrame struct {
	Type        string  `json:"type"`
	Priority    int     `json:"priority"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Address     string  `json:"address"`
	Description string  `json:"description"`
}

type dispatchUnitFrame struct {
	UnitID     string `json:"unitId"`
	IncidentID string `json:"incidentId"`
}

type unitEnRouteFrame struct {
	UnitID string `json:"unitId"`
}

// readPump читает входящие команды и передает их сервисам.
// Результат команды подписчики получают как обычное событие рассылки.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.WithError(err).Warn("Unexpected websocket close")
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.hub.logger.WithError(err).Warn("Failed to parse inbound websocket frame")
			continue
		}
		c.handleFrame(frame)
	}
}

// writePump отправляет клиенту сообщения из его очереди и пингует соединение
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleFrame выполняет одну входящую команду
func (c *Client) handleFrame(frame inboundFrame) {
	ctx := context.Background()
	log := c.hub.logger.WithField("frame_type", frame.Type)

	switch frame.Type {
	case "unit_location_update":
		var p unitLocationUpdateFrame
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			log.WithError(err).Warn("Failed to parse frame payload")
			return
		}
		unitID, err := uuid.Parse(p.UnitID)
		if err != nil || len(p.Coordinates) != 2 {
			log.Warn("Invalid unit_location_update frame")
			return
		}
		// coordinates в порядке [долгота, широта]
		if _, err := c.hub.unitService.UpdateUnitLocation(ctx, unitID, p.Coordinates[1], p.Coordinates[0]); err != nil {
			log.WithError(err).Warn("Failed to update unit location")
		}

	case "new_incident":
		var p newIncidentFrame
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			log.WithError(err).Warn("Failed to parse frame payload")
			return
		}
		incident := &models.Incident{
			Type:        models.IncidentType(p.Type),
			Priority:    p.Priority,
			Latitude:    p.Latitude,
			Longitude:   p.Longitude,
			Address:     p.Address,
			Description: p.Description,
		}
		if err := c.hub.incidentService.CreateIncident(ctx, incident); err != nil {
			log.WithError(err).Warn("Failed to create incident")
		}

	case "dispatch_unit":
		var p dispatchUnitFrame
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			log.WithError(err).Warn("Failed to parse frame payload")
			return
		}
		unitID, err1 := uuid.Parse(p.UnitID)
		incidentID, err2 := uuid.Parse(p.IncidentID)
		if err1 != nil || err2 != nil {
			log.Warn("Invalid dispatch_unit frame")
			return
		}
		if _, err := c.hub.dispatchService.AssignUnitToIncident(ctx, unitID, incidentID, nil, models.UnitStatusDispatched); err != nil {
			log.WithError(err).Warn("Failed to dispatch unit")
		}

	case "unit_en_route":
		var p unitEnRouteFrame
		if err := json.Unmarshal(frame.Payload, &p); err != nil {
			log.WithError(err).Warn("Failed to parse frame payload")
			return
		}
		unitID, err := uuid.Parse(p.UnitID)
		if err != nil {
			log.Warn("Invalid unit_en_route frame")
			return
		}
		if _, err := c.hub.unitService.SetUnitEnRoute(ctx, unitID); err != nil {
			log.WithError(err).Warn("Failed to set unit en-route")
		}

	default:
		log.Warn("Unknown websocket frame type")
	}
}
