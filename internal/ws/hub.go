package ws

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shenikar/emergency_dispatch_system/internal/events"
	"github.com/shenikar/emergency_dispatch_system/internal/service"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub держит множество активных websocket-подключений и рассылает им события.
// Медленные клиенты отключаются, а не тормозят остальных.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	incidentService service.IncidentService
	unitService     service.UnitService
	dispatchService service.DispatchService
	logger          *logrus.Logger
}

// NewHub создает новый Hub
func NewHub(
	incidentService service.IncidentService,
	unitService service.UnitService,
	dispatchService service.DispatchService,
	logger *logrus.Logger,
) *Hub {
	return &Hub{
		clients:         make(map[*Client]bool),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		broadcast:       make(chan []byte, 256),
		incidentService: incidentService,
		unitService:     unitService,
		dispatchService: dispatchService,
		logger:          logger,
	}
}

// Run обрабатывает регистрацию клиентов и рассылку сообщений.
// Запускается в отдельной горутине при старте приложения.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.WithField("clients", len(h.clients)).Info("Websocket client connected")
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.WithField("clients", len(h.clients)).Info("Websocket client disconnected")
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Буфер клиента переполнен - отключаем его
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// Broadcast сериализует событие и отправляет его всем подключенным клиентам.
// Не блокируется: при переполненной очереди рассылки событие отбрасывается.
func (h *Hub) Broadcast(event events.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal event for broadcast")
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.WithField("event_type", event.Type).Warn("Broadcast queue full, event dropped")
	}
}

// ServeWS обновляет HTTP-соединение до websocket и регистрирует клиента
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade websocket connection")
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 64),
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}
