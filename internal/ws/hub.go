package ws

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub manages stream subscriptions by draft room ID. The run loop owns the
// client map, so no locking is needed.
type Hub struct {
	clients   map[string]map[Subscriber]struct{}
	register  chan subscription
	unreg     chan subscription
	broadcast chan message
}

// message couples payload with room identifier.
type message struct {
	roomID  string
	payload []byte
}

// subscription defines register/unregister requests.
type subscription struct {
	roomID string
	client Subscriber
}

// NewHub creates an initialized Hub.
func NewHub() *Hub {
	h := &Hub{
		clients:   make(map[string]map[Subscriber]struct{}),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan message),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.register:
			if _, ok := h.clients[sub.roomID]; !ok {
				h.clients[sub.roomID] = make(map[Subscriber]struct{})
			}
			h.clients[sub.roomID][sub.client] = struct{}{}
		case sub := <-h.unreg:
			if clients, ok := h.clients[sub.roomID]; ok {
				delete(clients, sub.client)
				if len(clients) == 0 {
					delete(h.clients, sub.roomID)
				}
			}
		case msg := <-h.broadcast:
			if clients, ok := h.clients[msg.roomID]; ok {
				for c := range clients {
					if err := c.Send(msg.payload); err != nil {
						c.Close()
						delete(clients, c)
					}
				}
				if len(clients) == 0 {
					delete(h.clients, msg.roomID)
				}
			}
		}
	}
}

// Register adds a client to a room stream.
func (h *Hub) Register(roomID string, client Subscriber) {
	h.register <- subscription{roomID: roomID, client: client}
}

// Unregister removes a client.
func (h *Hub) Unregister(roomID string, client Subscriber) {
	h.unreg <- subscription{roomID: roomID, client: client}
}

// Broadcast sends payload to all room clients.
func (h *Hub) Broadcast(roomID string, payload []byte) {
	h.broadcast <- message{roomID: roomID, payload: payload}
}
