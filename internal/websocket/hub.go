package websocket

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Hub maintains the set of active clients and broadcasts messages to them.
// All client state is owned by the Run goroutine.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Outbound messages for every client.
	Broadcast chan []byte

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	direct chan envelope
	count  chan chan int
	done   chan struct{}
}

// envelope is a message addressed to a single client.
type envelope struct {
	client  *Client
	message []byte
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		Broadcast:  make(chan []byte, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		direct:     make(chan envelope),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns when ctx is
// cancelled, closing every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			return
		case client := <-h.Register:
			h.clients[client] = true
			log.Info().Str("email", client.Email).Int("total_clients", len(h.clients)).Msg("Client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				log.Info().Str("email", client.Email).Int("total_clients", len(h.clients)).Msg("Client disconnected")
			}
		case message := <-h.Broadcast:
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// Too slow to keep up; drop it.
					close(client.Send)
					delete(h.clients, client)
					log.Warn().Str("email", client.Email).Msg("Dropped slow websocket client")
				}
			}
		case e := <-h.direct:
			if _, ok := h.clients[e.client]; !ok {
				continue
			}
			select {
			case e.client.Send <- e.message:
			default:
				log.Debug().Str("email", e.client.Email).Msg("Dropped direct websocket reply")
			}
		case reply := <-h.count:
			reply <- len(h.clients)
		}
	}
}

// ClientCount returns the number of registered clients. It blocks until Run
// answers or ctx is done.
func (h *Hub) ClientCount(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case n := <-reply:
		return n, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// SendTo queues message for a single registered client. Messages for
// unknown clients, or sent after Run returned, are discarded.
func (h *Hub) SendTo(client *Client, message []byte) {
	select {
	case h.direct <- envelope{client: client, message: message}:
	case <-h.done:
	}
}

// Publish encodes action and payload as a Message and queues it for every
// client. It never blocks: when the queue is full the message is dropped.
func (h *Hub) Publish(action string, payload interface{}) {
	message, err := json.Marshal(Message{Action: action, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to encode websocket message")
		return
	}
	select {
	case h.Broadcast <- message:
	default:
		log.Warn().Str("action", action).Msg("Websocket broadcast queue full, dropping message")
	}
}
