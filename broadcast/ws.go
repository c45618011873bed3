package broadcast

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var ErrInvalidRoom = errors.New("invalid room")

// Authenticator resolves a signed session token to a user id.
type Authenticator interface {
	Authenticate(token string) (userID string, err error)
}

// WSGateway serves websocket subscriptions on top of a Hub.
type WSGateway struct {
	hub      *Hub
	auth     Authenticator
	upgrader websocket.Upgrader
}

func NewWSGateway(hub *Hub, auth Authenticator, allowedOrigins []string) *WSGateway {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[strings.TrimSpace(o)] = struct{}{}
	}
	return &WSGateway{
		hub:  hub,
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(origins) == 0 {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
	}
}

// ParseRooms validates a comma-separated room list.
func ParseRooms(raw string) ([]string, error) {
	var rooms []string
	for _, r := range strings.Split(raw, ",") {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if !strings.HasPrefix(r, "tournament:") && !strings.HasPrefix(r, "table:") {
			return nil, ErrInvalidRoom
		}
		if strings.Count(r, ":") != 1 || strings.HasSuffix(r, ":") {
			return nil, ErrInvalidRoom
		}
		rooms = append(rooms, r)
	}
	if len(rooms) == 0 {
		return nil, ErrInvalidRoom
	}
	return rooms, nil
}

// bearerOrQuery takes the session token from the Authorization header, falling
// back to ?token= for browsers that cannot set headers on a websocket.
func bearerOrQuery(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// HandleWebSocket authenticates before upgrading; rejected handshakes never
// reach the hub.
func (g *WSGateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := bearerOrQuery(r)
	if token == "" {
		log.Printf("🚫 [Gateway] Missing session token from %s", r.RemoteAddr)
		http.Error(w, "missing session token", http.StatusUnauthorized)
		return
	}
	userID, err := g.auth.Authenticate(token)
	if err != nil {
		log.Printf("❌ [Gateway] Invalid session from %s: %v", r.RemoteAddr, err)
		http.Error(w, "invalid session", http.StatusUnauthorized)
		return
	}
	rooms, err := ParseRooms(r.URL.Query().Get("rooms"))
	if err != nil {
		http.Error(w, "rooms must be tournament:<id> or table:<id>", http.StatusBadRequest)
		return
	}
	format := FormatJSON
	if r.URL.Query().Get("format") == FormatProto {
		format = FormatProto
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] Upgrade error: %v", err)
		return
	}

	sub := g.hub.Subscribe(userID, rooms...)
	go g.readPump(conn, sub)
	go writePump(conn, sub, format)
}

// clientFrame is the only command a subscriber sends: following more rooms,
// e.g. the table a player was just moved to.
type clientFrame struct {
	Action string `json:"action"` // "join"
	Rooms  string `json:"rooms"`
}

// readPump services control frames and join requests.
func (g *WSGateway) readPump(conn *websocket.Conn, sub *Subscriber) {
	defer func() {
		g.hub.Unsubscribe(sub)
		conn.Close()
	}()

	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Gateway] Read error: %v", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil || frame.Action != "join" {
			log.Printf("[Gateway] Ignoring frame from %s: %s", sub.ID, data)
			continue
		}
		rooms, err := ParseRooms(frame.Rooms)
		if err != nil {
			log.Printf("[Gateway] Bad join from %s: %q", sub.ID, frame.Rooms)
			continue
		}
		for _, room := range rooms {
			if !g.hub.Join(sub, room) {
				return
			}
		}
		log.Printf("[Gateway] Subscriber %s joined rooms %v", sub.ID, rooms)
	}
}

func writePump(conn *websocket.Conn, sub *Subscriber, format string) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case evt, ok := <-sub.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			var (
				data    []byte
				err     error
				msgType = websocket.TextMessage
			)
			if format == FormatProto {
				data, err = EncodeProto(evt)
				msgType = websocket.BinaryMessage
			} else {
				data, err = EncodeJSON(evt)
			}
			if err != nil {
				log.Printf("[Gateway] Encode %s failed: %v", evt.Name, err)
				continue
			}
			if err := conn.WriteMessage(msgType, data); err != nil {
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
