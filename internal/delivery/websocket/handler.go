package websocket

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/himanshu0o7/CryptoFuturesBot/internal/usecase"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// Handler streams portfolio state to connected clients so a dashboard can
// watch positions and capital move without polling the HTTP API.
type Handler struct {
	portfolio *usecase.PortfolioManager
	interval  time.Duration
}

func NewHandler(portfolio *usecase.PortfolioManager, interval time.Duration) *Handler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Handler{
		portfolio: portfolio,
		interval:  interval,
	}
}

func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println(err)
		return
	}
	defer conn.Close()

	log.Println("New dashboard client connected")

	// Send current state immediately, then on every tick.
	if err := conn.WriteJSON(h.portfolio.State()); err != nil {
		log.Println("Write error:", err)
		return
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.WriteJSON(h.portfolio.State()); err != nil {
			log.Println("Write error:", err)
			return
		}
	}
}
