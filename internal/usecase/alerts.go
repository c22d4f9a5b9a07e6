package usecase

import (
	"log"
	"sync"
	"time"

	"github.com/himanshu0o7/CryptoFuturesBot/internal/domain"
)

// PushSender delivers one notification to a set of device tokens.
type PushSender interface {
	SendMulticast(tokens []string, title, body string, data map[string]string) error
	IsEnabled() bool
}

// TokenSource lists the device tokens registered for alerts.
type TokenSource interface {
	GetAllTokens() []string
}

// AlertService fans trading events out to registered devices. Repeats of the
// same event for the same symbol are suppressed for a cooldown window so a
// flapping condition cannot spam the operator. Delivery is fire-and-forget.
type AlertService struct {
	sender   PushSender
	tokens   TokenSource
	cooldown time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time // kind+symbol -> last delivery
}

func NewAlertService(sender PushSender, tokens TokenSource, cooldown time.Duration) *AlertService {
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}
	return &AlertService{
		sender:   sender,
		tokens:   tokens,
		cooldown: cooldown,
		lastSent: make(map[string]time.Time),
	}
}

// Notify implements domain.Notifier.
func (a *AlertService) Notify(kind domain.EventKind, title, body string, data map[string]string) {
	if a.sender == nil || !a.sender.IsEnabled() {
		return
	}
	tokens := a.tokens.GetAllTokens()
	if len(tokens) == 0 {
		return
	}

	key := string(kind)
	if data != nil {
		key += ":" + data["symbol"]
	}

	now := time.Now()
	a.mu.Lock()
	if last, ok := a.lastSent[key]; ok && now.Sub(last) < a.cooldown {
		a.mu.Unlock()
		return
	}
	a.lastSent[key] = now
	// Drop stale entries so the map does not grow with dead symbols.
	for k, t := range a.lastSent {
		if now.Sub(t) > a.cooldown*2 {
			delete(a.lastSent, k)
		}
	}
	a.mu.Unlock()

	if data == nil {
		data = map[string]string{}
	}
	data["kind"] = string(kind)

	if err := a.sender.SendMulticast(tokens, title, body, data); err != nil {
		log.Printf("Error sending %s alert: %v", kind, err)
		return
	}
	log.Printf("Sent %s alert to %d devices", kind, len(tokens))
}

// LogNotifier writes events to the process log. Used when push delivery is not
// configured so events still land somewhere visible.
type LogNotifier struct{}

func (LogNotifier) Notify(kind domain.EventKind, title, body string, data map[string]string) {
	log.Printf("[%s] %s: %s", kind, title, body)
}
