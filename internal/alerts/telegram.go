// Package alerts pushes operational notifications to a Telegram admin
// chat: invariant violations from the hub and on-demand occupancy
// stats. It is optional; the server runs fine without a bot token.
package alerts

import (
	"fmt"
	"log"

	"vidgogo/backend/internal/pairhub"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier sends alerts to a single admin chat and answers /stats.
type Notifier struct {
	BotAPI *tgbotapi.BotAPI
	ChatID int64
	Hub    *pairhub.ManagerService
}

// NewNotifier creates a Notifier bound to the given admin chat.
func NewNotifier(token string, chatID int64, hub *pairhub.ManagerService) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	log.Printf("Alert bot authorized on account %s", bot.Self.UserName)

	return &Notifier{BotAPI: bot, ChatID: chatID, Hub: hub}, nil
}

// Alertf formats and sends a message to the admin chat. Failures are
// logged, never propagated: alerting must not affect the hub.
func (n *Notifier) Alertf(format string, args ...interface{}) {
	msg := tgbotapi.NewMessage(n.ChatID, fmt.Sprintf(format, args...))
	if _, err := n.BotAPI.Send(msg); err != nil {
		log.Printf("ERROR: Failed to send alert: %v", err)
	}
}

// Run consumes bot updates and answers /stats from the admin chat.
// Everything else is ignored.
func (n *Notifier) Run() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	for update := range n.BotAPI.GetUpdatesChan(u) {
		if update.Message == nil || update.Message.Chat.ID != n.ChatID {
			continue
		}
		if update.Message.Command() != "stats" {
			continue
		}

		stats := n.Hub.Stats()
		n.Alertf("clients: %d\nqueued: %d\nactive sessions: %d",
			stats.Clients, stats.Queued, stats.Sessions)
	}
}
