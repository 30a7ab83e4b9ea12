package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/nirujan123/risk-engine/internal/risk"
)

const (
	maxMessageLen = 4096
	maxCaptionLen = 1024
)

// Sender is the subset of *tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier posts run results to a Telegram chat.
type Notifier struct {
	api    Sender
	chatID int64
	log    zerolog.Logger
}

func NewNotifier(token string, chatID int64, logger zerolog.Logger) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	return NewNotifierWithSender(api, chatID, logger), nil
}

func NewNotifierWithSender(api Sender, chatID int64, logger zerolog.Logger) *Notifier {
	return &Notifier{
		api:    api,
		chatID: chatID,
		log:    logger.With().Str("component", "telegram").Logger(),
	}
}

// NotifyRun sends the metrics summary, then the drawdown chart if given.
func (n *Notifier) NotifyRun(runName string, m risk.RiskMetrics, chart []byte, commentary string) error {
	text := FormatMetrics(runName, m)
	if commentary != "" {
		text += "\n\n" + commentary
	}
	if _, err := n.api.Send(tgbotapi.NewMessage(n.chatID, truncate(text, maxMessageLen))); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	n.log.Info().Int64("chat_id", n.chatID).Msg("sent metrics message")

	if len(chart) == 0 {
		return nil
	}
	photo := tgbotapi.NewPhoto(n.chatID, tgbotapi.FileBytes{Name: "drawdown.png", Bytes: chart})
	photo.Caption = truncate(fmt.Sprintf("%s • drawdown • max %.2f%%", runName, m.MaxDrawdown*100), maxCaptionLen)
	if _, err := n.api.Send(photo); err != nil {
		return fmt.Errorf("failed to send telegram photo: %w", err)
	}
	n.log.Info().Int64("chat_id", n.chatID).Msg("sent drawdown chart")
	return nil
}

// FormatMetrics renders the metrics as a plain-text chat message.
func FormatMetrics(runName string, m risk.RiskMetrics) string {
	pct := risk.LevelPercent(m.Level) + "%"
	var b strings.Builder
	fmt.Fprintf(&b, "Risk report: %s\n", runName)
	fmt.Fprintf(&b, "%s | %s → %s\n", strings.Join(m.Tickers, ", "), m.Start.Format(risk.DateLayout), m.End.Format(risk.DateLayout))
	fmt.Fprintf(&b, "Vol: %.2f%% daily, %.2f%% annual\n", m.VolDaily*100, m.VolAnnual*100)
	fmt.Fprintf(&b, "Max drawdown: %.2f%%\n", m.MaxDrawdown*100)
	fmt.Fprintf(&b, "VaR %s: %.2f%% | ES: %.2f%% | Param VaR: %.2f%%", pct, m.VaR*100, m.ES*100, m.ParametricVaR*100)
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
