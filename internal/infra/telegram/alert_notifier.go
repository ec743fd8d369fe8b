package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"wifi-loyalty-portal/internal/config"
	"wifi-loyalty-portal/internal/domain/model"
	"wifi-loyalty-portal/internal/domain/ports/adapter"
	"wifi-loyalty-portal/internal/infra/i18n"
)

var _ adapter.AlertNotifier = (*AlertNotifier)(nil)

// sender is the part of tgbotapi.BotAPI the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// AlertNotifier posts security alerts to the admin chats.
type AlertNotifier struct {
	bot     sender
	chatIDs []int64
	tr      *i18n.Translator
	log     *zerolog.Logger
}

// NewAlertNotifier returns a Telegram notifier, or a log-only notifier when no token is set.
func NewAlertNotifier(cfg config.AlertsConfig, logger *zerolog.Logger) (adapter.AlertNotifier, error) {
	l := logger.With().Str("component", "alert_notifier").Logger()
	if cfg.Telegram.Token == "" {
		l.Info().Msg("telegram token not set, alerts go to the log only")
		return &LogNotifier{log: &l}, nil
	}
	if len(cfg.Telegram.ChatIDs) == 0 {
		return nil, errors.New("alerts.telegram.chat_ids is empty")
	}
	tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Language)
	if err != nil {
		return nil, fmt.Errorf("alerts.language: %w", err)
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, err
	}
	return newAlertNotifier(bot, cfg.Telegram.ChatIDs, tr, &l), nil
}

func newAlertNotifier(bot sender, chatIDs []int64, tr *i18n.Translator, logger *zerolog.Logger) *AlertNotifier {
	return &AlertNotifier{bot: bot, chatIDs: chatIDs, tr: tr, log: logger}
}

func (n *AlertNotifier) NotifyAlert(ctx context.Context, alert *model.AuditEvent) error {
	text := FormatAlert(n.tr, alert)
	var errs []error
	for _, id := range n.chatIDs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		msg := tgbotapi.NewMessage(id, text)
		msg.DisableWebPagePreview = true
		if _, err := n.bot.Send(msg); err != nil {
			n.log.Warn().Err(err).Int64("chat_id", id).Msg("telegram send failed")
			errs = append(errs, fmt.Errorf("chat %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// FormatAlert renders an alert as a short plain-text message in tr's language.
func FormatAlert(tr *i18n.Translator, alert *model.AuditEvent) string {
	lines := make([]string, 0, 5)
	alertType := alert.Details.GetString("alert_type")
	switch alertType {
	case model.AlertBruteForce:
		lines = append(lines, tr.T("alert_brute_force"), tr.T("alert_origin", alert.Details.GetString("subject")))
	case model.AlertVoucherAbuse:
		lines = append(lines, tr.T("alert_voucher_abuse"), tr.T("alert_customer", alert.Details.GetString("subject")))
	default:
		lines = append(lines, tr.T("alert_generic", alertType))
	}
	if c, ok := alert.Details.Get("count"); ok {
		if n, ok := c.NumberValue(); ok {
			lines = append(lines, tr.T("alert_count", int(n)))
		}
	}
	lines = append(lines,
		tr.T("alert_since", alert.Details.GetString("window_start")),
		tr.T("alert_event", alert.ID),
	)
	return strings.Join(lines, "\n")
}

// LogNotifier writes alerts to the log. Used when Telegram is not configured.
type LogNotifier struct {
	log *zerolog.Logger
}

func (n *LogNotifier) NotifyAlert(_ context.Context, alert *model.AuditEvent) error {
	n.log.Warn().
		Str("event_id", alert.ID).
		Str("alert_type", alert.Details.GetString("alert_type")).
		Str("subject", alert.Details.GetString("subject")).
		Msg("security alert")
	return nil
}
