package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/example/pharmacy-checkout/internal/checkout"
)

const telegramAPIURL = "https://api.telegram.org"

// Telegram posts placed-order summaries to an admin chat.
type Telegram struct {
	http        *resty.Client
	botToken    string
	adminChatID string
	currency    string
	log         *zap.Logger
}

// TelegramOptions configures a Telegram notifier.
type TelegramOptions struct {
	BotToken    string
	AdminChatID string
	Currency    string
	// BaseURL overrides the Bot API host.
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewTelegram creates a Telegram notifier. Missing credentials turn it into a no-op.
func NewTelegram(opts TelegramOptions) *Telegram {
	if opts.BaseURL == "" {
		opts.BaseURL = telegramAPIURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Telegram{
		http: resty.New().
			SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
			SetTimeout(opts.Timeout),
		botToken:    opts.BotToken,
		adminChatID: opts.AdminChatID,
		currency:    opts.Currency,
		log:         opts.Logger.Named("telegram"),
	}
}

// Enabled reports whether both the bot token and the admin chat are set.
func (t *Telegram) Enabled() bool {
	return t.botToken != "" && t.adminChatID != ""
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendToAdmin sends an HTML message to the admin chat.
func (t *Telegram) SendToAdmin(ctx context.Context, text string) error {
	if !t.Enabled() {
		t.log.Debug("telegram not configured, skipping message")
		return nil
	}

	resp, err := t.http.R().
		SetContext(ctx).
		SetBody(telegramMessage{ChatID: t.adminChatID, Text: text, ParseMode: "HTML"}).
		Post("/bot" + t.botToken + "/sendMessage")
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode())
	}
	return nil
}

// NotifyOrderPlaced tells the admin chat about a new order.
func (t *Telegram) NotifyOrderPlaced(ctx context.Context, order checkout.CanonicalOrder) error {
	return t.SendToAdmin(ctx, FormatOrder(order, t.currency))
}

// FormatOrder renders an order summary for the admin chat.
func FormatOrder(order checkout.CanonicalOrder, currency string) string {
	var items strings.Builder
	for i, item := range order.Items {
		fmt.Fprintf(&items, "%d. <b>%s</b>\n   %d x %s = %s\n",
			i+1,
			html.EscapeString(item.Name),
			item.Qty,
			FormatPrice(item.Price, currency),
			FormatPrice(item.Price.Mul(decimal.NewFromInt(int64(item.Qty))), currency),
		)
	}

	addr := order.Address
	var b strings.Builder
	b.WriteString("<b>🛒 NEW ORDER</b>\n")
	fmt.Fprintf(&b, "<b>📋 Order:</b> %s\n", html.EscapeString(order.OrderNumber))
	fmt.Fprintf(&b, "<b>👤 Customer:</b> %s\n", html.EscapeString(addr.Name))
	fmt.Fprintf(&b, "<b>📞 Phone:</b> %s\n", html.EscapeString(addr.Phone))
	fmt.Fprintf(&b, "<b>📍 Ship to:</b> %s, %s, %s %s\n",
		html.EscapeString(addr.Street), html.EscapeString(addr.City),
		html.EscapeString(addr.State), html.EscapeString(addr.Pincode))
	if items.Len() > 0 {
		b.WriteString("<b>📦 Items:</b>\n")
		b.WriteString(items.String())
	}
	fmt.Fprintf(&b, "<b>💰 Total:</b> %s\n", FormatPrice(order.Total, currency))
	if order.PrescriptionID != "" {
		fmt.Fprintf(&b, "<b>📄 Prescription:</b> %s\n", html.EscapeString(order.PrescriptionID))
	}
	fmt.Fprintf(&b, "<b>📌 Status:</b> %s", html.EscapeString(order.Status))
	return b.String()
}

// FormatPrice formats an amount with thousand separators, two decimals when
// the amount has a fractional part, and the currency code.
func FormatPrice(amount decimal.Decimal, currency string) string {
	if currency == "" {
		currency = "INR"
	}

	amount = amount.Round(2)
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	whole := amount.Truncate(0)
	frac := amount.Sub(whole)

	digits := whole.String()
	var grouped strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(d)
	}

	out := sign + grouped.String()
	if !frac.IsZero() {
		out += strings.TrimPrefix(frac.StringFixed(2), "0")
	}
	return out + " " + currency
}
