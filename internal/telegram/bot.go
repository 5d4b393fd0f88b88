package telegram

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	tg "github.com/meinside/telegram-bot-go"

	"github.com/artvision/snapvision/internal/capture"
)

const monitoringInterval = 1 // seconds between update polls

// Layout audits over Telegram use a reduced breakpoint set to keep the
// reply to a few photos.
var telegramBreakpoints = []int{375, 768, 1440}

// Bot handles screenshot commands for a Telegram bot. Captures are written
// to the system temp directory and deleted after sending.
type Bot struct {
	client  *tg.Bot
	service *capture.Service
}

// NewBot creates a bot on an existing capture service.
func NewBot(token string, service *capture.Service) *Bot {
	return &Bot{
		client:  tg.NewClient(token),
		service: service,
	}
}

// Run starts long polling for updates. It blocks until the client stops.
func (b *Bot) Run() error {
	me := b.client.GetMe()
	if !me.Ok {
		return fmt.Errorf("failed to get bot information: %s", *me.Description)
	}

	if deleted := b.client.DeleteWebhook(false); !deleted.Ok {
		return fmt.Errorf("failed to delete webhook: %s", *deleted.Description)
	}

	log.Printf("Telegram bot started: @%s", *me.Result.Username)

	b.client.StartMonitoringUpdates(0, monitoringInterval, func(client *tg.Bot, update tg.Update, err error) {
		if err != nil {
			log.Printf("failed to fetch update: %v", err)
			return
		}
		b.HandleUpdate(update)
	})

	return nil
}

// HandleUpdate processes one Telegram update. Used by both the polling
// loop and the webhook endpoint.
func (b *Bot) HandleUpdate(update tg.Update) {
	if !update.HasMessage() || !update.Message.HasText() {
		return
	}

	text := *update.Message.Text
	chatID := update.Message.Chat.ID

	cmd := ParseCommand(text)

	switch cmd.Name {
	case "start", "help":
		b.sendText(chatID, "📸 Screenshot Bot\n\n"+HelpText)
	case "screenshot", "screen", "скрин", "s":
		b.handleScreenshot(chatID, cmd.Arg, cmd.Mobile, cmd.Format)
	case "mobile", "mob", "м", "мобайл":
		b.handleScreenshot(chatID, cmd.Arg, true, cmd.Format)
	case "serp", "выдача", "серп":
		b.handleSERP(chatID, cmd.Arg)
	case "layout", "верстка", "breakpoints":
		b.handleLayout(chatID, cmd.Arg)
	default:
		b.sendText(chatID, fmt.Sprintf("❌ Unknown command: %s\n\n%s", cmd.Name, HelpText))
	}
}

func (b *Bot) handleScreenshot(chatID int64, arg string, mobile bool, format string) {
	url, err := ValidateURL(arg)
	if err != nil {
		b.sendText(chatID, "❌ "+err.Error())
		return
	}

	_ = b.client.SendChatAction(chatID, tg.ChatActionUploadPhoto, nil)

	opts := capture.DefaultOptions()
	opts.Mobile = mobile
	if format != "" {
		opts.Format = format
	}
	opts.Output = tempOutput(opts.Format)

	result := b.service.CaptureURL(context.Background(), url, opts)
	b.sendResult(chatID, result)
}

func (b *Bot) handleSERP(chatID int64, query string) {
	if query == "" {
		b.sendText(chatID, "❌ Укажите поисковый запрос")
		return
	}

	_ = b.client.SendChatAction(chatID, tg.ChatActionUploadPhoto, nil)

	result := b.service.SERPScreenshot(context.Background(), query, capture.EngineYandex, "", tempOutput(capture.FormatPNG))
	b.sendResult(chatID, result)
}

func (b *Bot) handleLayout(chatID int64, arg string) {
	url, err := ValidateURL(arg)
	if err != nil {
		b.sendText(chatID, "❌ "+err.Error())
		return
	}

	_ = b.client.SendChatAction(chatID, tg.ChatActionUploadPhoto, nil)

	audit, err := b.service.LayoutAudit(context.Background(), url, telegramBreakpoints, os.TempDir())
	if err != nil {
		b.sendText(chatID, "❌ "+err.Error())
		return
	}

	for _, bp := range audit.Breakpoints {
		if !bp.Success {
			continue
		}
		b.sendPhoto(chatID, bp.Output, fmt.Sprintf("📐 %dpx — %dx%dpx", bp.Breakpoint, bp.PageWidth, bp.PageHeight))
	}

	if audit.HTMLReport != "" {
		b.sendDocument(chatID, audit.HTMLReport, "Сравнение breakpoints")
	}

	os.RemoveAll(audit.OutputDir)
}

func (b *Bot) sendResult(chatID int64, result *capture.Result) {
	if !result.Success {
		b.sendText(chatID, "❌ "+result.Error+"\n\n"+HelpText)
		return
	}

	caption := fmt.Sprintf("📸 %s\n📐 %dx%dpx", captionTitle(result), result.PageWidth, result.PageHeight)

	if result.Format == capture.FormatPDF {
		b.sendDocument(chatID, result.Output, caption)
	} else {
		b.sendPhoto(chatID, result.Output, caption)
	}

	os.Remove(result.Output)
}

func (b *Bot) sendPhoto(chatID int64, path, caption string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("failed to read screenshot %s: %v", path, err)
		b.sendText(chatID, "✓ Скриншот создан, но файл не найден")
		return
	}

	sent := b.client.SendPhoto(chatID, tg.InputFileFromBytes(data), tg.OptionsSendPhoto{}.SetCaption(caption))
	if !sent.Ok {
		log.Printf("failed to send photo: %s", *sent.Description)
	}
}

func (b *Bot) sendDocument(chatID int64, path, caption string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("failed to read document %s: %v", path, err)
		return
	}

	sent := b.client.SendDocument(chatID, tg.InputFileFromBytes(data), tg.OptionsSendDocument{}.SetCaption(caption))
	if !sent.Ok {
		log.Printf("failed to send document: %s", *sent.Description)
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	sent := b.client.SendMessage(chatID, text, tg.OptionsSendMessage{})
	if !sent.Ok {
		log.Printf("failed to send message: %s", *sent.Description)
	}
}

// captionTitle falls back to the URL when the page has no title. Long
// titles are cut at 100 runes, not bytes, so Cyrillic titles stay valid
// UTF-8 for the Bot API.
func captionTitle(result *capture.Result) string {
	if result.Title == "" {
		return result.URL
	}

	runes := []rune(result.Title)
	if len(runes) > 100 {
		return string(runes[:100])
	}
	return result.Title
}

func tempOutput(format string) string {
	name := "telegram_" + uuid.New().String()[:8] + "." + format
	return filepath.Join(os.TempDir(), name)
}
