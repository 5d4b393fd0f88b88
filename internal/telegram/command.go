package telegram

import (
	"fmt"
	"net/url"
	"strings"
)

// Command is a parsed bot command.
type Command struct {
	Name   string
	Arg    string
	Mobile bool
	Format string
}

// HelpText lists the commands the bot understands.
const HelpText = `Доступные команды:
/screen URL - скриншот сайта
/mobile URL - мобильная версия
/serp запрос - скриншот выдачи Яндекса
/layout URL - аудит вёрстки`

// ParseCommand splits a message into command, argument, and trailing
// options. A @botname suffix on the command is stripped.
func ParseCommand(text string) Command {
	parts := strings.SplitN(strings.TrimSpace(text), " ", 3)
	if len(parts) == 0 || parts[0] == "" {
		return Command{}
	}

	name := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}

	cmd := Command{Name: name}
	if len(parts) < 2 {
		return cmd
	}
	cmd.Arg = parts[1]

	if len(parts) > 2 {
		rest := parts[2]
		if strings.Contains(rest, "--mobile") || strings.Contains(rest, "-m") {
			cmd.Mobile = true
		}
		if strings.Contains(rest, "--pdf") {
			cmd.Format = "pdf"
		}
	}

	return cmd
}

// ValidateURL normalizes a URL argument, defaulting the scheme to https.
func ValidateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("invalid URL: %s", raw)
	}

	return raw, nil
}

// IsScreenshotCommand reports whether a message text starts with one of the
// bot's commands, for routing inside a shared webhook.
func IsScreenshotCommand(text string) bool {
	for _, prefix := range []string{"/screen", "/mobile", "/serp", "/layout"} {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}
