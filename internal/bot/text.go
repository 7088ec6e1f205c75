package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/teleta/archivebot/internal/model"
)

// ==========================
// Тексты ответов
// ==========================

const (
	unknownErrorText = "Some unknown error occurred."
	boolUsageText    = "Got an invalid value. Please use one of: true/false, on/off, 1/0."
	nameTakenText    = "There already is a chat with this name, please choose another one."
)

// HelpText — ответ на /help. Собирается один раз при старте.
var HelpText = fmt.Sprintf(`A handy telegram bot which allows to store files on your server, which are posted in a chat.
For example, this is great to collect images and videos from all members of your last holiday trip or simply to push backups or interesting files from your telegram chats to your server.

If you forward messages from other chats and `+"`sort_by_user`"+` is on, the file will still be saved under the name of the original owner.

To send multiple uncompressed pictures and videos with your phone:
1. Click the share button
2. Select `+"`File`"+`
3. Select Gallery (To send images without compression)

In group channels the bot expects a command in combination with its username.
E.g. /start@bot_user_name

Available commands:

/start Start the bot
/stop Stop the bot
/set_name Set the name for this chat. This also determines the name of the target folder on the server.
/verbose [true, false] The bot will complain if there are duplicate files or uncompressed images are sent, whilst not being accepted.
/sort_by_user [true, false] Incoming files will be sorted by user in the server directory for this chat.
/accept [%s] Specify the allowed media types. Always provide a space separated list of all accepted media types, e.g. 'document photo'.
/info Show current settings.
/help Show this text
`, possibleMediaList())

func possibleMediaList() string {
	kinds := model.PossibleMedia()
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}

// InfoText — сводка настроек чата для /info.
func InfoText(sub *model.Subscriber) string {
	return fmt.Sprintf(`Current settings:

Name: %s
Active: %t
Accepted Media: %s
Verbose: %t
Sort files by User: %t
`, sub.ChannelName, sub.Active, sub.AcceptedMedia, sub.Verbose, sub.SortByUser)
}

// ==========================
// Разбор булевых аргументов
// ==========================

var ErrInvalidBooleanText = errors.New("invalid boolean text")

// ParseBool понимает 1/true/on и 0/false/off без учёта регистра.
func ParseBool(text string) (bool, error) {
	switch strings.ToLower(text) {
	case "1", "true", "on":
		return true, nil
	case "0", "false", "off":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q", ErrInvalidBooleanText, text)
}
