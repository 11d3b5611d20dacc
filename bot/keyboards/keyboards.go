// Package keyboards builds every markup the bot shows. Callback uniques are
// the package's Act* constants; the conversation engine dispatches on them.
package keyboards

import (
	tele "gopkg.in/telebot.v4"

	"github.com/concert-mate/bot/core/telegram/keyboard"
)

// Callback uniques.
const (
	ActBack         = "back"
	ActCancel       = "cancel"
	ActApply        = "apply"
	ActDeny         = "deny"
	ActChangeData   = "change_data"
	ActAddCity      = "add_city"
	ActRemoveCity   = "remove_city"
	ActAddLink      = "add_link"
	ActRemoveLink   = "remove_link"
	ActUserInfo     = "user_info"
	ActCities       = "cities"
	ActLinks        = "links"
	ActHelp         = "help"
	ActMainInfo     = "main_info"
	ActDevContact   = "dev_contact"
	ActShowConcerts = "show_concerts"
	ActNotices      = "notices"
	ActEnable       = "enable"
	ActDisable      = "disable"
	ActPrevPage     = "prev_page"
	ActNextPage     = "next_page"
	// ActPick carries the selected city or track list in its payload on the
	// remove screens.
	ActPick = "pick"
)

// Uniques lists every callback unique for wiring-time registration.
func Uniques() []string {
	return []string{
		ActBack, ActCancel, ActApply, ActDeny,
		ActChangeData, ActAddCity, ActRemoveCity, ActAddLink, ActRemoveLink,
		ActUserInfo, ActCities, ActLinks,
		ActHelp, ActMainInfo, ActDevContact,
		ActShowConcerts, ActNotices, ActEnable, ActDisable,
		ActPrevPage, ActNextPage, ActPick,
	}
}

// Reply button labels that double as text commands.
const (
	SkipCitiesLabel = "Прекратить ввод городов"
	SkipLinksLabel  = "Прекратить ввод ссылок"
	LocationLabel   = "Отправить геолокацию"
)

// Location returns the reply keyboard with a share-location button.
func Location() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	markup.Reply(markup.Row(markup.Location(LocationLabel)))
	return markup
}

// SkipCities returns the reply keyboard that ends city input.
func SkipCities() *tele.ReplyMarkup {
	return keyboard.ReplyButtons([]string{SkipCitiesLabel})
}

// SkipLinks returns the reply keyboard that ends track list input.
func SkipLinks() *tele.ReplyMarkup {
	return keyboard.ReplyButtons([]string{SkipLinksLabel})
}

// Remove hides any reply keyboard.
func Remove() *tele.ReplyMarkup {
	return keyboard.RemoveKeyboard()
}

// FuzzyVariants returns the apply/deny pair of the fuzzy-city confirmation.
func FuzzyVariants() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: "Принять", Unique: ActApply},
		{Text: "Отказаться", Unique: ActDeny},
	})
}

// MainMenu returns the top-level menu markup.
func MainMenu() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "Изменить данные", Unique: ActChangeData},
			{Text: "Показать концерты", Unique: ActShowConcerts},
		},
		[]keyboard.InlineBtn{
			{Text: "Информация о пользователе", Unique: ActUserInfo},
			{Text: "Уведомления", Unique: ActNotices},
		},
		[]keyboard.InlineBtn{
			{Text: "F.A.Q", Unique: ActHelp},
		},
	)
}

// ChangeData returns the data-editing menu markup.
func ChangeData() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "Добавить город", Unique: ActAddCity},
			{Text: "Удалить город", Unique: ActRemoveCity},
		},
		[]keyboard.InlineBtn{
			{Text: "Добавить трек-лист", Unique: ActAddLink},
			{Text: "Удалить трек-лист", Unique: ActRemoveLink},
		},
		[]keyboard.InlineBtn{
			{Text: "Назад", Unique: ActBack},
		},
	)
}

// Cancel returns a single-button cancel markup for text-entry screens.
func Cancel() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "Отменить", Unique: ActCancel},
	})
}

// Back returns a single-button back markup.
func Back() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "Назад", Unique: ActBack},
	})
}

// Help returns the F.A.Q menu markup.
func Help() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "Что умеет этот бот", Unique: ActMainInfo},
		{Text: "Связь с разработчиком", Unique: ActDevContact},
		{Text: "Назад", Unique: ActBack},
	})
}

// UserInfo returns the user-data menu markup.
func UserInfo() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "Города", Unique: ActCities},
			{Text: "Трек-листы", Unique: ActLinks},
		},
		[]keyboard.InlineBtn{
			{Text: "Назад", Unique: ActBack},
		},
	)
}

// Notices returns the notification-management markup; the toggle button
// reflects the current flag.
func Notices(enabled bool) *tele.ReplyMarkup {
	toggle := keyboard.InlineBtn{Text: "Включить", Unique: ActEnable}
	if enabled {
		toggle = keyboard.InlineBtn{Text: "Отключить", Unique: ActDisable}
	}
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		toggle,
		{Text: "Назад", Unique: ActBack},
	})
}

// Picker returns one button per item plus a trailing back button; the item
// itself travels in the payload.
func Picker(items []string) *tele.ReplyMarkup {
	buttons := make([]keyboard.InlineBtn, 0, len(items)+1)
	for _, item := range items {
		buttons = append(buttons, keyboard.InlineBtn{Text: item, Unique: ActPick, Data: item})
	}
	buttons = append(buttons, keyboard.InlineBtn{Text: "Назад", Unique: ActBack})
	return keyboard.InlineButtons(buttons)
}

// ConcertsPager returns the paging controls of the concerts view.
func ConcertsPager() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "⬅️", Unique: ActPrevPage},
			{Text: "➡️", Unique: ActNextPage},
		},
		[]keyboard.InlineBtn{
			{Text: "Назад", Unique: ActBack},
		},
	)
}
