// Package states declares the closed set of conversation states the bot
// moves a user through. Handlers are registered per state; a session whose
// state is not in this set is a bug, not a runtime condition.
package states

// State identifies a single step of the per-user dialogue.
type State string

// Registration group. A fresh user walks these in order; CityIsFuzzy is a
// detour that remembers which state it must return to.
const (
	AwaitingFirstCity  State = "awaiting_first_city"
	AwaitingMoreCities State = "awaiting_more_cities"
	AwaitingFirstLink  State = "awaiting_first_link"
	AwaitingMoreLinks  State = "awaiting_more_links"
	CityIsFuzzy        State = "city_is_fuzzy"
)

// Menu group.
const (
	MainMenu              State = "main_menu"
	ChangeData            State = "change_data"
	EnterNewCity          State = "enter_new_city"
	RemoveCity            State = "remove_city"
	EnterNewLink          State = "enter_new_link"
	RemoveLink            State = "remove_link"
	Help                  State = "help"
	HelpDeadEnd           State = "help_dead_end"
	UserInfo              State = "user_info"
	UserInfoDeadEnd       State = "user_info_dead_end"
	ConcertsShown         State = "concerts_shown"
	ManagingNotifications State = "managing_notifications"

	// Waiting is entered right before any backend or cache call so that a
	// second action arriving mid-flight lands on a defined state instead of
	// racing the in-flight handler.
	Waiting State = "waiting"
)

var all = map[State]struct{}{
	AwaitingFirstCity: {}, AwaitingMoreCities: {},
	AwaitingFirstLink: {}, AwaitingMoreLinks: {}, CityIsFuzzy: {},
	MainMenu: {}, ChangeData: {}, EnterNewCity: {}, RemoveCity: {},
	EnterNewLink: {}, RemoveLink: {}, Help: {}, HelpDeadEnd: {},
	UserInfo: {}, UserInfoDeadEnd: {}, ConcertsShown: {},
	ManagingNotifications: {}, Waiting: {},
}

// Known reports whether st belongs to the closed state set.
func Known(st State) bool {
	_, ok := all[st]
	return ok
}

// Registration reports whether st belongs to the registration group.
func Registration(st State) bool {
	switch st {
	case AwaitingFirstCity, AwaitingMoreCities, AwaitingFirstLink, AwaitingMoreLinks, CityIsFuzzy:
		return true
	}
	return false
}
