package handlers

// Input caps, enforced before any backend call.
const (
	maxCityLen = 40
	maxLinkLen = 100
)

const (
	textChooseAction = "Выберите действие"
	textRetryLater   = "Внутренние проблемы сервиса, попробуйте позже."

	textGreeting = "Привет, %s, поскольку вы в нашем боте еще не зарегистрированы - самое время сделать это." +
		" Введите название города, в котором желаете посещать концерты, или нажмите кнопку, чтобы отправить геолокацию."
	textGreetingKnown = "Привет, %s, мы вас помним, вы уже регистрировались"
	textFarewell      = "До скорых встреч"

	textAfterFirstCity = "Вы можете вводить дальше города по одному. Если желаете прекратить это - введите команду" +
		" /skip или нажмите кнопку снизу"
	textAfterFirstLink = "Вы можете вводить дальше ссылки по одной. Если желаете прекратить это - введите команду" +
		" /skip или нажмите кнопку снизу"
	textEnterFirstLink   = "Введите ссылку, откуда мы будем выбирать ваших любимых исполнителей"
	textRegistrationDone = "Регистрация окончена"
	textCityAdded        = "Город %s добавлен успешно."
	textCityTooLong      = "Название города слишком длинное, попробуйте еще раз"
	textCityInvalid      = "Некорректно введен город или его не существует"
	textCityExists       = "Город уже был добавлен"
	textCityRemoved      = "Город %s успешно удалён"
	textFuzzyQuestion    = "Города %s не существует, может быть вы имели ввиду %s?"
	textFuzzyChoose      = "Выберите вариант действий"
	textFuzzyApplied     = "Город добавлен"
	textFuzzyDenied      = "Вариант был отклонён"
	textLinkTooLong      = "Ссылка слишком длинная, попробуйте еще раз"
	textLinkAdded        = "Ссылка успешно добавлена"
	textLinkInvalid      = "Ссылка недействительна"
	textLinkExists       = "Ссылка уже была добавлена"
	textLinkRemoved      = "Ссылка успешно удалёна"
	textEnterCity        = "Введите название города"
	textEnterLink        = "Введите ссылку на трек-лист"
	textNoCities         = "У вас не указан ни один город"
	textNoLinks          = "Ссылки не обнаружены"
	textPickCityToRemove = "Выберите город, который нужно удалить"
	textPickLinkToRemove = "Выберите ссылку, которую нужно удалить"
	textYourCities       = "Ваши города:"
	textYourLinks        = "Ваши трек-листы:"
	textNoConcerts       = "Пока подходящих концертов нет, загляните позже"
	textConcertsPage     = "Страница %d из %d"
	textAboutBot         = "Данный бот умеет присылать уведомления о концертах любимых исполнителей.\n" +
		"Любимых исполнителей мы выбираем по плейлистам и альбомам, на текущий момент мы поддерживаем" +
		" только Яндекс Музыку и Россию."
	textDevContact = "Репозиторий бота в <a href=\"https://github.com/Concert-Mate/Bot\">github</a>\nСоздатель бота @urberton"
)
