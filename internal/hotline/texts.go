package hotline

// Trigger phrases. Users are told these in /help, so they are a contract.
const (
	reportPhrases     = `настоящим сообщаю,? что|довожу до вашего сведения,? что|обращаюсь по поводу|спешу сообщить,? что|(?:я )?случайно (?:услышала?|увидела?)`
	confessionPhrases = `признаю себя виновн(?:ым|ой)|(?:заявляю|сообщаю),? что (?:я|мною|мне|меня|мной|мы)|хочу чистосердечно (?:заявить|раскаяться)`
)

// caseTitles label the first case numbers.
var caseTitles = map[int64]string{
	1:  "Петр I",
	2:  "Гусь",
	3:  "Крендель",
	4:  "Хорошист",
	5:  "Отличник",
	6:  "Антон Павлович Чехов",
	7:  "Топор",
	8:  "Женский день",
	10: "Червонец",
	11: "Барабанные палочки",
	12: "Дюжина",
	13: "Чёртова дюжина",
	14: "Олимпиада в Сочи",
	17: "Где мои семнадцать лет",
	18: "В первый раз",
	20: "Лебединое озеро",
	21: "Очко",
	22: "Гуси-лебеди",
	23: "Два притопа, три прихлопа",
	24: "День в ночь — кек в кукарек",
	25: "Опять двадцать пять",
	27: "Гусь с топором",
	28: "Сено мы косить не бросим",
	30: "Ума нет",
	31: "С Новым Годом!",
	32: "Три притопа, два прихлопа",
	33: "Кудрин",
	36: "Ваше здоровье",
	38: "Где мы все мечтаем побывать",
	40: "Али-баба",
	41: "Ем один",
	44: "Стульчики",
	45: "Баба ягодка опять",
	47: "Баба ягодка совсем",
	48: "Сено косим, половинку просим",
	50: "Полста",
	55: "Перчатки",
	66: "Валенки",
	69: "Туда-сюда",
	70: "Топор в озере",
	77: "Семен Семеныч",
	80: "Бабушка",
	81: "Бабушка с клюшкой",
	82: "Бабушка надвое сказала",
	85: "Перестройка",
	88: "Крендельки",
	89: "Дедушкин сосед",
	90: "Дедушка",
}

const (
	textLink       = "Орзик, хватит играться."
	textUnknown    = "Не могу понять, вы доносите или раскаиваетесь? Начните сообщение с нужных слов (/help).\n\nВы можете как отправить сообщение заново, так и отредактировать старое."
	textDuplicate  = "Мы уже получили такое обращение."
	textRetry      = "Не получилось открыть дело. Отправьте заявление еще раз."
	textCaseOpened = "Ваше заявление принято. Открыто дело под номером %d.\n\nДля подачи нового заявления просто напишите мне сообщение. Или получите инструкции через /help."
	textBreak      = "%s, вы что не видите, у нас обед до %d!"
	textNotFound   = "Дело №%d не найдено"
	textOnce       = "Только один раз"
	textSelfReport = "Самодонос, кек"
	textSelfGive   = "Самопожертвование, кек"
	textReported   = "👮 Спасибо за бдительность! Воронок уже в пути"
	textSupported  = "Thank you for your support"
	textRevealed   = "Какой ужас. Это %s"
	textAlert      = "%s, стучите помедленнее. Я не успеваю записывать."
	textLike       = "❤️"
	textDislike    = "💔"

	textReportThenSupport = "%s сразу же настучал(а). Но позже одумался(ась) и пожертвовал(а) свои кровные. Давайте похлопаем великодушию! 👏"
	textSupportThenReport = "%s сперва подал(а) копейку, а потом настучал(а). Вот жеж крыса! 🐀"

	textAbout = "Сегодня в России отмечается День ФСБ. В честь праздника в личке бота открыта анонимная линия доверия. Для получения инструкций напишите /help боту в личку.\n\nОблегчите совесть, снимите груз с души!"

	textBegin = `👮🚓👮🚓👮🚓👮🚓

Сегодня в России отмечается День ФСБ. В честь праздника ровно на одни сутки в личке бота открыта анонимная линия доверия. Прием доносов и чистосердечных раскаяний проходит без перерывов. Перерыв на обед с %d до %d часов.

Для получения инструкций напишите команду <code>/help</code> боту в личку.

Облегчите совесть, снимите груз с души!`

	textEnd = "День ФСБшника закончился. Личка доверия прекратила прием обращений. Самое время подвести итоги:\n\n%s"

	textHelp = `Здравствуйте, %s, вас приветствует анонимная линия доверия!

<b>Помните</b>

• Все заявления анонимны. Ваше имя нигде не будет указано. И вы свое имя не указывайте.
• Отправляйте любое количество сообщений без ограничений.

<b>Инструкция</b>

Отправьте сообщение мне в личку — оно и будет вашим заявлением. Донос или раскаяние вы пишете будет зависеть от того, как вы начнете свое сообщение.

<b>Донос</b>

Начните донос с любой из фраз:

• Настоящим сообщаю, что
• Довожу до вашего сведения, что
• Обращаюсь по поводу
• Спешу сообщить, что
• Я случайно услышал(а)/увидел(а)

<b>Признания, раскаяния, явка с повинной</b>

Если хотите раскаяться, то начните сообщение со слов:

• Признаю себя виновным/виновной
• Заявляю/сообщаю, что я/мною/мне/меня/мной/мы
• Хочу чистосердечно заявить/раскаяться`
)

const (
	labelReport  = "Настучать"
	labelSupport = "Поддержать рублем"
	labelAbout   = "Что это?"
	labelBegin   = "Перейти на линию (нажмите там Start)"
	labelLike    = "Мне понравилось"
	labelDislike = "Мне не понравилось"
)
