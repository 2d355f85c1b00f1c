package valentine

// hearts is the card palette; a style is an index into it.
var hearts = []string{"♥️", "❤️", "💛", "💚", "💙", "💜", "🖤", "💔"}

const (
	titlePreview = "<b>Предпросмотр</b>"
	titleDraft   = "<em>Черновик</em>"
	titleSent    = "<b>Отправлено</b>"

	previewHeader = "Для изменения текста отправьте новое сообщение или измените старое. Можете выбрать цвет сердечка. Нажмите „Отправить“ когда все будет готово. Передумали и хотите начать заново — просто отправьте сообщение с новым текстом."

	cardTag = "#валентин"
)

const (
	textMissingRecipient = "Через @username укажи кому отправлять валентинку"
	textUnknownRecipient = "В чате нет такого: %s"
	textSelf             = "Сам(а) себе? Печально 😢"
	textDuplicate        = "Ой! А такая валентиночка уже есть. Как неудобно…"
	textPreviewFailed    = "Не получилось показать валентинку. Отправьте текст еще раз"

	textWait          = "Ждите…"
	textNoDraft       = "Произошла ошибка. Отправьте текст валентинки повторно"
	textPublishFailed = "Произошла ошибка. Напишите текст валентинки повторно"
	textPublished     = "Успешно отправилось!"
	textWinkedTitle   = titleSent + " ✅ Нам подмигнули!"

	textNotFound       = "Ошибка. Не могу найти открытку #%d"
	textJealousAgain   = "Да забей ты на эту валентинку 🍺"
	textJealousSelf    = "Это же вам! Ревновать к себе? 👸"
	textJealous        = "Ха! Мы-то с тобой знаем, кто тут круче всех 👑"
	textWinkNotYours   = "Только адресат валентинки может подмигнуть 💔"
	textWinkAgain      = "Вы уже подмигивали 💆"
	textWinked         = "Подмигивание прошло успешно"
	textNotifyJealousR = "%s ревнует к валентинке для тебя"
	textNotifyJealousS = "%s ревнует к %s"
	textNotifyWink     = "%s подмигивает тебе ❤"

	textOnce    = "Только один раз"
	textLike    = "❤️"
	textDislike = "💔"

	textAbout = "Сегодня 14 февраля. Все отправляют валентинки!\n\nТоже хотите? Напишите /help боту в личку."

	textBegin = `<b>14 февраля</b>

Сегодня в чате отмечается День всех влюбленных! В этот прекрасный день сам бог рептилий велит вашему сердцу признаваться в любви ♥.

Или напишите приятное тем, кто вам <em>платонически</em> симпатичен. В этом нет ничего <em>такого</em> 🌋.

А еще можете отправить <b>чорную</b> валентинку всякому мудачью, АХАХАХА 😈

В празднике примет участие наш замечательный коллектив: %s.

Как отправить валентинку? Напишите <code>/help</code> боту в личку.`

	textEnd = "<b>День закончился, но не любовь.</b> А теперь сухая статистика:\n\n%s"

	textHelp = `<em>It might not be the right time.</em>
<em>I might not be the right one.</em>
<em>But there's something about us I want to say.</em>
<em>Cause there's something between us anyway.</em>

Эх, любовь-любовь, какое чувство! Мне-то, боту 🤖, холодной бездушной машине, никогда этого не понять. Но я постараюсь помочь выразить вашу любовь. Ну, или легкую симпатию, если вы не выносите нежностей.

<b>Отправка валентинки</b>

Напишите текст валентинки прямо сюда, не забыв указать @username получателя. Я покажу, как она будет выглядеть, и вы сможете отправить ее. После этого валентинка появится в чате, при этом ваше имя не будет указано.

На валентинке будут специальные кнопки:

• <b>поревновать</b> — получатель и отправитель узнают, что такой-то ревнует. На кнопке указано количество ревнивцев.
• <b>подмигнуть</b> — я сообщу, если адресат вам подмигнул. Сама кнопка не изменится.

В любом случае, ваше имя останется в тайне. Валентинок можно отправить любое количество.

<b>Готовы?</b>

Сегодня не время тянуть! Напишите валентинку.`
)

const (
	labelPublish = "Отправить в чат"
	labelJealous = "Поревновать"
	labelWink    = "Подмигнуть"
	labelAbout   = "Что это?"
	labelBegin   = "Отправить валентинку (нажмите там Start)"
	labelShow    = "Показать валентинку (%s)"
	labelLike    = "Отличный день"
	labelDislike = "Ненавижу 14-ое"
)
