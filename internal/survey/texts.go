package survey

import (
	"fmt"
	"strings"
)

// Callback payloads carried on inline controls.
const (
	CallbackSchoolYes        = "school_yes"
	CallbackSchoolNo         = "school_no"
	CallbackSkipReason       = "skip_comment_no_school_reason"
	CallbackSkipOverall      = "skip_comment_overall"
	CallbackSkipMealComment  = "skip_meal_comment"
	callbackRatingOverallPfx = "rating_overall_"
	callbackRatingMealPfx    = "rating_meal_"
)

const dateLayout = "02.01.2006"

const (
	textGreeting = "Я могу оценивать блюда в столовой!\n" +
		"Вводи команду /mark и помоги мне собрать статистику!"

	textAlreadyActive = "⏳ *Вы уже начали оценку питания!*\n\n" +
		"Завершите текущую оценку или используйте /reset чтобы начать заново."

	textSessionReset = "♻️ Сессия сброшена. Начните заново с команды /mark."

	textAskDate = "📅 *Оценка питания за конкретный день*\n\n" +
		"Введите дату в формате *ДД.ММ.ГГГГ*:\n" +
		"*Пример:* 15.12.2024"

	textBadDate = "❌ *Неверный формат даты!*\n\n" +
		"Введите дату в формате *ДД.ММ.ГГГГ*:\n" +
		"*Пример:* 15.12.2024"

	textFutureDate = "❌ *Нельзя оценить питание за будущую дату!*\n\n" +
		"Введите корректную дату в формате ДД.ММ.ГГГГ:"

	textAskEligibility = "🏫 *Первый вопрос:*\n\n" +
		"Вы питаетесь в школьной столовой?"

	textAskReason = "💬 *Почему вы не питаетесь в школьной столовой?*\n\n" +
		"Напишите причину:\n" +
		"• Не нравится еда?\n" +
		"• Приносите еду с собой?\n" +
		"• Другая причина?"

	textAskProfile = "📝 *Отлично! Теперь расскажите о себе:*\n\n" +
		"Напишите ваши *полные Фамилию и Имя* и *класс* в формате:\n" +
		"`Иванов Иван 5А`\n\n" +
		"*Пример:* Иванова Мария 8Б"

	textBadProfile = "❌ *Пожалуйста, введите данные в правильном формате:*\n" +
		"`Фамилия Имя Класс`\n\n" +
		"*Пример:* Иванов Иван 5А"

	textAskOverall = "🍽️ *Оцените, пожалуйста, насколько вам нравится питание в столовой в целом?*"

	textAskOverallComment = "💬 *Пожалуйста, напишите, что именно вам не нравится в питании?*\n\n" +
		"Ваши комментарии помогут улучшить ситуацию!"

	textNoMeals = "❌ *На выбранную дату фотографии блюд не найдены.*\n\n" +
		"Попробуйте другую дату или обратитесь к администратору."

	textTooManyAttempts = "❌ Слишком много неверных попыток. Оценка отменена."

	textSaveFailed = "❌ Произошла ошибка при сохранении данных. " +
		"Попробуйте начать заново с команды /mark."

	textGenericFailure = "❌ Произошла ошибка. Попробуйте начать заново с команды /mark."

	buttonYes         = "✅ Да, питаюсь"
	buttonNo          = "❌ Нет, не питаюсь"
	buttonNoComment   = "🚫 Без комментариев"
	buttonSkipComment = "🚫 Пропустить комментарий"
)

func eligibilityKeyboard() Controls {
	return Controls{{
		{Label: buttonYes, Data: CallbackSchoolYes},
		{Label: buttonNo, Data: CallbackSchoolNo},
	}}
}

// ratingKeyboard builds the one-row emoji keyboard for button-driven scales.
func ratingKeyboard(scale Scale, prefix string) Controls {
	row := make([]Button, 0, scale.Max)
	for n := 1; n <= scale.Max; n++ {
		row = append(row, Button{
			Label: fmt.Sprintf("%d %s", n, scale.Emoji(n)),
			Data:  fmt.Sprintf("%s%d", prefix, n),
		})
	}
	return Controls{row}
}

func skipKeyboard(label, data string) Controls {
	return Controls{{{Label: label, Data: data}}}
}

func textIneligibleFinal(date, reason string) string {
	if reason == "" {
		return fmt.Sprintf("❌ *Оценка питания за %s отменена*\n\n"+
			"Этот бот предназначен только для учащихся, которые питаются в школьной столовой.", date)
	}
	return fmt.Sprintf("📝 *Ваш отзыв за %s сохранен*\n\n"+
		"*Причина непосещения столовой:* %s\n\n"+
		"Спасибо за обратную связь! Эта информация поможет улучшить школьное питание.", date, reason)
}

// itemCaption renders the prompt for one meal slot. Placeholder slots get
// slot-specific wording instead of the photo caption.
func itemCaption(item MediaItem, position, total int, scale Scale) string {
	var b strings.Builder
	if item.PhotoURL != "" {
		fmt.Fprintf(&b, "🍽 *%s*\n\n", item.Title)
		fmt.Fprintf(&b, "Блюдо %d из %d. ", position, total)
	} else {
		switch item.Label {
		case "первое":
			b.WriteString("🍵 *Первое блюдо*\n\nКак вы оцените сегодняшний суп? ")
		case "второе":
			b.WriteString("🍛 *Второе блюдо*\n\nНасколько вам понравилось основное блюдо? ")
		case "напиток":
			b.WriteString("🥤 *Напиток*\n\nКак вам сегодняшний напиток? ")
		default:
			fmt.Fprintf(&b, "🍽 *%s*\n\nКак вы оцените это блюдо? ", item.Title)
		}
		fmt.Fprintf(&b, "(%d из %d) ", position, total)
	}
	if scale.TextEntry {
		fmt.Fprintf(&b, "\n📝 Введите оценку от 1 до %d:", scale.Max)
	} else {
		b.WriteString("\nОцените это блюдо:")
	}
	return b.String()
}

func textInvalidRating(attempt int, scale Scale) string {
	return fmt.Sprintf("❌ Неверный формат оценки!\n"+
		"📝 Введите оценку от 1 до %d (попытка %d/3):", scale.Max, attempt+1)
}

func textCommentPrompt(label string, header string) string {
	var b strings.Builder
	if header != "" {
		b.WriteString(header)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "💬 *Комментарий для %s:*\n\n", capitalize(label))
	b.WriteString("Пожалуйста, напишите:\n" +
		"• Почему не понравилось это блюдо?\n" +
		"• На какое блюдо хотели бы поменять?\n\n" +
		"*Пример:* \"Слишком соленое, хотелось бы гречневую кашу\"")
	return b.String()
}

func textRatingStats(rated int, avg float64) string {
	return fmt.Sprintf("🍽 Вы оценили %d блюд(а)\n📊 Средняя оценка блюд: %.1f", rated, avg)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}
