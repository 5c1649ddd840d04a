// ABOUTME: User-facing texts of the bot
// ABOUTME: Russian wording and list rendering kept apart from the state logic

package dialog

import (
	"fmt"
	"strings"

	"github.com/2389/rail-scout/internal/compartment"
	"github.com/2389/rail-scout/internal/subscription"
)

const (
	msgAskOrigin       = "Напишите точку отправления"
	msgChooseOrigin    = "Выберите точку отправления"
	msgChooseDest      = "Выберите точку прибытия"
	msgAskDate         = "Напишите дату в формате ДД.ММ.ГГГГ"
	msgReset           = "Текущий диалог сброшен"
	msgNothingFound    = "Не найдено. Напишите /start, чтобы начать заново. Текущий диалог сброшен"
	msgNoBlocks        = "Свободных купе целиком не найдено."
	msgNoTrains        = "Поездов со свободными местами в купе нет."
	msgChooseTrain     = "Выберите поезд кнопкой или отправьте его номер в списке"
	msgIdleHint        = "Напишите /start, чтобы начать поиск"
	msgStaleChoice     = "Этот список уже неактуален"
	msgNoTasks         = "Нет задач"
	msgNotWatching     = "Хорошо, поезд не отслеживается"
	msgPointBadIndex   = "Неправильный номер. Выберите пункт из списка"
	btnWatchDay        = "Проверять этот день"
	btnWatchTrain      = "Проверять этот поезд"
	btnNoWatch         = "Не проверять этот поезд"
	btnDeleteTask      = "Удалить задачу"
	btnCheckTask       = "Проверить сейчас"
	msgUnknownButton   = "Неизвестная кнопка"
	msgTaskUnavailable = "Задача не найдена"
)

func msgNoPoints(query string) string {
	return fmt.Sprintf("По запросу «%s» ничего не найдено. %s", query, msgReset)
}

func msgOriginChosen(name string) string {
	return fmt.Sprintf("Отправление: %s\nНапишите точку прибытия", name)
}

func msgDestinationChosen(name string) string {
	return fmt.Sprintf("Прибытие: %s\n%s", name, msgAskDate)
}

func msgBadDate(text string) string {
	return fmt.Sprintf("Не удалось разобрать дату «%s». %s", text, msgAskDate)
}

func msgBadTrainIndex(text string) string {
	return fmt.Sprintf("Неправильный номер поезда «%s». %s", text, msgReset)
}

func msgFailure(what string, err error) string {
	return fmt.Sprintf("Ошибка во время %s: %v. %s", what, err, msgReset)
}

func msgTaskCreated(id string) string {
	return fmt.Sprintf("Создана задача с номером %s", id)
}

func msgTaskCreateFailed(err error) string {
	return fmt.Sprintf("Невозможно создать задачу: %v", err)
}

func msgTaskDeleted(id string) string {
	return fmt.Sprintf("Удалена задача %s", id)
}

func msgTaskDeleteFailed(err error) string {
	return fmt.Sprintf("Ошибка при удалении задачи: %v", err)
}

func msgCheckFailed(err error) string {
	return fmt.Sprintf("Ошибка во время проверки: %v", err)
}

// renderTrainSummary lists the trains with their 1-based indices.
func renderTrainSummary(trains []TrainOption) string {
	var b strings.Builder
	for i, t := range trains {
		fmt.Fprintf(&b, "%d. Поезд: %s\nДата отправления: %s\nВремя отправления: %s\nСвободных мест в купе: %d\n",
			i+1, t.Listing.Number, t.Listing.Date, t.Listing.Time, t.FreeSeats)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func renderTrains(trains []TrainOption) string {
	return renderTrainSummary(trains) + "\n" + msgChooseTrain
}

func trainLabel(i int, t TrainOption) string {
	return fmt.Sprintf("%d. %s %s (%d)", i+1, t.Listing.Number, t.Listing.Time, t.FreeSeats)
}

func renderBlocks(blocks []compartment.Block) string {
	if len(blocks) == 0 {
		return msgNoBlocks
	}
	var b strings.Builder
	for _, blk := range blocks {
		fmt.Fprintf(&b, "Номер вагона: %s\nНомера мест: %d - %d\n", blk.Car, blk.First, blk.Last)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func renderTask(sub subscription.Subscription) string {
	kind := "Проверка дня"
	if sub.Kind == subscription.KindTrain {
		kind = "Проверка поезда"
	}
	return fmt.Sprintf("%s\nId: %s\n%s", kind, sub.ID, sub.Label())
}
