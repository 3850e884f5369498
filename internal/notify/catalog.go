package notify

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys.
const (
	KeyAttackInProgress    = "attack.in_progress"
	KeyAttackSelecting     = "attack.selecting_target"
	KeyAttackCancelled     = "attack.target_cancelled"
	KeyOtherPlayerDeciding = "prompt.other_player"
	KeyPromptTimedOut      = "prompt.timed_out"
	KeySelectionUpdated    = "selection.updated"
	KeyLegendaryRevealed   = "legendary.revealed"
	KeyCommandRejected     = "command.rejected"
	KeyCommandFailed       = "command.failed"
	KeySessionExpired      = "session.expired"
	KeyConnectionLost      = "connection.lost"
	KeyConnectionRestored  = "connection.restored"
	KeyGameOver            = "game.over"
)

func init() {
	en := language.English
	message.SetString(en, KeyAttackInProgress, "Player %s is attacking Player %s with %d damage!")
	message.SetString(en, KeyAttackSelecting, "Player %s is selecting an attack target.")
	message.SetString(en, KeyAttackCancelled, "Attack target selection cancelled.")
	message.SetString(en, KeyOtherPlayerDeciding, "Player %s is deciding.")
	message.SetString(en, KeyPromptTimedOut, "Time is up, the %s prompt was answered for you.")
	message.SetString(en, KeySelectionUpdated, "Player %s made a selection.")
	message.SetString(en, KeyLegendaryRevealed, "Legendary card revealed: %s")
	message.SetString(en, KeyCommandRejected, "Too late or not allowed: %s (%s)")
	message.SetString(en, KeyCommandFailed, "Connection problem while sending %s.")
	message.SetString(en, KeySessionExpired, "Your session has expired. Please log in again.")
	message.SetString(en, KeyConnectionLost, "Connection lost, reconnecting...")
	message.SetString(en, KeyConnectionRestored, "Reconnected.")
	message.SetString(en, KeyGameOver, "Game over. Winner: %s")

	ru := language.Russian
	message.SetString(ru, KeyAttackInProgress, "Игрок %s атакует игрока %s на %d урона!")
	message.SetString(ru, KeyAttackSelecting, "Игрок %s выбирает цель атаки.")
	message.SetString(ru, KeyAttackCancelled, "Выбор цели атаки отменён.")
	message.SetString(ru, KeyOtherPlayerDeciding, "Игрок %s принимает решение.")
	message.SetString(ru, KeyPromptTimedOut, "Время вышло, запрос «%s» решён автоматически.")
	message.SetString(ru, KeySelectionUpdated, "Игрок %s сделал выбор.")
	message.SetString(ru, KeyLegendaryRevealed, "Открыта легендарная карта: %s")
	message.SetString(ru, KeyCommandRejected, "Слишком поздно или недопустимо: %s (%s)")
	message.SetString(ru, KeyCommandFailed, "Проблема соединения при отправке %s.")
	message.SetString(ru, KeySessionExpired, "Сессия истекла. Войдите снова.")
	message.SetString(ru, KeyConnectionLost, "Соединение потеряно, переподключаемся...")
	message.SetString(ru, KeyConnectionRestored, "Соединение восстановлено.")
	message.SetString(ru, KeyGameOver, "Игра окончена. Победитель: %s")
}
