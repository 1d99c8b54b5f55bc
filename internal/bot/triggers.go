package bot

import (
	"margintrade/internal/models"
	"margintrade/pkg/utils"
)

// Расчёт триггеров тейк-профита.
//
// Тейк-профит задаётся в долларах чистой прибыли. Цена срабатывания
// считается так, чтобы после вычета всех комиссий позиция закрылась
// с запрошенным результатом:
//
//	delta = (tpUsd + комиссии) / (lots * contractSize)
//	buy:  trigger = entry + delta
//	sell: trigger = entry - delta

// TriggerPrice возвращает цену срабатывания тейк-профита.
// Для позиции без тейк-профита возвращает 0.
func TriggerPrice(position *models.Position) float64 {
	if position.TakeProfit <= 0 {
		return 0
	}

	quantity := position.Lots * position.ContractSize
	if quantity <= 0 {
		return 0
	}

	delta := (position.TakeProfit + position.Fees()) / quantity
	if position.IsBuy() {
		return position.EntryPrice + delta
	}
	return position.EntryPrice - delta
}

// CheckTrigger проверяет котировку против триггера позиции.
// Возвращает цену закрытия и признак срабатывания.
//
// Закрытие происходит по стороне выхода (buy закрывается по bid,
// sell по ask) с допуском в один шаг цены: котировка, не дошедшая
// до триггера на один тик, уже считается исполнимой.
func CheckTrigger(position *models.Position, quote models.Quote) (float64, bool) {
	trigger := TriggerPrice(position)
	if trigger <= 0 {
		return 0, false
	}

	tick := utils.Tick(position.Digits)

	if position.IsBuy() {
		if quote.Bid+tick >= trigger {
			return utils.RoundToTick(quote.Bid, position.Digits), true
		}
		return 0, false
	}

	if quote.Ask-tick <= trigger {
		return utils.RoundToTick(quote.Ask, position.Digits), true
	}
	return 0, false
}
