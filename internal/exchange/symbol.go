package exchange

import "strings"

// NormalizeSymbol приводит любое клиентское написание символа к виду,
// принимаемому апстримом.
//
// Правила:
// - регистр не важен: "btcusdt" -> "BTCUSDT"
// - разделитель "/" убирается: "BTC/USDT" -> "BTCUSDT"
// - хвостовой "USD" отображается в "USDT": "BTCUSD" -> "BTCUSDT"
//
// Примеры:
//   - "btc/usd"  -> "BTCUSDT"
//   - "EURUSD"   -> "EURUSDT"
//   - "ETHUSDT"  -> "ETHUSDT"
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.ReplaceAll(s, "/", "")
	if strings.HasSuffix(s, "USD") {
		s += "T"
	}
	return s
}

// StreamTopic возвращает топик стрима top-of-book для символа.
// Формат апстрима: "<symbol-lowercase>@bookTicker".
func StreamTopic(symbol string) string {
	return strings.ToLower(NormalizeSymbol(symbol)) + "@bookTicker"
}
