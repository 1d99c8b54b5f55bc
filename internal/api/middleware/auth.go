package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"margintrade/pkg/crypto"
)

type contextKey string

// UserIDKey - ключ context для ID пользователя текущего запроса
const UserIDKey contextKey = "user_id"

// AdminAuth - middleware для защиты административных endpoints
//
// Назначение:
// Защищает операции, недоступные обычным пользователям
// (принудительная ликвидация, очистка журналов).
//
// Конфигурация:
// - token: значение ADMIN_TOKEN из конфигурации; может быть задано
//   как открытым текстом, так и bcrypt-хэшем
// - пустой token отключает административные endpoints целиком (403)
//
// Безопасность:
// - constant-time сравнение для открытого токена
// - bcrypt.CompareHashAndPassword для хэшированного
func AdminAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				http.Error(w, "Admin endpoints disabled. Set ADMIN_TOKEN.", http.StatusForbidden)
				return
			}

			presented := bearerToken(r)
			if presented == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !tokenMatches(token, presented) {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// tokenMatches сравнивает предъявленный токен с настроенным
func tokenMatches(configured, presented string) bool {
	if crypto.IsBcryptHash(configured) {
		return crypto.CheckSecret(presented, configured) == nil
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(presented)) == 1
}

// bearerToken извлекает токен из заголовка Authorization: Bearer <token>
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireUser - middleware, требующий идентификацию пользователя
//
// Пользователь передается заголовком X-User-ID. Полноценная система
// аутентификации вне рамок сервиса: идентификацию выполняет внешний
// шлюз, сервис доверяет заголовку внутри периметра.
//
// ID добавляется в context запроса и извлекается через UserIDFromContext.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-User-ID")
		if raw == "" {
			http.Error(w, "Missing X-User-ID header", http.StatusUnauthorized)
			return
		}

		userID, err := strconv.Atoi(raw)
		if err != nil || userID <= 0 {
			http.Error(w, "Invalid X-User-ID header", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext возвращает ID пользователя, установленный RequireUser
func UserIDFromContext(ctx context.Context) (int, bool) {
	userID, ok := ctx.Value(UserIDKey).(int)
	return userID, ok
}
