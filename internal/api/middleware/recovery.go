package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"margintrade/pkg/utils"
)

// Recovery - middleware для восстановления после паники в handlers
//
// Назначение:
// Перехватывает panic в HTTP handlers и предотвращает падение всего сервера.
// Логирует сообщение об ошибке и stack trace, возвращает клиенту 500.
// Последующие запросы продолжают обрабатываться.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				utils.Error("panic in http handler",
					utils.String("method", r.Method),
					utils.String("path", r.URL.Path),
					utils.String("panic", fmt.Sprintf("%v", err)),
					utils.String("stack", string(debug.Stack())),
				)

				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
