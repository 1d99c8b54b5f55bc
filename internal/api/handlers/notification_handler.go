package handlers

import (
	"net/http"
	"strconv"

	"margintrade/internal/models"
)

// NotificationServiceInterface - чтение и обслуживание журнала уведомлений
type NotificationServiceInterface interface {
	GetNotifications(limit int) ([]*models.Notification, error)
	GetAccountNotifications(accountID, limit int) ([]*models.Notification, error)
	CleanupOld(keep int) (int64, error)
}

// NotificationHandler отвечает за журнал уведомлений
//
// Endpoints:
// - GET /api/notifications - последние уведомления
// - GET /api/notifications?account_id=1 - уведомления одного счёта
// - GET /api/notifications?limit=50 - с ограничением количества
// - DELETE /api/notifications - обрезка журнала (admin)
//
// Назначение:
// Отдает журнал событий торгового ядра: закрытия позиций,
// срабатывания take-profit, ликвидации, ошибки.
type NotificationHandler struct {
	notificationService NotificationServiceInterface
}

// NewNotificationHandler создает новый NotificationHandler с внедрением зависимости
func NewNotificationHandler(notificationService NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// GetNotificationsResponse представляет ответ списка уведомлений
type GetNotificationsResponse struct {
	Notifications []*models.Notification `json:"notifications"`
	Total         int                    `json:"total"`
}

// GetNotifications возвращает последние уведомления (новые сверху)
//
// GET /api/notifications
//
// Query параметры:
// - account_id (int): только уведомления этого счёта
// - limit (int): количество записей (по умолчанию 100, максимум 500)
//
// HTTP коды:
// - 200 OK: массив уведомлений
// - 500 Internal Server Error: ошибка сервера
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if parsed, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && parsed > 0 {
		limit = parsed
	}

	var (
		notifications []*models.Notification
		err           error
	)
	if accountParam := r.URL.Query().Get("account_id"); accountParam != "" {
		accountID, convErr := strconv.Atoi(accountParam)
		if convErr != nil || accountID <= 0 {
			respondWithError(w, http.StatusBadRequest, "BAD_ACCOUNT_ID", "invalid account_id")
			return
		}
		notifications, err = h.notificationService.GetAccountNotifications(accountID, limit)
	} else {
		notifications, err = h.notificationService.GetNotifications(limit)
	}
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, GetNotificationsResponse{
		Notifications: notifications,
		Total:         len(notifications),
	})
}

// CleanupResponse представляет ответ обрезки журнала
type CleanupResponse struct {
	Deleted int64 `json:"deleted"`
}

// CleanupNotifications обрезает журнал до последних записей
//
// DELETE /api/notifications
//
// Query параметры:
// - keep (int): сколько последних записей оставить (по умолчанию 1000)
//
// HTTP коды:
// - 200 OK: количество удаленных записей
// - 500 Internal Server Error: ошибка при очистке
func (h *NotificationHandler) CleanupNotifications(w http.ResponseWriter, r *http.Request) {
	keep := 1000
	if parsed, err := strconv.Atoi(r.URL.Query().Get("keep")); err == nil && parsed >= 0 {
		keep = parsed
	}

	deleted, err := h.notificationService.CleanupOld(keep)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, CleanupResponse{Deleted: deleted})
}
