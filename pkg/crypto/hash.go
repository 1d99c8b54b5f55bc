package crypto

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Ошибки хеширования
var (
	ErrEmptySecret    = errors.New("secret cannot be empty")
	ErrSecretMismatch = errors.New("secret does not match hash")
	ErrSecretTooLong  = errors.New("secret exceeds maximum length of 72 bytes")
)

// DefaultCost - стоимость хеширования по умолчанию
// Более высокое значение = больше времени на хеширование = более безопасно
const DefaultCost = 12

// MaxSecretLength - максимальная длина секрета для bcrypt (72 байта)
const MaxSecretLength = 72

// HashSecret хеширует API-токен или пароль с использованием bcrypt.
// Соль генерируется автоматически.
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}

	// bcrypt ограничен 72 байтами
	if len(secret) > MaxSecretLength {
		return "", ErrSecretTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckSecret сравнивает секрет с bcrypt-хешем.
// Возвращает nil при совпадении, ErrSecretMismatch при расхождении.
func CheckSecret(secret, hash string) error {
	if secret == "" {
		return ErrEmptySecret
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrSecretMismatch
		}
		return err
	}
	return nil
}

// IsBcryptHash проверяет, похожа ли строка на bcrypt-хеш.
// Используется конфигурацией: ADMIN_TOKEN может быть задан открытым
// значением (dev) или хешем (prod).
func IsBcryptHash(s string) bool {
	if len(s) < 4 {
		return false
	}
	return s[0] == '$' && (s[1] == '2') && (s[2] == 'a' || s[2] == 'b' || s[2] == 'y')
}
