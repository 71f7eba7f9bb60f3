// Package password — хеширование паролей через bcrypt: соль генерируется на каждый вызов
// и встроена в результат, сравнение constant-time внутри bcrypt. Восстановление пароля невозможно.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var ErrMismatch = errors.New("password mismatch")

// Hash возвращает bcrypt-хеш пароля (cost по умолчанию).
func Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(b), nil
}

// Verify сравнивает пароль с хешом. Несовпадение — ErrMismatch, прочее — ошибка хеша.
func Verify(hash, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		return fmt.Errorf("bcrypt compare: %w", err)
	}
	return nil
}
