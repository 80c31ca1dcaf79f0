// Package signature проверяет подлинность платёжных уведомлений (IPN).
// Провайдер подписывает уведомление как HMAC-SHA256 от конкатенации
// суммы и идентификатора заказа, hex в верхнем регистре.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Sign вычисляет ожидаемую подпись для суммы и идентификатора.
// Сумма берётся в том строковом виде, в котором её прислал провайдер.
func Sign(amount, identifier string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(amount + identifier))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

// Verify сравнивает присланную подпись с ожидаемой. Сравнение регистронезависимое
// и выполняется за константное время, чтобы исключить тайминг-атаки.
// На любой некорректный вход возвращает false, никогда не паникует.
func Verify(amount, identifier, sig string, secret []byte) bool {
	if amount == "" || identifier == "" || sig == "" || len(secret) == 0 {
		return false
	}
	expected := Sign(amount, identifier, secret)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToUpper(sig))) == 1
}
