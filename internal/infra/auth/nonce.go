package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
)

var ErrInvalidNonce = errors.New("invalid or expired nonce")

// NonceTick: половина срока жизни nonce: принимаем текущий и предыдущий тик.
const NonceTick = 12 * time.Hour

// NonceManager выдает одноразовые по смыслу (но не по хранению) токены,
// привязанные к пользователю и действию. Состояния не держит.
type NonceManager struct {
	secret []byte
	now    func() time.Time
}

func NewNonceManager(secret string) *NonceManager {
	return &NonceManager{secret: []byte(secret), now: time.Now}
}

func (m *NonceManager) tick(t time.Time) int64 {
	return t.Unix() / int64(NonceTick/time.Second)
}

func (m *NonceManager) sign(tick int64, userID, action string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(strconv.FormatInt(tick, 10)))
	mac.Write([]byte{0})
	mac.Write([]byte(userID))
	mac.Write([]byte{0})
	mac.Write([]byte(action))
	// 10 байт достаточно для nonce формы
	return hex.EncodeToString(mac.Sum(nil)[:10])
}

// Create возвращает nonce для текущего тика.
func (m *NonceManager) Create(userID, action string) string {
	return m.sign(m.tick(m.now()), userID, action)
}

// Verify принимает nonce текущего или предыдущего тика.
func (m *NonceManager) Verify(nonce, userID, action string) error {
	if nonce == "" {
		return ErrInvalidNonce
	}
	cur := m.tick(m.now())
	for _, t := range []int64{cur, cur - 1} {
		if hmac.Equal([]byte(nonce), []byte(m.sign(t, userID, action))) {
			return nil
		}
	}
	return ErrInvalidNonce
}
