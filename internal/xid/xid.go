package xid

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

const orderAlphabet = "1234567890ABCDEFGHJKLMNPQRSTUVWXYZ"

func New(prefix string) string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%s", prefix, id.String())
}

// OrderNumber returns a human-readable order number such as ORD-7K2M9Q.
// Uniqueness is enforced by the store; callers regenerate on collision.
func OrderNumber() string {
	var b strings.Builder
	b.WriteString("ORD-")
	max := big.NewInt(int64(len(orderAlphabet)))
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			b.WriteByte(orderAlphabet[time.Now().UnixNano()%int64(len(orderAlphabet))])
			continue
		}
		b.WriteByte(orderAlphabet[n.Int64()])
	}
	return b.String()
}
