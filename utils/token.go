package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"time"
)

// GenerateSessionToken returns a bearer token for a chat session. The token
// is the session's only credential, so it must be unguessable: 24 random
// bytes hex-encoded, with a timestamp prefix kept for log correlation.
func GenerateSessionToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "sess_" + strconv.FormatInt(time.Now().Unix(), 36) + hex.EncodeToString(b), nil
}

// GenerateTicketNumber returns a short human-readable ticket code built from
// the low-order digits of the current time plus a random suffix. The suffix
// keeps two tickets created in the same instant from colliding.
func GenerateTicketNumber() string {
	nanoPart := time.Now().UnixNano() % 1000000
	randPart := int64(100)
	if n, err := rand.Int(rand.Reader, big.NewInt(900)); err == nil {
		randPart = n.Int64() + 100
	}
	return fmt.Sprintf("TKT-%06d%03d", nanoPart, randPart)
}
