package utils

import (
	"crypto/rand"
	"strings"
	"unicode"
)

// inviteAlphabet is the character set for invitation codes: uppercase
// letters and digits, a 36^n space for an n-character code.
const inviteAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// maxUnbiasedByte is the largest multiple of the alphabet size that fits
// in a byte; random bytes at or above it are rejected so every alphabet
// character is equally likely.
const maxUnbiasedByte = byte(256 / len(inviteAlphabet) * len(inviteAlphabet)) // 252

// NewInviteCode generates a random invitation code of the given length
// from the uppercase alphanumeric alphabet.  The underlying call to
// crypto/rand ensures cryptographically secure random bytes.  Callers
// must still verify uniqueness among pending invitations before insert;
// a collision would let one invitee redeem another's invitation.
func NewInviteCode(length int) (string, error) {
	out := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= maxUnbiasedByte {
				continue
			}
			out = append(out, inviteAlphabet[int(b)%len(inviteAlphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}

// SanitizeText normalizes user-supplied free text before it is stored:
// control characters are dropped, surrounding whitespace is trimmed and
// the result is capped at maxLen runes.  Used for request messages,
// denial reasons, personal messages and unsync reasons.
func SanitizeText(raw string, maxLen int) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsControl(r) && r != '\n' {
			continue
		}
		b.WriteRune(r)
	}
	s := strings.TrimSpace(b.String())
	runes := []rune(s)
	if maxLen > 0 && len(runes) > maxLen {
		s = string(runes[:maxLen])
	}
	return s
}
