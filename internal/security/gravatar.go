package security

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
)

// AvatarURL derives a gravatar address from an email. Pure function: the
// same email always yields the same URL, no network involved.
func AvatarURL(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	sum := md5.Sum([]byte(normalized))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s?d=identicon", hex.EncodeToString(sum[:]))
}
