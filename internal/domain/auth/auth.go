// Package auth matches dashboard logins against the users file.
package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/okian/nutrimon/internal/domain/model"
)

// Authenticate reports whether username and password match a user row.
// Both sides are whitespace-trimmed before an exact comparison.
func Authenticate(users []model.UserRecord, username, password string) bool {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" {
		return false
	}
	for _, u := range users {
		if strings.TrimSpace(u.Username) != username {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(u.Password)), []byte(password)) == 1 {
			return true
		}
	}
	return false
}
