package testutil

import (
	"crypto/md5"
	"encoding/hex"
)

// PasswordHash computes the stored salted password hash for seeding
// accounts: md5 of the hex md5 of the password, concatenated with the salt.
func PasswordHash(password, salt string) string {
	inner := md5.Sum([]byte(password))
	outer := md5.Sum([]byte(hex.EncodeToString(inner[:]) + salt))
	return hex.EncodeToString(outer[:])
}
