package model

// User is an account created lazily on the first successful OAuth login.
//
// Email is the identity key: the users table has a UNIQUE constraint on it,
// so repeated logins with the same provider account always resolve to the
// same row. Name and Picture come from the provider's userinfo response and
// may be absent.
type User struct {
	ID      int64   `json:"id"      db:"id"`
	Email   string  `json:"email"   db:"email"`
	Name    *string `json:"name"    db:"name"`
	Picture *string `json:"picture" db:"picture"`
}
