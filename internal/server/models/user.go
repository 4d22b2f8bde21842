package models

// User is an account row. The server stores only the salt and a sha256
// verifier of the derived master key; it never sees a password or a key.
type User struct {
	ID       string
	UserName string
	Salt     []byte
	Verifier []byte
}
