package domain

// CredentialStore holds at most one opaque bearer credential. The value is
// never inspected, only forwarded.
type CredentialStore interface {
	Store(token string) error

	// Read reports ok=false when nothing is stored.
	Read() (token string, ok bool, err error)

	Clear() error
}
