package storage

// credentialFile is the on-disk document. It holds exactly one key.
type credentialFile struct {
	Token string `json:"jwtToken"`
}
