package core

// Identity identifies the author of store transactions. Every mutation of the
// metadata store is a Git commit signed with this identity.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
