package domain

// Identity is the authenticated principal carried by a bearer token.
type Identity struct {
	ID       string
	Username string
}
