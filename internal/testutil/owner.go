package testutil

// User is a minimal owner entity for tests.
type User struct {
	ID string
}

// OwnerType implements store.Owner.
func (u User) OwnerType() string { return "user" }

// OwnerID implements store.Owner.
func (u User) OwnerID() string { return u.ID }

// Post is a second owner type, used to check owner scoping.
type Post struct {
	ID string
}

// OwnerType implements store.Owner.
func (p Post) OwnerType() string { return "post" }

// OwnerID implements store.Owner.
func (p Post) OwnerID() string { return p.ID }
