package domain

// Role is the dashboard audience a user belongs to. The server may introduce
// roles this client does not know about; they are kept verbatim.
type Role string

const (
	RolePatient      Role = "patient"
	RoleMantelzorger Role = "mantelzorger"
	RoleZorgverlener Role = "zorgverlener"
)

// UserRecord is the identity returned by the login and "who am I" endpoints.
// It is replaced wholesale on every refetch and never mutated in place.
type UserRecord struct {
	Username string `json:"username" bson:"username"`
	Role     Role   `json:"role" bson:"role"`
}

// IsZero reports whether the record carries no identity.
func (u UserRecord) IsZero() bool {
	return u.Username == ""
}

// Credentials is the durable token+user pair mirrored to the credential store.
type Credentials struct {
	Token string
	User  UserRecord
}

// Valid reports whether both halves of the pair are present.
func (c Credentials) Valid() bool {
	return c.Token != "" && !c.User.IsZero()
}
