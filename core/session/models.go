package session

import "context"

// Role conventions. The credential service owns the role vocabulary; these
// are the values it is known to hand out, not a closed set.
const (
	RoleUser    = "user"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Identity is the signed-in user as reconstructed from a credential response.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Session is the process-wide authentication state derived from the Store.
// Role mirrors Identity.Role; it is non-empty iff Identity is set.
type Session struct {
	Identity *Identity
	Role     string
	Loading  bool
}

func (s Session) Authenticated() bool {
	return s.Identity != nil
}

// Credentials is the wire shape of a login/signup response. The service
// answers either with a token (plus optional userId/role) or with an error
// message, on any HTTP status.
type Credentials struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Role   string `json:"role"`
	Error  string `json:"error"`
}

// CredentialService is the slice of the grading backend that issues tokens.
type CredentialService interface {
	Login(ctx context.Context, email, password string) (Credentials, error)
	Signup(ctx context.Context, email, password string) (Credentials, error)
}
