package models

// Phase is the Session Manager's lifecycle state.
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseLoading       Phase = "loading"
	PhaseAuthenticated Phase = "authenticated"
	PhaseAnonymous     Phase = "anonymous"
)

func (p Phase) String() string { return string(p) }

// Identity is the subject decoded from the credential.
type Identity struct {
	Username string
}

// Session is the derived authentication state.
//
// Authenticated is always Identity != nil.
type Session struct {
	Phase         Phase
	Identity      *Identity
	Authenticated bool
	Loading       bool
	Error         string
}

// Username returns the identity's name or "" when anonymous.
func (s Session) Username() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.Username
}
