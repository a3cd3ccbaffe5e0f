package domain

// Phase names the variant a session is in
type Phase string

const (
	PhaseUnauthenticated Phase = "unauthenticated"
	PhaseContextLoading  Phase = "context_loading"
	PhaseUnauthorized    Phase = "unauthorized"
	PhaseAuthorized      Phase = "authorized"
)

// State is the form session state. Only the variants below implement it, so a
// loaded context without a token or fields without an authorization cannot exist.
type State interface {
	Phase() Phase
	isState()
}

// Unauthenticated holds nothing: the user has not signed in
type Unauthenticated struct{}

// ContextLoading holds a token whose context has not been received yet
type ContextLoading struct {
	Token string
}

// Unauthorized holds a context the backend refused
type Unauthorized struct {
	Token   string
	Context *Context
}

// Authorized holds an accepted context and one field per service
type Authorized struct {
	Token   string
	Context *Context
	Fields  map[string]FieldState
}

func (Unauthenticated) Phase() Phase { return PhaseUnauthenticated }
func (ContextLoading) Phase() Phase  { return PhaseContextLoading }
func (Unauthorized) Phase() Phase    { return PhaseUnauthorized }
func (Authorized) Phase() Phase      { return PhaseAuthorized }

func (Unauthenticated) isState() {}
func (ContextLoading) isState()  {}
func (Unauthorized) isState()    {}
func (Authorized) isState()      {}

// TokenOf returns the identity token carried by a state, if any
func TokenOf(s State) string {
	switch st := s.(type) {
	case ContextLoading:
		return st.Token
	case Unauthorized:
		return st.Token
	case Authorized:
		return st.Token
	}
	return ""
}

// ContextOf returns the loaded context carried by a state, if any
func ContextOf(s State) *Context {
	switch st := s.(type) {
	case Unauthorized:
		return st.Context
	case Authorized:
		return st.Context
	}
	return nil
}

// ResetFields builds a fresh field map: amount zero, untouched, one per service
func ResetFields(services []Service) map[string]FieldState {
	fields := make(map[string]FieldState, len(services))
	for _, s := range services {
		fields[s.ServiceID] = FieldState{Amount: ZeroAmount()}
	}
	return fields
}

// CloneFields copies a field map, including the filledAt pointers
func CloneFields(in map[string]FieldState) map[string]FieldState {
	out := make(map[string]FieldState, len(in))
	for id, f := range in {
		if f.FilledAt != nil {
			at := *f.FilledAt
			f.FilledAt = &at
		}
		out[id] = f
	}
	return out
}
