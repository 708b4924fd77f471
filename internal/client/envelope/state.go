package envelope

// State is a step of one of the two pipelines.
type State int

const (
	Idle State = iota

	// Sign-Encrypt-Upload.
	Signing
	Encrypting
	Uploaded

	// Fetch-Decrypt-Verify.
	Fetching
	Decrypting
	Splitting
	Verifying
	Valid
	Invalid

	Error
)

var stateNames = map[State]string{
	Idle:       "idle",
	Signing:    "signing",
	Encrypting: "encrypting",
	Uploaded:   "uploaded",
	Fetching:   "fetching",
	Decrypting: "decrypting",
	Splitting:  "splitting",
	Verifying:  "verifying",
	Valid:      "valid",
	Invalid:    "invalid",
	Error:      "error",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	switch s {
	case Uploaded, Valid, Invalid, Error:
		return true
	}
	return false
}

// Observer is told about every state transition, in order.
type Observer func(State)
