package protocol

// Reply codes. A REPLY with ok=false carries one of these.
const (
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"

	ErrWorldBusy    = "E_WORLD_BUSY"
	ErrWorldStopped = "E_WORLD_STOPPED"

	ErrBadRequest    = "E_BAD_REQUEST"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrConflict      = "E_CONFLICT"
	ErrInternal      = "E_INTERNAL"
)

var codeText = map[string]string{
	ErrProtoBadRequest: "frame failed schema validation",
	ErrProtoVersion:    "unsupported protocol version",
	ErrWorldBusy:       "simulation did not pick up the command in time",
	ErrWorldStopped:    "simulation loop has stopped",
	ErrBadRequest:      "bad command or arguments",
	ErrInvalidTarget:   "no such bot or location",
	ErrConflict:        "command does not apply to the active bot",
	ErrInternal:        "command failed",
}

// IsKnownCode reports whether code is empty or one of the reply codes.
func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := codeText[code]
	return ok
}

// Describe returns a short human readable meaning for code, or code itself.
func Describe(code string) string {
	if s, ok := codeText[code]; ok {
		return s
	}
	return code
}
