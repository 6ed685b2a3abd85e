package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	ClientName      string            `json:"client_name,omitempty"`
	Capabilities    HelloCapabilities `json:"capabilities,omitempty"`
}

type HelloCapabilities struct {
	// Chat asks for player chat as MESSAGE frames.
	Chat bool `json:"chat,omitempty"`
	// Events asks for bot lifecycle events as EVENT frames.
	Events   bool `json:"events,omitempty"`
	MaxQueue int  `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	SessionID       string   `json:"session_id"`
	TickRateHz      int      `json:"tick_rate_hz"`
	WindowSize      int      `json:"window_size"`
	Commands        []string `json:"commands"`
	CatalogsDigest  string   `json:"catalogs_digest,omitempty"`
}

// COMMAND (client -> server)
type CommandMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Text            string `json:"text"`
}

// REPLY (server -> client), one per COMMAND.
type ReplyMsg struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version"`
	ID              string   `json:"id"`
	OK              bool     `json:"ok"`
	Lines           []string `json:"lines"`
	Code            string   `json:"code,omitempty"`
}

// MESSAGE (server -> client): text shown to the player in-game.
type ChatMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Text            string `json:"text"`
}

// EVENT (server -> client)
type EventMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Event           Event  `json:"event"`
}

type Event struct {
	TimeMs     int64  `json:"time_ms"`
	Task       string `json:"task"`
	RunID      string `json:"run_id,omitempty"`
	Kind       string `json:"kind"`
	Reason     string `json:"reason,omitempty"`
	Iterations uint64 `json:"iterations"`
	RuntimeMs  int64  `json:"runtime_ms"`
}

func NewReply(id string, ok bool, lines []string, code string) ReplyMsg {
	if lines == nil {
		lines = []string{}
	}
	return ReplyMsg{Type: TypeReply, ProtocolVersion: Version, ID: id, OK: ok, Lines: lines, Code: code}
}

func NewChat(text string) ChatMsg {
	return ChatMsg{Type: TypeMessage, ProtocolVersion: Version, Text: text}
}
