package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tickbot.dev/internal/bot"
	"tickbot.dev/internal/commands"
	"tickbot.dev/internal/protocol"
	"tickbot.dev/internal/sim/world"
)

// Commander runs one chat command. Handle is called on the simulation
// goroutine.
type Commander interface {
	Handle(text string) commands.Reply
}

type Options struct {
	// ExecTimeout bounds how long a command waits for the simulation loop.
	ExecTimeout time.Duration
	// ReadTimeout drops a session that sends nothing, not even a pong, for
	// this long. PingInterval must stay below it.
	ReadTimeout  time.Duration
	PingInterval time.Duration
	// Audit, if set, sees every executed command. It is called from the
	// connection's reader goroutine.
	Audit func(commands.AuditEntry)
}

type Server struct {
	world *world.World
	cmds  Commander
	log   *log.Logger
	opts  Options

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	id     string
	name   string
	out    chan []byte
	events bool
}

func NewServer(w *world.World, cmds Commander, opts Options, logger *log.Logger) *Server {
	if opts.ExecTimeout <= 0 {
		opts.ExecTimeout = 2 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 60 * time.Second
	}
	if opts.PingInterval <= 0 || opts.PingInterval >= opts.ReadTimeout {
		opts.PingInterval = opts.ReadTimeout * 2 / 5
	}
	s := &Server{
		world: w,
		cmds:  cmds,
		log:   logger,
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		sessions: map[string]*session{},
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess, chat := s.handshake(conn)
		if sess == nil {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		s.addSession(sess)
		defer s.removeSession(sess.id)

		if chat {
			lines, unsubscribe := s.world.Subscribe(cap(sess.out))
			defer unsubscribe()
			go s.forwardChat(ctx, sess, lines)
		}

		readTimeout, pingInterval := s.opts.ReadTimeout, s.opts.PingInterval
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(readTimeout))
		})

		// Writer goroutine. Pings keep idle watchers alive; clients answer
		// them from inside their own read loop.
		go func() {
			ping := time.NewTicker(pingInterval)
			defer ping.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ping.C:
					if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
						cancel()
						return
					}
				case b, ok := <-sess.out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			s.handleFrame(ctx, sess, msg)
		}
		s.logf("session %s (%s) closed", sess.id, sess.name)
	}
}

func (s *Server) handshake(conn *websocket.Conn) (sess *session, chat bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return nil, false
	}
	if err := protocol.Validate(msg); err != nil {
		closeWith(conn, "bad HELLO")
		return nil, false
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil, false
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return nil, false
	}
	if strings.TrimSpace(hello.ClientName) == "" {
		hello.ClientName = "client"
	}

	maxQ := hello.Capabilities.MaxQueue
	if maxQ <= 0 {
		maxQ = 16
	}
	if maxQ > 64 {
		maxQ = 64
	}
	sess = &session{
		id:     uuid.NewString(),
		name:   hello.ClientName,
		out:    make(chan []byte, maxQ),
		events: hello.Capabilities.Events,
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sess.id,
		TickRateHz:      s.world.TickRateHz(),
		WindowSize:      s.world.Grid().Size(),
		Commands:        commands.Names(),
		CatalogsDigest:  s.world.Catalogs().Digest,
	}
	if err := writeJSON(conn, welcome); err != nil {
		return nil, false
	}
	s.logf("session %s (%s) opened chat=%v events=%v", sess.id, sess.name, hello.Capabilities.Chat, sess.events)
	return sess, hello.Capabilities.Chat
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func (s *Server) handleFrame(ctx context.Context, sess *session, msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		s.send(ctx, sess, protocol.NewReply("", false, []string{"bad json"}, protocol.ErrProtoBadRequest))
		return
	}
	if base.Type != protocol.TypeCommand {
		return
	}
	// Best effort, so rejections can still echo the id.
	var cmd protocol.CommandMsg
	_ = json.Unmarshal(msg, &cmd)

	if err := protocol.ValidateCommand(msg); err != nil {
		s.send(ctx, sess, protocol.NewReply(cmd.ID, false, []string{err.Error()}, protocol.ErrProtoBadRequest))
		return
	}
	if cmd.ProtocolVersion != protocol.Version {
		s.send(ctx, sess, protocol.NewReply(cmd.ID, false, []string{"unsupported protocol_version " + cmd.ProtocolVersion}, protocol.ErrProtoVersion))
		return
	}
	r := s.Run(ctx, cmd.Text)
	if !r.OK && !protocol.IsKnownCode(r.Code) {
		s.logf("command %q: unknown reply code %q", cmd.Text, r.Code)
		r.Code = protocol.ErrInternal
	}
	if s.opts.Audit != nil {
		s.opts.Audit(commands.NewAuditEntry(time.Now(), sess.id, cmd.ID, cmd.Text, r))
	}
	s.send(ctx, sess, protocol.NewReply(cmd.ID, r.OK, r.Lines, r.Code))
}

// Run executes one command on the simulation goroutine. A command still
// queued when the caller gives up is skipped, so a busy reply means it never
// ran.
func (s *Server) Run(ctx context.Context, text string) commands.Reply {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ExecTimeout)
	defer cancel()

	res := make(chan commands.Reply, 1)
	err := s.world.Exec(ctx, func(*world.World) {
		if ctx.Err() != nil {
			return
		}
		res <- s.cmds.Handle(text)
	})
	switch {
	case err == nil:
		select {
		case r := <-res:
			return r
		default:
			return busyReply()
		}
	case errors.Is(err, world.ErrStopped):
		return commands.Reply{Code: protocol.ErrWorldStopped, Lines: []string{"world stopped"}}
	case errors.Is(err, context.DeadlineExceeded):
		return busyReply()
	default:
		s.logf("command %q: %v", text, err)
		return commands.Reply{Code: protocol.ErrInternal, Lines: []string{err.Error()}}
	}
}

func busyReply() commands.Reply {
	return commands.Reply{Code: protocol.ErrWorldBusy, Lines: []string{"world busy"}}
}

// send queues v and waits for room; replies must not be dropped.
func (s *Server) send(ctx context.Context, sess *session, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case sess.out <- b:
	case <-ctx.Done():
	}
}

// trySend queues v unless the session is backed up.
func trySend(sess *session, b []byte) bool {
	select {
	case sess.out <- b:
		return true
	default:
		return false
	}
}

func (s *Server) forwardChat(ctx context.Context, sess *session, lines <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-lines:
			b, err := json.Marshal(protocol.NewChat(text))
			if err != nil {
				continue
			}
			if !trySend(sess, b) {
				s.logf("session %s: dropping chat line", sess.id)
			}
		}
	}
}

// Record broadcasts a lifecycle event to sessions that asked for events. It
// runs on the simulation goroutine and never blocks.
func (s *Server) Record(e bot.Event) {
	b, err := json.Marshal(protocol.EventMsg{
		Type:            protocol.TypeEvent,
		ProtocolVersion: protocol.Version,
		Event: protocol.Event{
			TimeMs:     e.Time.UnixMilli(),
			Task:       e.Task,
			RunID:      e.RunID,
			Kind:       string(e.Kind),
			Reason:     e.Reason,
			Iterations: e.Iterations,
			RuntimeMs:  e.RuntimeMs,
		},
	})
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.events && !trySend(sess, b) {
			s.logf("session %s: dropping event", sess.id)
		}
	}
}

var _ bot.EventSink = (*Server)(nil)

// Sessions returns the number of connected clients.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) addSession(sess *session) {
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
}

func (s *Server) removeSession(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Server) logf(format string, args ...any) {
	if s.log == nil {
		return
	}
	s.log.Printf("[ws] "+format, args...)
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
