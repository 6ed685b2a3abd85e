package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tickbot.dev/internal/protocol"
)

var colorCode = regexp.MustCompile(`@[a-z]{3}@`)

func main() {
	var (
		url     = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name    = flag.String("name", "botctl", "client name")
		watch   = flag.Bool("watch", false, "stream chat and lifecycle events until interrupted")
		timeout = flag.Duration("timeout", 5*time.Second, "reply timeout")
		raw     = flag.Bool("raw", false, "keep chat color codes")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[botctl] ", log.LstdFlags|log.Lmicroseconds)
	text := strings.Join(flag.Args(), " ")
	if text == "" && !*watch {
		fmt.Fprintln(os.Stderr, "usage: botctl [-watch] [command...]   e.g. botctl bot status")
		os.Exit(2)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
		Capabilities: protocol.HelloCapabilities{
			Chat:     *watch,
			Events:   *watch,
			MaxQueue: 32,
		},
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(*timeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		logger.Fatalf("read WELCOME: %v", err)
	}
	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(msg, &welcome); err != nil || welcome.Type != protocol.TypeWelcome {
		logger.Fatalf("expected WELCOME, got %s", msg)
	}
	logger.Printf("WELCOME session=%s tick_rate=%d", welcome.SessionID, welcome.TickRateHz)

	clean := func(s string) string {
		if *raw {
			return s
		}
		return colorCode.ReplaceAllString(s, "")
	}

	id := ""
	if text != "" {
		id = uuid.NewString()
		cmd := protocol.CommandMsg{
			Type:            protocol.TypeCommand,
			ProtocolVersion: protocol.Version,
			ID:              id,
			Text:            text,
		}
		if err := conn.WriteJSON(cmd); err != nil {
			logger.Fatalf("send COMMAND: %v", err)
		}
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	exit := 0
	for {
		if *watch {
			_ = conn.SetReadDeadline(time.Time{})
		} else {
			_ = conn.SetReadDeadline(time.Now().Add(*timeout))
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if id != "" {
				logger.Printf("read: %v", err)
				exit = 1
			}
			break
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeReply:
			var r protocol.ReplyMsg
			if err := json.Unmarshal(msg, &r); err != nil || r.ID != id {
				continue
			}
			for _, line := range r.Lines {
				fmt.Println(clean(line))
			}
			if !r.OK {
				fmt.Fprintf(os.Stderr, "error: %s (%s)\n", r.Code, protocol.Describe(r.Code))
				exit = 1
			}
			id = ""

		case protocol.TypeMessage:
			var c protocol.ChatMsg
			if err := json.Unmarshal(msg, &c); err != nil {
				continue
			}
			fmt.Println(clean(c.Text))

		case protocol.TypeEvent:
			var e protocol.EventMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			ev := e.Event
			line := fmt.Sprintf("%s %-10s %s", time.UnixMilli(ev.TimeMs).Format("15:04:05.000"), ev.Kind, ev.Task)
			if ev.Reason != "" {
				line += " (" + ev.Reason + ")"
			}
			fmt.Println(line)
		}
		if id == "" && !*watch {
			break
		}
	}
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	os.Exit(exit)
}
