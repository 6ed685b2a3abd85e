// Package commands parses player chat commands into registry and script
// operations. Every command produces reply lines; lookup misses and bad
// arguments are reported in the reply, never as errors.
package commands

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"tickbot.dev/internal/bot"
	"tickbot.dev/internal/bot/scripts"
	"tickbot.dev/internal/botapi"
	"tickbot.dev/internal/protocol"
)

const tag = "@cya@[Bot] "

type Reply struct {
	OK    bool
	Lines []string
	// Code is a protocol error code when OK is false.
	Code string
}

func ok(lines ...string) Reply { return Reply{OK: true, Lines: lines} }

func fail(code string, lines ...string) Reply { return Reply{Code: code, Lines: lines} }

type Config struct {
	Registry *bot.Registry
	API      *botapi.API
	Env      *bot.Env
	Options  scripts.Options
	Log      *log.Logger
}

type Handler struct {
	reg  *bot.Registry
	api  *botapi.API
	env  *bot.Env
	opts scripts.Options
	log  *log.Logger

	// gatherers by lowercased task name, so botarea can reach the script
	// behind the active task.
	gatherers map[string]*scripts.Gatherer
}

func New(cfg Config) *Handler {
	return &Handler{
		reg:       cfg.Registry,
		api:       cfg.API,
		env:       cfg.Env,
		opts:      cfg.Options,
		log:       cfg.Log,
		gatherers: map[string]*scripts.Gatherer{},
	}
}

// Names lists the accepted command words.
func Names() []string {
	return []string{
		"bot", "botarea", "woodcut", "wc", "mine", "mining",
		"fish", "fishing", "prayer", "pray", "stopbot", "botoff",
	}
}

// Handle runs one command line. A leading "::" is optional.
func (h *Handler) Handle(text string) Reply {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(text), "::"))
	if len(fields) == 0 {
		return fail(protocol.ErrBadRequest, tag+"@red@Empty command.")
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	h.logf("command %q args=%v", cmd, args)

	switch cmd {
	case "bot":
		return h.botCommand(args)
	case "botarea":
		return h.botArea(args)
	case "woodcut", "wc":
		return h.woodcut(args)
	case "mine", "mining":
		p := scripts.Mining(arg(args, 0))
		return h.startGather(p, fmt.Sprintf("Started %s mining bot!", p.Type))
	case "fish", "fishing":
		p := scripts.Fishing(arg(args, 0))
		return h.startGather(p, fmt.Sprintf("Started %s fishing bot!", p.Type))
	case "prayer", "pray":
		return h.prayer()
	case "stopbot", "botoff":
		h.reg.StopAll()
		return ok(tag + "@whi@All bots stopped.")
	default:
		return fail(protocol.ErrBadRequest, tag+"@red@Unknown command: "+cmd)
	}
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func (h *Handler) botCommand(args []string) Reply {
	if len(args) == 0 {
		return ok(help()...)
	}
	switch strings.ToLower(args[0]) {
	case "list":
		return h.list()
	case "start":
		if len(args) < 2 {
			return fail(protocol.ErrBadRequest, tag+"@whi@Usage: ::bot start <name>")
		}
		name := strings.Join(args[1:], " ")
		if !h.reg.StartTask(name) {
			return fail(protocol.ErrInvalidTarget, tag+"@red@Bot not found: "+name)
		}
		return ok(tag + "@gre@Started bot: " + name)
	case "stop":
		if len(args) < 2 {
			t, stopped := h.reg.StopActive()
			if !stopped {
				return ok(tag + "@whi@No active bot to stop.")
			}
			return ok(tag + "@whi@Stopped active bot: " + t.Name())
		}
		name := strings.Join(args[1:], " ")
		if !h.reg.StopTask(name) {
			return fail(protocol.ErrInvalidTarget, tag+"@red@Bot not found or not running: "+name)
		}
		return ok(tag + "@whi@Stopped bot: " + name)
	case "pause":
		return h.pause(args[1:], false)
	case "resume":
		return h.pause(args[1:], true)
	case "status":
		return h.status()
	case "report":
		return ok(strings.Split(strings.TrimRight(h.reg.StatusReport(), "\n"), "\n")...)
	default:
		return ok(help()...)
	}
}

// pause toggles the active task, or pauses/resumes the named one.
func (h *Handler) pause(args []string, resume bool) Reply {
	if len(args) == 0 {
		t := h.reg.Active()
		if t == nil {
			return fail(protocol.ErrConflict, tag+"@whi@No active bot.")
		}
		if resume {
			t.Resume()
		} else {
			t.TogglePause()
		}
		return ok(fmt.Sprintf("%s@whi@Bot %s: %s", tag, pausedWord(t), t.Name()))
	}
	name := strings.Join(args, " ")
	done := h.reg.PauseTask
	if resume {
		done = h.reg.ResumeTask
	}
	if !done(name) {
		return fail(protocol.ErrInvalidTarget, tag+"@red@Bot not found or not running: "+name)
	}
	return ok(fmt.Sprintf("%s@whi@Bot %s: %s", tag, pausedWord(h.reg.Get(name)), h.reg.Get(name).Name()))
}

func pausedWord(t *bot.Task) string {
	if t.IsPaused() {
		return "paused"
	}
	return "resumed"
}

func stateColor(t *bot.Task) string {
	switch t.State() {
	case bot.StatePaused:
		return "@yel@PAUSED"
	case bot.StateRunning:
		return "@gre@RUNNING"
	default:
		return "@red@STOPPED"
	}
}

func (h *Handler) list() Reply {
	tasks := h.reg.All()
	if len(tasks) == 0 {
		return ok(tag + "@whi@No bots registered. Use ::woodcut, ::fish, or ::mine to start.")
	}
	lines := []string{"@cya@=== Registered Bots ==="}
	for _, t := range tasks {
		lines = append(lines, "@whi@- "+t.Name()+": "+stateColor(t))
	}
	return ok(lines...)
}

func (h *Handler) status() Reply {
	t := h.reg.Active()
	if t == nil {
		return ok(tag + "@whi@No active bot.")
	}
	return ok(
		"@cya@=== Bot Status ===",
		"@whi@Name: @gre@"+t.Name(),
		"@whi@Status: "+stateColor(t),
		"@whi@Runtime: @gre@"+t.RuntimeFormatted(),
		fmt.Sprintf("@whi@Iterations: @gre@%d", t.Iterations()),
	)
}

func help() []string {
	return []string{
		"@cya@=== Bot Commands ===",
		"@whi@::bot list - List registered bots",
		"@whi@::bot start/stop <name> - Start/stop a bot",
		"@whi@::bot pause [name] - Pause/resume active bot",
		"@whi@::bot resume [name] - Resume a paused bot",
		"@whi@::bot status - Show bot status",
		"@whi@::bot report - Show every bot",
		"@cya@=== Quick Start ===",
		"@whi@::woodcut [type] [location], ::fish [type], ::mine [type]",
		"@whi@::prayer - Bury bones",
		"@whi@::botarea <location> - Limit the gathering area",
		"@whi@::stopbot - Stop all bots",
	}
}

func (h *Handler) woodcut(args []string) Reply {
	p := scripts.Woodcutting(arg(args, 0))
	loc := strings.ToLower(arg(args, 1))
	if loc == "" {
		return h.startGather(p, fmt.Sprintf("Started %s woodcutting!", p.Type))
	}
	area, known := scripts.Location(loc)
	if !known {
		r := h.startGather(p, fmt.Sprintf("Started %s woodcutting!", p.Type))
		r.Lines = append([]string{tag + "@red@Unknown location: " + loc}, r.Lines...)
		return r
	}
	return h.startGather(p.WithArea(area), fmt.Sprintf("Started %s woodcutting at %s!", p.Type, loc))
}

// startGather replaces whatever is running with a fresh gathering task.
func (h *Handler) startGather(p scripts.GatherProfile, started string) Reply {
	h.reg.StopAll()
	task, g := scripts.NewGatherTask(h.env, h.api, p, h.opts)
	h.reg.Register(task)
	h.gatherers[strings.ToLower(task.Name())] = g
	h.reg.StartTask(task.Name())
	return ok(tag + "@gre@" + started)
}

func (h *Handler) prayer() Reply {
	h.reg.StopAll()
	task, _ := scripts.NewBuryTask(h.env, h.api, scripts.Prayer())
	h.reg.Register(task)
	delete(h.gatherers, strings.ToLower(task.Name()))
	h.reg.StartTask(task.Name())
	return ok(tag + "@gre@Started prayer bot! Will bury bones.")
}

// Gatherer returns the gathering script behind the named task, if any.
func (h *Handler) Gatherer(name string) *scripts.Gatherer {
	return h.gatherers[strings.ToLower(strings.TrimSpace(name))]
}

func (h *Handler) botArea(args []string) Reply {
	t := h.reg.Active()
	if t == nil {
		return fail(protocol.ErrConflict, tag+"@red@No active bot running.")
	}
	g := h.Gatherer(t.Name())
	if g == nil {
		return fail(protocol.ErrConflict, tag+"@red@This command only works with gathering bots.")
	}

	switch {
	case len(args) == 0:
		locs := lo.Keys(scripts.Locations)
		sort.Strings(locs)
		current := "@whi@Current area: Unbounded"
		if a := g.Profile().Area; a != nil {
			current = "@whi@Current area: " + areaString(*a)
		}
		return ok(
			tag+"@whi@Usage: ::botarea <location>",
			"@whi@Locations: "+strings.Join(locs, ", "),
			"@whi@Or coords: ::botarea <minX> <maxX> <minY> <maxY>",
			"@whi@Use ::botarea clear to remove bounds",
			current,
		)
	case len(args) == 1 && strings.EqualFold(args[0], "clear"):
		g.SetArea(nil)
		return ok(tag + "@red@Area bounds cleared.")
	case len(args) == 1:
		loc := strings.ToLower(args[0])
		a, known := scripts.Location(loc)
		if !known {
			return fail(protocol.ErrInvalidTarget, tag+"@red@Unknown location: "+loc)
		}
		g.SetArea(&a)
		return ok(tag + "@gre@Area set to: " + strings.ToUpper(loc))
	case len(args) < 4:
		return fail(protocol.ErrBadRequest, tag+"@red@Usage: ::botarea <location> or ::botarea <minX> <maxX> <minY> <maxY>")
	}

	var v [4]int
	for i := range v {
		n, err := strconv.Atoi(args[i])
		if err != nil {
			return fail(protocol.ErrBadRequest, tag+"@red@Invalid coordinates.")
		}
		v[i] = n
	}
	a := botapi.Area{MinX: v[0], MaxX: v[1], MinY: v[2], MaxY: v[3]}
	g.SetArea(&a)
	return ok(tag + "@gre@Area set: " + areaString(a))
}

func areaString(a botapi.Area) string {
	return fmt.Sprintf("%d-%d, %d-%d", a.MinX, a.MaxX, a.MinY, a.MaxY)
}

func (h *Handler) logf(format string, args ...any) {
	if h.log == nil {
		return
	}
	h.log.Printf("[Commands] "+format, args...)
}

// AuditEntry records one command and its outcome.
type AuditEntry struct {
	Time    time.Time `json:"time"`
	Session string    `json:"session,omitempty"`
	ID      string    `json:"id,omitempty"`
	Text    string    `json:"text"`
	OK      bool      `json:"ok"`
	Code    string    `json:"code,omitempty"`
	Lines   int       `json:"lines"`
}

func NewAuditEntry(at time.Time, session, id, text string, r Reply) AuditEntry {
	return AuditEntry{Time: at, Session: session, ID: id, Text: text, OK: r.OK, Code: r.Code, Lines: len(r.Lines)}
}
