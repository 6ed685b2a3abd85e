package bot

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Registry stores tasks by case-insensitive name and keeps at most one of
// them active. Starting a task through the registry stops the previously
// active one first, since every task drives the same actor.
type Registry struct {
	tasks  map[string]*Task
	active *Task
	log    *log.Logger
	sink   EventSink

	// orphans are running tasks displaced by Register.
	orphans []*Task
}

func NewRegistry(logger *log.Logger, sink EventSink) *Registry {
	return &Registry{tasks: map[string]*Task{}, log: logger, sink: sink}
}

func key(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// Register inserts t, replacing any task with the same name. The replaced
// task is left as it was; if it was running it keeps running unreachable by
// name until stopped through the active slot or StopAll.
func (r *Registry) Register(t *Task) {
	if t == nil {
		return
	}
	r.pruneOrphans()
	k := key(t.Name())
	if prev, ok := r.tasks[k]; ok && prev != t && prev.IsRunning() {
		r.logf("replacing running bot %q without stopping it", prev.Name())
		r.orphans = append(r.orphans, prev)
	}
	r.tasks[k] = t
	r.emit(t, EventRegister)
	r.logf("Registered bot: %s", t.Name())
}

// Unregister removes a task, stopping it first if it is running.
func (r *Registry) Unregister(name string) bool {
	k := key(name)
	t, ok := r.tasks[k]
	if !ok {
		return false
	}
	delete(r.tasks, k)
	if t.IsRunning() {
		t.Stop()
	}
	if r.active == t {
		r.active = nil
	}
	r.emit(t, EventUnregister)
	r.logf("Unregistered bot: %s", t.Name())
	return true
}

func (r *Registry) Get(name string) *Task { return r.tasks[key(name)] }

func (r *Registry) Has(name string) bool {
	_, ok := r.tasks[key(name)]
	return ok
}

// Names returns the registered keys, sorted.
func (r *Registry) Names() []string {
	names := lo.Keys(r.tasks)
	sort.Strings(names)
	return names
}

// All returns the registered tasks sorted by key.
func (r *Registry) All() []*Task {
	return lo.Map(r.Names(), func(k string, _ int) *Task { return r.tasks[k] })
}

// Active is the task currently allowed to drive the actor, or nil. A task
// that stopped on its own is no longer active.
func (r *Registry) Active() *Task {
	r.pruneOrphans()
	if r.active != nil && !r.active.IsRunning() {
		r.active = nil
	}
	return r.active
}

// StartTask stops the active task, whichever it is, then starts the named one.
func (r *Registry) StartTask(name string) bool {
	t := r.Get(name)
	if t == nil {
		r.logf("Bot not found: %s", name)
		return false
	}
	if r.active != nil && r.active.IsRunning() {
		r.active.Stop()
	}
	r.active = t
	t.Start()
	if !t.IsRunning() {
		r.active = nil
	}
	return true
}

// StopTask stops the named task. It reports false when the name is unknown
// or the task was not running.
func (r *Registry) StopTask(name string) bool {
	t := r.Get(name)
	if t == nil {
		r.logf("Bot not found: %s", name)
		return false
	}
	if !t.IsRunning() {
		return false
	}
	t.Stop()
	if r.active == t {
		r.active = nil
	}
	return true
}

// StopActive stops whatever is active and returns it.
func (r *Registry) StopActive() (*Task, bool) {
	t := r.Active()
	if t == nil {
		return nil, false
	}
	t.Stop()
	r.active = nil
	return t, true
}

// StopAll stops every registered task, plus any replaced-but-running ones.
func (r *Registry) StopAll() {
	for _, t := range r.All() {
		if t.IsRunning() {
			t.Stop()
		}
	}
	for _, t := range r.orphans {
		t.Stop()
	}
	r.orphans = nil
	r.active = nil
}

// pruneOrphans drops displaced tasks that have since stopped.
func (r *Registry) pruneOrphans() {
	if len(r.orphans) == 0 {
		return
	}
	r.orphans = lo.Filter(r.orphans, func(t *Task, _ int) bool { return t.IsRunning() })
}

func (r *Registry) PauseTask(name string) bool {
	return r.withRunning(name, (*Task).Pause)
}

func (r *Registry) ResumeTask(name string) bool {
	return r.withRunning(name, (*Task).Resume)
}

func (r *Registry) TogglePauseTask(name string) bool {
	return r.withRunning(name, (*Task).TogglePause)
}

func (r *Registry) withRunning(name string, fn func(*Task)) bool {
	t := r.Get(name)
	if t == nil || !t.IsRunning() {
		return false
	}
	fn(t)
	return true
}

type State string

const (
	StateRunning State = "RUNNING"
	StatePaused  State = "PAUSED"
	StateStopped State = "STOPPED"
)

func (t *Task) State() State {
	switch {
	case !t.running:
		return StateStopped
	case t.paused:
		return StatePaused
	default:
		return StateRunning
	}
}

type TaskStatus struct {
	Name       string `json:"name"`
	State      State  `json:"state"`
	Runtime    string `json:"runtime,omitempty"`
	Iterations uint64 `json:"iterations"`
	Active     bool   `json:"active"`
}

func (r *Registry) Statuses() []TaskStatus {
	active := r.Active()
	out := make([]TaskStatus, 0, len(r.tasks))
	for _, t := range r.All() {
		st := TaskStatus{Name: t.Name(), State: t.State(), Iterations: t.Iterations(), Active: t == active}
		if t.IsRunning() {
			st.Runtime = t.RuntimeFormatted()
		}
		out = append(out, st)
	}
	return out
}

// StatusReport renders one line per task plus the active task's name.
func (r *Registry) StatusReport() string {
	var sb strings.Builder
	sb.WriteString("=== Bot Status Report ===\n")
	statuses := r.Statuses()
	if len(statuses) == 0 {
		sb.WriteString("No bots registered.\n")
	}
	for _, st := range statuses {
		fmt.Fprintf(&sb, "- %s: %s", st.Name, st.State)
		if st.State != StateStopped {
			fmt.Fprintf(&sb, " (Runtime: %s, Iterations: %d)", st.Runtime, st.Iterations)
		}
		sb.WriteString("\n")
	}
	if a := r.Active(); a != nil {
		sb.WriteString("\nActive Bot: ")
		sb.WriteString(a.Name())
	}
	return sb.String()
}

func (r *Registry) emit(t *Task, kind EventKind) {
	if r.sink == nil {
		return
	}
	r.sink.Record(Event{Time: t.env.now(), Task: t.Name(), RunID: t.RunID(), Kind: kind, Iterations: t.Iterations()})
}

func (r *Registry) logf(format string, args ...any) {
	if r.log == nil {
		return
	}
	r.log.Printf("[BotManager] "+format, args...)
}
