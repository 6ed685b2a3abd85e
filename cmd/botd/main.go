package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"tickbot.dev/internal/bot"
	"tickbot.dev/internal/bot/scripts"
	"tickbot.dev/internal/botapi"
	"tickbot.dev/internal/commands"
	"tickbot.dev/internal/persistence/indexdb"
	persistlog "tickbot.dev/internal/persistence/log"
	"tickbot.dev/internal/sim/catalogs"
	"tickbot.dev/internal/sim/tuning"
	"tickbot.dev/internal/sim/world"
	"tickbot.dev/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "", "catalog directory (default: built-in catalogs)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml if present)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite run index")
		runMode    = flag.Bool("run", false, "walk with run enabled")
		autoRest   = flag.Bool("auto_rest", false, "reset fatigue instead of sleeping")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[botd] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := loadCatalogs(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	tune, err := loadTuning(*tuningPath, *configDir)
	if err != nil {
		logger.Fatalf("load tuning: %v", err)
	}

	unlock, err := lockDataDir(*dataDir)
	if err != nil {
		logger.Fatalf("data dir: %v", err)
	}
	defer unlock()

	w, err := world.New(world.ConfigFromTuning(tune), cats, nil, logger)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index", "bots.sqlite"))
		if err != nil {
			logger.Fatalf("open sqlite: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(cats, tune); err != nil {
			logger.Printf("sqlite catalogs: %v", err)
		}
	}

	events := persistlog.NewEventLogger(*dataDir)
	defer func() {
		if err := events.Err(); err != nil {
			logger.Printf("event log: %v", err)
		}
		_ = events.Close()
	}()
	audit := persistlog.NewAuditLogger(*dataDir)
	defer audit.Close()

	// The ws server is both a command transport and an event sink, so the
	// handler it calls is bound after the registry exists.
	var handler *commands.Handler
	wsSrv := ws.NewServer(w, commanderFunc(func(text string) commands.Reply {
		return handler.Handle(text)
	}), ws.Options{
		Audit: func(e commands.AuditEntry) {
			if err := audit.WriteAudit(e); err != nil {
				logger.Printf("audit log: %v", err)
			}
			_ = idx.WriteAudit(e)
		},
	}, logger)

	var sink bot.EventSink = bot.MultiSink{events, wsSrv}
	if idx != nil {
		sink = bot.MultiSink{events, idx, wsSrv}
	}
	reg := bot.NewRegistry(logger, sink)
	env := &bot.Env{
		Sched: w.Scheduler(),
		Log:   logger,
		Sink:  sink,
		Chat:  w.Player(),
		Timing: bot.Timing{
			InitialDelay: time.Duration(tune.Bot.InitialDelayMs) * time.Millisecond,
			PausePoll:    time.Duration(tune.Bot.PausePollMs) * time.Millisecond,
			BlockedRetry: time.Duration(tune.Bot.BlockedRetryMs) * time.Millisecond,
		},
	}
	api := botapi.New(botapi.Deps{
		Player:       w.Player(),
		World:        w,
		Rand:         rand.New(rand.NewSource(tune.Bot.Seed)),
		MaxWaypoints: tune.MaxWaypoints,
		Run:          *runMode,
		Log:          logger,
	})
	handler = commands.New(commands.Config{
		Registry: reg,
		API:      api,
		Env:      env,
		Options: scripts.Options{
			StuckAfter: time.Duration(tune.Bot.StuckAfterMs) * time.Millisecond,
			AutoRest:   *autoRest,
		},
		Log: logger,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The world outlives ctx until the bots are stopped below.
	go func() {
		if err := w.Run(context.Background()); err != nil {
			logger.Printf("world stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		snap, err := snapshot(r.Context(), w, reg)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusServiceUnavailable)
			return
		}
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP tickbot_world_tick Current world tick.\n")
		fmt.Fprintf(rw, "# TYPE tickbot_world_tick gauge\n")
		fmt.Fprintf(rw, "tickbot_world_tick %d\n", snap.Tick)

		fmt.Fprintf(rw, "# HELP tickbot_sessions Connected protocol clients.\n")
		fmt.Fprintf(rw, "# TYPE tickbot_sessions gauge\n")
		fmt.Fprintf(rw, "tickbot_sessions %d\n", wsSrv.Sessions())

		fmt.Fprintf(rw, "# HELP tickbot_bots Registered bots by state.\n")
		fmt.Fprintf(rw, "# TYPE tickbot_bots gauge\n")
		counts := map[bot.State]int{}
		for _, st := range snap.Bots {
			counts[st.State]++
		}
		for _, s := range []bot.State{bot.StateRunning, bot.StatePaused, bot.StateStopped} {
			fmt.Fprintf(rw, "tickbot_bots{state=%q} %d\n", strings.ToLower(string(s)), counts[s])
		}

		if idx != nil {
			st := idx.Stats()
			fmt.Fprintf(rw, "# HELP tickbot_index_queue_depth SQLite index writer backlog.\n")
			fmt.Fprintf(rw, "# TYPE tickbot_index_queue_depth gauge\n")
			fmt.Fprintf(rw, "tickbot_index_queue_depth %d\n", st.QueueDepth)
			fmt.Fprintf(rw, "# HELP tickbot_index_dropped_total Index writes dropped because the queue was full.\n")
			fmt.Fprintf(rw, "# TYPE tickbot_index_dropped_total counter\n")
			fmt.Fprintf(rw, "tickbot_index_dropped_total{kind=%q} %d\n", "event", st.DropEventTotal)
			fmt.Fprintf(rw, "tickbot_index_dropped_total{kind=%q} %d\n", "audit", st.DropAuditTotal)
		}
	})

	if envBool("TICKBOT_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()) {
		// Local-only.
		mux.HandleFunc("/admin/v1/bots", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			snap, err := snapshot(r.Context(), w, reg)
			if err != nil {
				http.Error(rw, err.Error(), http.StatusServiceUnavailable)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(snap)
		})
		if idx != nil {
			mux.HandleFunc("/admin/v1/runs", func(rw http.ResponseWriter, r *http.Request) {
				if !isLoopbackRemote(r.RemoteAddr) {
					http.Error(rw, "forbidden", http.StatusForbidden)
					return
				}
				limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
				if limit <= 0 {
					limit = 50
				}
				ctx2, cancel2 := context.WithTimeout(r.Context(), 5*time.Second)
				defer cancel2()
				_ = idx.Sync(ctx2)
				runs, err := idx.Runs(ctx2, r.URL.Query().Get("task"), limit)
				if err != nil {
					http.Error(rw, err.Error(), http.StatusInternalServerError)
					return
				}
				rw.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(rw).Encode(runs)
			})
		}
	} else {
		logger.Printf("admin endpoints disabled (TICKBOT_ENABLE_ADMIN_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", wsSrv.Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (tick %dHz, catalogs %s)", *addr, w.TickRateHz(), short(cats.Digest))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	// Stop bots on the sim goroutine before the loop exits so their STOP
	// events reach the logs.
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	_ = w.Exec(stopCtx, func(*world.World) { reg.StopAll() })
	stopCancel()
	w.Stop()
	<-w.Done()
}

type commanderFunc func(text string) commands.Reply

func (f commanderFunc) Handle(text string) commands.Reply { return f(text) }

type stateSnapshot struct {
	Tick uint64           `json:"tick"`
	Bots []bot.TaskStatus `json:"bots"`
}

func snapshot(ctx context.Context, w *world.World, reg *bot.Registry) (stateSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	res := make(chan stateSnapshot, 1)
	if err := w.Exec(ctx, func(w *world.World) {
		res <- stateSnapshot{Tick: w.CurrentTick(), Bots: reg.Statuses()}
	}); err != nil {
		return stateSnapshot{}, err
	}
	return <-res, nil
}

func loadCatalogs(dir string) (*catalogs.Catalogs, error) {
	if dir == "" {
		return catalogs.Default()
	}
	return catalogs.Load(dir)
}

func loadTuning(path, configDir string) (tuning.Tuning, error) {
	if path == "" {
		if configDir == "" {
			return tuning.Defaults(), nil
		}
		path = filepath.Join(configDir, "tuning.yaml")
		if _, err := os.Stat(path); err != nil {
			return tuning.Defaults(), nil
		}
	}
	return tuning.Load(path)
}

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
