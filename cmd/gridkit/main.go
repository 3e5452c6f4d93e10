// Package main is a terminal demo for the gridkit engine: it mounts a
// JSON dataset as an interactive table with editing, selection, search,
// and footer aggregates.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/tidwall/gjson"

	"github.com/dshills/gridkit/internal/announce"
	"github.com/dshills/gridkit/internal/config"
	"github.com/dshills/gridkit/internal/engine"
	"github.com/dshills/gridkit/internal/event"
	"github.com/dshills/gridkit/internal/grid"
	"github.com/dshills/gridkit/internal/grid/term"
	"github.com/dshills/gridkit/internal/keynav"
	"github.com/dshills/gridkit/internal/keynav/key"
	"github.com/dshills/gridkit/internal/logging"
	"github.com/dshills/gridkit/internal/session"
	"github.com/dshills/gridkit/internal/storage"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

type options struct {
	configPath string
	dataPath   string
	dbPath     string
	logLevel   string
	logFile    string
	pageSize   int
}

func main() {
	os.Exit(run())
}

func run() int {
	opts, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("gridkit %s (%s)\n", version, commit)
		return 0
	}

	log, closeLog, err := buildLogger(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeLog()

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	rows, err := loadRows(opts.dataPath, cfg.Selection.RowIDAlias)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var kv storage.KV = storage.NewMemory()
	if opts.dbPath != "" {
		db, err := storage.OpenSQLite(ctx, opts.dbPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: open database: %v\n", err)
			return 1
		}
		defer db.Close()
		kv = db
	}

	tbl := grid.NewTable("demo", rows, grid.WithPageSize(opts.pageSize))

	var renderer *term.Renderer
	var prompt searchPrompt
	eng, err := engine.New(tbl, cfg,
		engine.WithLogger(log),
		engine.WithStorage(kv),
		engine.WithConfirm(func(prompt string) bool {
			// The demo has no modal surface; destructive bulk actions
			// are auto-approved and logged.
			log.Warn("confirming without prompt: %s", prompt)
			return true
		}),
		engine.WithAnnounceFunc(func(p announce.Politeness, msg string) {
			if renderer != nil {
				renderer.SetStatus(msg)
			}
		}),
		engine.WithAction(keynav.ActionHelp, func(context.Context) {
			if renderer != nil {
				renderer.SetStatus(helpStatus)
			}
		}),
		engine.WithAction(keynav.ActionFocusSearch, func(context.Context) {
			prompt.active = true
			prompt.query = ""
			if renderer != nil {
				renderer.SetStatus("search: ")
			}
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := eng.Attach(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer eng.Detach()

	renderer, err = term.New(eng, tbl, cfg.Columns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := renderer.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer renderer.Fini()

	eng.Bus().Subscribe(event.TopicRedraw, func(event.Event) {
		renderer.Draw()
	})
	tbl.Ready()
	renderer.Draw()

	if err := eventLoop(ctx, eng, renderer, &prompt); err != nil {
		renderer.Fini()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

const helpStatus = "arrows move | Enter edit/save | Esc cancel | Space select | Ctrl+A all | / search | PgUp/PgDn page | q quit"

// searchPrompt is the inline query line opened by "/" or Ctrl+F. While
// active it captures keys ahead of the keyboard manager.
type searchPrompt struct {
	active bool
	query  string
}

// handleKey consumes one key into the prompt. Enter applies the query as
// a simple search (an empty query clears instead); Escape abandons it.
func (p *searchPrompt) handleKey(eng *engine.Engine, renderer *term.Renderer, kev key.Event) {
	switch {
	case kev.Key == key.KeyEnter:
		p.active = false
		if p.query == "" {
			eng.Search().Clear()
		} else if err := eng.Search().ApplySimple(p.query); err != nil {
			renderer.SetStatus("search failed: " + err.Error())
		}
		return
	case kev.Key == key.KeyEscape:
		p.active = false
		renderer.SetStatus("")
		return
	case kev.Key == key.KeyBackspace:
		if p.query != "" {
			runes := []rune(p.query)
			p.query = string(runes[:len(runes)-1])
		}
	case kev.Key == key.KeySpace:
		p.query += " "
	case kev.Key == key.KeyRune && kev.Modifiers&(key.ModCtrl|key.ModAlt|key.ModMeta) == 0:
		p.query += string(kev.Rune)
	default:
		return
	}
	renderer.SetStatus("search: " + p.query)
}

// eventLoop polls the terminal until quit or signal. Keys go to the
// keyboard manager first; while the search prompt or a cell edit is
// open, printable input and backspace feed it instead.
func eventLoop(ctx context.Context, eng *engine.Engine, renderer *term.Renderer, prompt *searchPrompt) error {
	screen := renderer.Screen()
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	go screen.ChannelEvents(events, quit)
	defer close(quit)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch tev := ev.(type) {
			case *tcell.EventResize:
				screen.Sync()
				renderer.Draw()
			case *tcell.EventKey:
				kev, handled := term.TranslateKey(tev)
				if !handled {
					continue
				}
				if prompt.active {
					prompt.handleKey(eng, renderer, kev)
					renderer.Draw()
					continue
				}
				if editingText(eng, kev) {
					renderer.Draw()
					continue
				}
				if kev.Key == key.KeyRune && kev.Rune == 'q' && kev.Modifiers == key.ModNone {
					return nil
				}
				if eng.Keyboard().Handle(ctx, kev) {
					renderer.Draw()
				}
			}
		}
	}
}

// editingText consumes character keys into the open edit session.
func editingText(eng *engine.Engine, kev key.Event) bool {
	sess := eng.Session()
	if sess == nil || sess.Focus.Mode != session.FocusEdit || sess.Edit == nil {
		return false
	}
	switch {
	case kev.Key == key.KeyRune && kev.Modifiers&(key.ModCtrl|key.ModAlt|key.ModMeta) == 0:
		eng.Edit().SetPending(sess.Edit.Pending + string(kev.Rune))
		return true
	case kev.Key == key.KeySpace:
		eng.Edit().SetPending(sess.Edit.Pending + " ")
		return true
	case kev.Key == key.KeyBackspace:
		p := sess.Edit.Pending
		if p != "" {
			runes := []rune(p)
			eng.Edit().SetPending(string(runes[:len(runes)-1]))
		}
		return true
	}
	return false
}

func buildLogger(opts options) (*logging.Logger, func(), error) {
	if opts.logFile == "" {
		// The terminal owns stdout; without a log file, stay quiet.
		return logging.Discard(), func() {}, nil
	}
	f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(opts.logLevel)
	cfg.Output = f
	return logging.New(cfg), func() { f.Close() }, nil
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return demoConfig(), nil
}

// loadRows reads a JSON array of objects; each element becomes one row.
func loadRows(path, idAlias string) ([]grid.Row, error) {
	if path == "" {
		return demoRows(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	parsed := gjson.ParseBytes(data)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("dataset %s: expected a JSON array", path)
	}

	var rows []grid.Row
	for i, el := range parsed.Array() {
		doc := []byte(el.Raw)
		id := grid.ExtractRowID(doc, idAlias)
		if id == "" {
			id = grid.RowID(fmt.Sprintf("row-%d", i))
		}
		rows = append(rows, grid.Row{ID: id, Data: doc})
	}
	return rows, nil
}

func demoConfig() config.Config {
	two := 2
	cfg := config.Default([]config.Column{
		{Data: "id", Title: "ID", Width: 8},
		{Data: "product", Title: "Product", Editable: true, EditType: config.EditText, EditRequired: true},
		{Data: "qty", Title: "Qty", Editable: true, EditType: config.EditNumber, Width: 8},
		{Data: "price", Title: "Price", Render: "currency", Editable: true, EditType: config.EditNumber, Width: 12},
		{Data: "status", Title: "Status", Editable: true, EditType: config.EditSelect,
			EditOptions: []string{"pending", "shipped", "delivered"}},
	})
	cfg.Selection = config.Selection{Enabled: true, SelectAll: true, PersistSelection: true}
	cfg.Footer = config.Footer{
		Enabled: true,
		Columns: []config.FooterColumn{
			{Col: 2, Agg: config.AggSum, Label: "total"},
			{Col: 3, Agg: config.AggAverage, Decimals: &two, Prefix: "$", Label: "avg"},
			{Col: 4, Agg: config.AggCountUnique},
		},
	}
	return cfg
}

func demoRows() []grid.Row {
	docs := []string{
		`{"id":"o-1001","product":"copper wire","qty":12,"price":49.5,"status":"shipped"}`,
		`{"id":"o-1002","product":"relay switch","qty":3,"price":120,"status":"pending"}`,
		`{"id":"o-1003","product":"breaker panel","qty":1,"price":310.25,"status":"delivered"}`,
		`{"id":"o-1004","product":"junction box","qty":40,"price":8.99,"status":"pending"}`,
		`{"id":"o-1005","product":"conduit 10m","qty":7,"price":22,"status":"shipped"}`,
		`{"id":"o-1006","product":"crimp kit","qty":2,"price":65.4,"status":"delivered"}`,
	}
	rows := make([]grid.Row, len(docs))
	for i, doc := range docs {
		rows[i] = grid.Row{ID: grid.ExtractRowID([]byte(doc), ""), Data: []byte(doc)}
	}
	return rows
}

func parseFlags() (options, bool) {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.configPath, "config", "", "Path to a YAML or TOML table configuration")
	flag.StringVar(&opts.dataPath, "data", "", "Path to a JSON array dataset")
	flag.StringVar(&opts.dbPath, "db", "", "SQLite file for selection and search history persistence")
	flag.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.logFile, "log-file", "", "Append logs to this file")
	flag.IntVar(&opts.pageSize, "page-size", 10, "Rows per page")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "gridkit - interactive table demo\n\n")
		fmt.Fprintf(os.Stderr, "Usage: gridkit [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nKeys:\n")
		fmt.Fprintf(os.Stderr, "  arrows       move between cells\n")
		fmt.Fprintf(os.Stderr, "  Enter        edit the focused cell, or save an open edit\n")
		fmt.Fprintf(os.Stderr, "  Escape       cancel an edit, clear selection, clear search\n")
		fmt.Fprintf(os.Stderr, "  Space        toggle row selection (Shift extends)\n")
		fmt.Fprintf(os.Stderr, "  Ctrl+A       select or deselect every row\n")
		fmt.Fprintf(os.Stderr, "  / or Ctrl+F  open the search prompt\n")
		fmt.Fprintf(os.Stderr, "  F1           show the key summary in the status line\n")
		fmt.Fprintf(os.Stderr, "  PgUp/PgDn    change page\n")
		fmt.Fprintf(os.Stderr, "  q            quit\n")
	}
	flag.Parse()

	return opts, showVersion
}
