// Package httpstatus is the read-only HTTP observability surface from
// §6: GET / renders an HTML status page, GET /db-dump returns the local
// store as JSON. Both may be omitted by alternative implementations, so
// this package is kept deliberately thin.
package httpstatus

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"chordring/internal/logger"
)

// Node is the subset of ring.Node this package needs, kept narrow so
// internal/ring never has to import internal/httpstatus.
type Node interface {
	SelfAddr() string
	SelfID() []byte
	Snapshot() NodeSnapshot
	LocalKeyCount(ctx context.Context) (int, error)
	DumpDB(ctx context.Context) (map[string][]byte, error)
}

// NodeSnapshot mirrors ring's coherent state snapshot without importing
// the ring package's unexported type.
type NodeSnapshot struct {
	Self        string
	Successor   string
	Predecessor string
	Fingers     []string
}

var indexTemplate = template.Must(template.New("index").Parse(`
<html>
	<head>
		<title>chordring node</title>
		<style>
body{margin:40px auto;max-width:650px;line-height:1.6;font-size:18px;color:#444;padding:0 10px}h1,h2,h3{line-height:1.2}
		</style>
	</head>
	<body>
		<h1>Node {{ .Self }}</h1>
		<h2>Stats:</h2>
		<ul>
			<li>Start Time: {{ .StartTime }}</li>
			<li>Uptime: {{ .Uptime }}</li>
			<li>Predecessor: {{ .Predecessor }}</li>
			<li>Successor: {{ .Successor }}</li>
			<li>Local K/V count: {{ .LocalCount }}</li>
			<li>Self ID: {{ .SelfIDHex }}</li>
		</ul>
		<h2>Fingers:</h2>
		<ul>
		{{ range .Fingers }}<li>{{ . }}</li>
		{{ else }}<li>(none)</li>
		{{ end }}
		</ul>
	</body>
</html>
`))

type indexData struct {
	Self        string
	StartTime   time.Time
	Uptime      time.Duration
	Predecessor string
	Successor   string
	LocalCount  int
	SelfIDHex   string
	Fingers     []string
}

// Server wraps an http.Server exposing the status page and db-dump JSON.
type Server struct {
	node      Node
	startTime time.Time
	srv       *http.Server
	lgr       logger.Logger
}

// New builds a Server bound to addr (e.g. "127.0.0.1:8080"). It does not
// start listening until Start is called.
func New(node Node, addr string, lgr logger.Logger) *Server {
	if lgr == nil {
		lgr = logger.NopLogger{}
	}
	s := &Server{node: node, startTime: time.Now(), lgr: lgr}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/db-dump", s.handleDBDump)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until the server is stopped or fails.
func (s *Server) Start() error {
	s.lgr.Info("status server starting", logger.F("addr", s.srv.Addr))
	return s.srv.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.node.Snapshot()
	count, err := s.node.LocalKeyCount(r.Context())
	if err != nil {
		s.lgr.Warn("status: local key count failed", logger.F("err", err))
	}

	data := indexData{
		Self:        snap.Self,
		StartTime:   s.startTime,
		Uptime:      time.Since(s.startTime).Round(time.Second),
		Predecessor: snap.Predecessor,
		Successor:   snap.Successor,
		LocalCount:  count,
		SelfIDHex:   fmt.Sprintf("%x", s.node.SelfID()),
		Fingers:     snap.Fingers,
	}
	if data.Predecessor == "" {
		data.Predecessor = "(none)"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.lgr.Warn("status: render index failed", logger.F("err", err))
	}
}

func (s *Server) handleDBDump(w http.ResponseWriter, r *http.Request) {
	items, err := s.node.DumpDB(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	strItems := make(map[string]string, len(items))
	for k, v := range items {
		strItems[k] = string(v)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(strItems); err != nil {
		s.lgr.Warn("status: encode db-dump failed", logger.F("err", err))
	}
}
