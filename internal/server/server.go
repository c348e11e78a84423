package server

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"github.com/TobiSchelling/ContentMachine/internal/apierr"
	"github.com/TobiSchelling/ContentMachine/internal/database"
	"github.com/TobiSchelling/ContentMachine/internal/imagegen"
	"github.com/TobiSchelling/ContentMachine/internal/logging"
	"github.com/TobiSchelling/ContentMachine/internal/metrics"
	"github.com/TobiSchelling/ContentMachine/internal/pipeline"
	"github.com/TobiSchelling/ContentMachine/internal/search"
	"github.com/TobiSchelling/ContentMachine/internal/topics"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New(goldmark.WithExtensions(extension.Linkify))

const recentRuns = 5

// Server is the HTTP server for the topic and post workflow.
type Server struct {
	p         *pipeline.Pipeline
	outputDir string
	pages     map[string]*template.Template
	mux       *http.ServeMux
	log       *zap.Logger
}

// New creates a new Server. Generated images are served from outputDir.
func New(p *pipeline.Pipeline, outputDir string, log *zap.Logger) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"imageURL": func(path string) string {
			return "/output/" + filepath.Base(path)
		},
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets a clone of the base with its own "title" and "content".
	pageNames := []string{"index.html", "topic.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		p:         p,
		outputDir: outputDir,
		pages:     pages,
		mux:       http.NewServeMux(),
		log:       logging.OrNop(log),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))
	s.mux.Handle("GET /output/", http.StripPrefix("/output/", http.FileServer(http.Dir(s.outputDir))))
	s.mux.Handle("GET /metrics", metrics.Handler())

	// Routes
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /search", s.handleSearch)
	s.mux.HandleFunc("GET /topic/{index}", s.handleTopic)
	s.mux.HandleFunc("POST /topic/{index}/post", s.handleGeneratePost)
	s.mux.HandleFunc("POST /topic/{index}/image", s.handleGenerateImage)
	s.mux.HandleFunc("POST /images/{id}/approve", s.handleApproveImage)
}

func (s *Server) indexData(r *http.Request) map[string]any {
	list, err := s.p.LoadTopics(r.Context())
	if err != nil {
		s.log.Error("loading topics", zap.Error(err))
	}
	runs, err := s.p.RecentRuns(recentRuns)
	if err != nil {
		s.log.Error("loading runs", zap.Error(err))
	}
	return map[string]any{
		"Topics":   list,
		"Runs":     runs,
		"Recency":  []search.Recency{search.Day, search.Week, search.Month, search.Year},
		"Defaults": s.p.Defaults(),
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "index.html", s.indexData(r))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	niche := strings.TrimSpace(r.FormValue("niche"))
	count, _ := strconv.Atoi(r.FormValue("count"))
	recency := r.FormValue("recency")

	result, err := s.p.SearchTopics(r.Context(), niche, count, recency)

	data := s.indexData(r)
	data["Result"] = result
	status := http.StatusOK
	if err != nil {
		s.log.Warn("search failed", zap.Error(err))
		data["Error"] = userMessage(err)
		status = errorStatus(err)
	}
	s.render(w, status, "index.html", data)
}

func (s *Server) topicData(r *http.Request) (map[string]any, int, error) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		return nil, http.StatusNotFound, err
	}
	topic, err := s.p.SelectTopic(r.Context(), index)
	if err != nil {
		if errors.Is(err, pipeline.ErrTopicNotFound) {
			return nil, http.StatusNotFound, err
		}
		return nil, http.StatusInternalServerError, err
	}
	posts, images, err := s.p.History(topic.Title)
	if err != nil {
		return nil, http.StatusInternalServerError, err
	}

	templates := make([]string, 0, len(s.p.ImageTemplates()))
	for name := range s.p.ImageTemplates() {
		templates = append(templates, name)
	}
	sort.Strings(templates)

	return map[string]any{
		"Topic":     topic,
		"Posts":     posts,
		"Images":    images,
		"Templates": templates,
	}, http.StatusOK, nil
}

func (s *Server) handleTopic(w http.ResponseWriter, r *http.Request) {
	data, status, err := s.topicData(r)
	if err != nil {
		s.fail(w, r, status, err)
		return
	}
	s.render(w, http.StatusOK, "topic.html", data)
}

func (s *Server) handleGeneratePost(w http.ResponseWriter, r *http.Request) {
	data, status, err := s.topicData(r)
	if err != nil {
		s.fail(w, r, status, err)
		return
	}
	topic := data["Topic"].(*topics.Topic)

	if _, err := s.p.GeneratePost(r.Context(), topic.Title, r.FormValue("extra")); err != nil {
		s.log.Warn("post generation failed", zap.Error(err))
		data["Error"] = userMessage(err)
		s.render(w, errorStatus(err), "topic.html", data)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/topic/%d#posts", topic.Index), http.StatusSeeOther)
}

func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	data, status, err := s.topicData(r)
	if err != nil {
		s.fail(w, r, status, err)
		return
	}
	topic := data["Topic"].(*topics.Topic)

	_, err = s.p.GenerateImage(r.Context(), imagegen.Request{
		Topic:    topic.Title,
		Style:    strings.TrimSpace(r.FormValue("style")),
		Template: strings.TrimSpace(r.FormValue("template")),
		Headline: strings.TrimSpace(r.FormValue("headline")),
	})
	if err != nil {
		s.log.Warn("image generation failed", zap.Error(err))
		data["Error"] = userMessage(err)
		s.render(w, errorStatus(err), "topic.html", data)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/topic/%d#images", topic.Index), http.StatusSeeOther)
}

func (s *Server) handleApproveImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := s.p.ApproveImage(id); err != nil {
		if errors.Is(err, database.ErrImageNotFound) {
			http.NotFound(w, r)
			return
		}
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}

	back := r.FormValue("back")
	if !strings.HasPrefix(back, "/topic/") {
		back = "/"
	}
	http.Redirect(w, r, back+"#images", http.StatusSeeOther)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status == http.StatusNotFound {
		http.NotFound(w, r)
		return
	}
	s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, "Internal server error", status)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.log.Error("template not found", zap.String("template", name))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.log.Error("rendering template", zap.String("template", name), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// userMessage turns an operation error into text for the page.
func userMessage(err error) string {
	var ue *apierr.UpstreamError
	switch {
	case errors.Is(err, apierr.ErrCredentialMissing):
		return "This capability is not configured: set the API key in your environment or .env file."
	case errors.As(err, &ue):
		return fmt.Sprintf("The %s service returned an error (HTTP %d). Try again.", ue.Service, ue.StatusCode)
	default:
		return err.Error()
	}
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, apierr.ErrCredentialMissing):
		return http.StatusServiceUnavailable
	case apierr.IsUpstream(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(p *pipeline.Pipeline, outputDir string, port int, log *zap.Logger) error {
	srv, err := New(p, outputDir, log)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	srv.log.Info("server listening", zap.String("url", "http://"+addr))
	hs := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return hs.ListenAndServe()
}
