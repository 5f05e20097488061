// Package server exposes the prediction pipeline through an HTML form and a
// health endpoint.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/YuminosukeSato/scorecast/internal/predict"
	"github.com/YuminosukeSato/scorecast/internal/version"
	"github.com/YuminosukeSato/scorecast/pkg/errors"
	"github.com/YuminosukeSato/scorecast/pkg/log"
)

//go:embed templates/*.html
var templateFS embed.FS

const shutdownTimeout = 10 * time.Second

// Predictor produces one prediction per request.
type Predictor interface {
	Predict(ctx context.Context, features predict.Features) (float64, error)
}

// Server serves the prediction form.
type Server struct {
	predictor Predictor
	templates *template.Template
	logger    log.Logger
	server    *http.Server
}

// New creates a server listening on addr.
func New(addr string, predictor Predictor, logger log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Nop()
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "parsing templates")
	}

	s := &Server{
		predictor: predictor,
		templates: tmpl,
		logger:    logger.With(log.ComponentKey, "server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /predictdata", s.handleForm)
	mux.HandleFunc("POST /predictdata", s.handlePredict)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.logRequests(mux),
		ReadHeaderTimeout: 10 * time.Second, //nolint:mnd // Standard timeout value
	}
	return s, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "serving")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("server shutting down")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutting down")
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serving")
	}
	return nil
}

// ListenAndServe binds the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", s.server.Addr)
	}
	return s.Serve(ctx, ln)
}

type indexPage struct {
	Version string
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, "index.html", indexPage{Version: version.Version})
}

type selectField struct {
	Name    string
	Label   string
	Options []string
}

var selects = []selectField{
	{predict.FieldGender, "Gender", []string{"male", "female"}},
	{predict.FieldRaceEthnicity, "Race or Ethnicity", []string{"group A", "group B", "group C", "group D", "group E"}},
	{predict.FieldParentalLevelOfEducation, "Parental Level of Education", []string{
		"associate's degree", "bachelor's degree", "high school", "master's degree", "some college", "some high school",
	}},
	{predict.FieldLunch, "Lunch Type", []string{"free/reduced", "standard"}},
	{predict.FieldTestPreparationCourse, "Test Preparation Course", []string{"none", "completed"}},
}

type formPage struct {
	Selects   []selectField
	Result    float64
	HasResult bool
	Error     string
}

func (s *Server) handleForm(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, "home.html", formPage{Selects: selects})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	page := formPage{Selects: selects}
	if err := r.ParseForm(); err != nil {
		page.Error = "could not read the submitted form"
		s.render(w, http.StatusBadRequest, "home.html", page)
		return
	}

	data, err := predict.ParseStudentData(r.PostForm)
	if err == nil {
		page.Result, err = s.predictor.Predict(r.Context(), data.ToFeatures())
	}
	if err != nil {
		status := statusFor(err)
		s.logger.Warn("prediction failed", err, "status", status)
		page.Error = err.Error()
		if status == http.StatusInternalServerError {
			page.Error = "the model is not available, please try again later"
		}
		s.render(w, status, "home.html", page)
		return
	}
	page.HasResult = true
	s.render(w, http.StatusOK, "home.html", page)
}

// statusFor maps a prediction failure to an HTTP status. Only malformed
// input is the caller's fault.
func statusFor(err error) int {
	var perr *errors.PredictionError
	if errors.As(err, &perr) && perr.Kind == errors.PredictionInvalidInput {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	response := map[string]interface{}{
		"status":    "ok",
		"version":   version.Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode health status", http.StatusInternalServerError)
		return
	}
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("template render failed", err, "template", name)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			log.DurationMsKey, time.Since(start),
		)
	})
}
