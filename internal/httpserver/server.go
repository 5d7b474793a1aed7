package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tinytelemetry/inferd/internal/logquery"
	"github.com/tinytelemetry/inferd/internal/model"
)

// PredictService is the prediction contract required by the HTTP API.
type PredictService interface {
	Available() bool
	Predict(req model.PredictionRequest) (model.PredictionResult, error)
}

// LogLister is the read-back contract behind /logs.
type LogLister interface {
	List() (logquery.Listing, error)
}

// Server exposes the prediction API over HTTP.
type Server struct {
	addr      string
	predictor PredictService
	logs      LogLister
	engine    *gin.Engine
	server    *http.Server
	listener  net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	stopOnce  sync.Once
	startTime time.Time
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, predictor PredictService, logs LogLister) *Server {
	if addr == "" {
		addr = "127.0.0.1:8000"
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addr:      addr,
		predictor: predictor,
		logs:      logs,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog())

	r.GET("/", s.handleRoot)
	r.POST("/predict", s.handlePredict)
	r.GET("/logs", s.handleLogs)
	return r
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler { return s.engine }

// Start binds the listen address. Requests are served once Serve is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Handler:           s.engine,
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.startTime = time.Now()
	return nil
}

// Serve accepts connections on the listener bound by Start and blocks until the
// server stops. A graceful Stop returns nil; any other accept failure is returned.
func (s *Server) Serve() error {
	if s.server == nil || s.listener == nil {
		return errors.New("httpserver: Serve called before Start")
	}
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("httpserver: serve: %w", err)
	}
	return nil
}

// Addr returns the bound listen address once started, else the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.cancel()
		if s.server == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = s.server.Shutdown(ctx)
		if s.listener != nil {
			// Serve may never have taken ownership of the listener.
			_ = s.listener.Close()
		}
	})
	return err
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"message":      model.ServiceMessage,
		"model_loaded": s.predictor.Available(),
		"uptime":       time.Since(s.startTime).String(),
	})
}

func (s *Server) handlePredict(c *gin.Context) {
	if !s.predictor.Available() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Model is not available. Check server logs."})
		return
	}

	var req model.PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid JSON body: experience_years must be a number"})
		return
	}

	res, err := s.predictor.Predict(req)
	if err != nil {
		var inf *model.InferenceError
		switch {
		case errors.Is(err, model.ErrServiceUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Model is not available. Check server logs."})
		case errors.As(err, &inf):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Prediction failed: " + inf.Error()})
		default:
			log.Printf("httpserver: predict: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, res)
}

func (s *Server) handleLogs(c *gin.Context) {
	listing, err := s.logs.List()
	if err != nil {
		log.Printf("httpserver: list logs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not read log file: " + err.Error()})
		return
	}

	if !listing.Stored {
		c.JSON(http.StatusOK, gin.H{"message": listing.Message})
		return
	}

	body := gin.H{"logs": listing.Lines}
	if listing.Message != "" {
		body["message"] = listing.Message
	}
	c.JSON(http.StatusOK, body)
}
