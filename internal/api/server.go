// Package api implements the read-only HTTP API publishing reports of the
// contract.
//
// Every request synchronizes the contract anew; there is no cache, pagination
// or filtering.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/civicwatch/incident-reports/report"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Routes.
const (
	RouteReports = "/api/reports"
	RouteSync    = "/api/reports/sync"
	RouteOwner   = "/api/owner"
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)

// ReadFailuresHeader carries the number of indices skipped by the
// synchronization serving the report list.
const ReadFailuresHeader = "X-Read-Failures"

// StatusClientClosedRequest is set when the client goes away before the
// synchronization is done.
const StatusClientClosedRequest = 499

const (
	msgFetchReports = "Failed to fetch reports"
	msgFetchOwner   = "Failed to fetch owner"
)

// Synchronizer enumerates reports, see report.Synchronizer.
type Synchronizer interface {
	Synchronize(ctx context.Context, p report.Policy) (report.Snapshot, error)
}

// Prm groups parameters of New.
type Prm struct {
	Synchronizer Synchronizer

	// Optional owner source, owner route answers 404 if nil.
	Owner report.OwnerReader

	// Policy used by every request.
	Policy report.Policy

	// Units rewards are rendered in.
	Units report.Units

	// Requests per second allowed per client IP, zero disables limiting.
	RateLimit float64
	RateBurst int

	// Optional /metrics handler.
	Metrics http.Handler

	// Optional request counter.
	ObserveRequest func(route, code string)

	Logger *zap.Logger
}

// Server serves the Read API.
type Server struct {
	log    *zap.Logger
	sync   Synchronizer
	owner  report.OwnerReader
	policy report.Policy
	units  report.Units
	engine *gin.Engine
}

// New returns Server with all routes registered.
func New(prm Prm) *Server {
	s := &Server{
		log:    prm.Logger,
		sync:   prm.Synchronizer,
		owner:  prm.Owner,
		policy: prm.Policy,
		units:  prm.Units,
		engine: gin.New(),
	}

	if s.log == nil {
		s.log = zap.NewNop()
	}

	// client addresses come from the connection only, the limiter keys on them
	_ = s.engine.SetTrustedProxies(nil)

	observe := prm.ObserveRequest
	if observe == nil {
		observe = func(string, string) {}
	}

	s.engine.Use(gin.Recovery(), requestID(), accessLog(s.log, observe), cors())

	if prm.RateLimit > 0 {
		s.engine.Use(newLimiter(prm.RateLimit, prm.RateBurst).middleware())
	}

	api := s.engine.Group("/api")
	{
		api.GET("/reports", s.listReports)
		api.GET("/reports/sync", s.syncReports)
		api.GET("/owner", s.getOwner)
	}

	s.engine.GET(RouteHealth, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if prm.Metrics != nil {
		s.engine.GET(RouteMetrics, gin.WrapH(prm.Metrics))
	}

	return s
}

// Handler returns HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) synchronize(c *gin.Context) (report.Snapshot, bool) {
	snap, err := s.sync.Synchronize(c.Request.Context(), s.policy)
	if err != nil {
		if c.Request.Context().Err() != nil {
			s.log.Debug("client went away during synchronization",
				zap.String("request_id", c.GetString(requestIDKey)))
			c.AbortWithStatus(StatusClientClosedRequest)
			return report.Snapshot{}, false
		}

		s.log.Error("failed to synchronize reports",
			zap.Stringer("policy", s.policy), zap.Error(err),
			zap.String("request_id", c.GetString(requestIDKey)))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: msgFetchReports})
		return report.Snapshot{}, false
	}

	return snap, true
}

func (s *Server) listReports(c *gin.Context) {
	snap, ok := s.synchronize(c)
	if !ok {
		return
	}

	c.Header(ReadFailuresHeader, strconv.Itoa(len(snap.Skipped(s.policy))))
	c.JSON(http.StatusOK, NewReports(snap.Records, s.units))
}

func (s *Server) syncReports(c *gin.Context) {
	snap, ok := s.synchronize(c)
	if !ok {
		return
	}

	c.Header(ReadFailuresHeader, strconv.Itoa(len(snap.Skipped(s.policy))))
	c.JSON(http.StatusOK, NewSyncResult(s.policy, snap, s.units))
}

func (s *Server) getOwner(c *gin.Context) {
	if s.owner == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: "Owner is not available"})
		return
	}

	owner, err := s.owner.Owner(c.Request.Context())
	if err != nil {
		s.log.Error("failed to read contract owner", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: msgFetchOwner})
		return
	}

	c.JSON(http.StatusOK, Owner{Owner: owner})
}

// ServePrm groups parameters of Serve.
type ServePrm struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Serve accepts connections on the listener until the context is done and then
// shuts the server down gracefully.
func (s *Server) Serve(ctx context.Context, l net.Listener, prm ServePrm) error {
	srv := &http.Server{
		Handler:      s.engine,
		ReadTimeout:  prm.ReadTimeout,
		WriteTimeout: prm.WriteTimeout,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.Serve(l)
	}()

	s.log.Info("read API started", zap.Stringer("address", l.Addr()))

	select {
	case err := <-errCh:
		return fmt.Errorf("serve read API: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down read API")

	shutdownCtx := context.Background()
	if prm.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(shutdownCtx, prm.ShutdownTimeout)
		defer cancel()
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shut read API down: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve read API: %w", err)
	}

	return nil
}
