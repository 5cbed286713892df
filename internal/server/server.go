// Package server exposes the latest ranking run over HTTP.
package server

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/samber/lo"
	"github.com/samber/oops"

	"github.com/ethanolivertroy/sap-compass/internal/log"
	"github.com/ethanolivertroy/sap-compass/internal/models"
	"github.com/ethanolivertroy/sap-compass/internal/pipeline"
)

// Ranker produces a ranking run
type Ranker interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

// Server serves the most recent ranking and reruns it on request
type Server struct {
	ranker Ranker
	app    *fiber.App

	mu        sync.RWMutex
	result    *pipeline.Result
	refreshed time.Time

	running atomic.Bool
}

// New builds the fiber app. No ranking is served until Refresh succeeds.
func New(ranker Ranker) *Server {
	s := &Server{ranker: ranker}

	app := fiber.New(fiber.Config{
		AppName:               "sap-compass API v1.0",
		ReadTimeout:           time.Second * 30,
		DisableStartupMessage: true,
	})

	app.Use(fiberrecover.New())
	app.Use(requestid.New())
	app.Use(accessLog)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
		})
	})

	api := app.Group("/api/v1")
	api.Get("/ranked", s.getRanked)
	api.Get("/summary", s.getSummary)
	api.Get("/records", s.getRecords)
	api.Get("/records/:cve", s.getRecord)
	api.Post("/refresh", s.postRefresh)

	s.app = app
	return s
}

// App returns the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Refresh reruns the ranking and swaps in the new result. A failed run
// keeps the previous result.
func (s *Server) Refresh(ctx context.Context) (*pipeline.Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, errRefreshRunning
	}
	defer s.running.Store(false)

	start := time.Now()
	result, err := s.ranker.Run(ctx)
	if err != nil {
		return nil, oops.In("server").Wrapf(err, "refresh failed")
	}

	s.mu.Lock()
	s.result = result
	s.refreshed = time.Now()
	s.mu.Unlock()

	log.WithPrefix("server").Info("Ranking refreshed",
		log.String("run_id", result.RunID),
		log.Int("ranked", len(result.Ranked)),
		log.Duration("took", time.Since(start)))
	return result, nil
}

// Serve listens on addr until ctx is cancelled
func (s *Server) Serve(ctx context.Context, addr string) error {
	logger := log.WithPrefix("server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(addr)
	}()
	logger.Info("Listening", log.String("addr", addr))

	select {
	case err := <-errCh:
		return oops.In("server").With("addr", addr).Wrapf(err, "failed to start server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		return oops.In("server").Wrapf(err, "shutdown failed")
	}
	logger.Info("Server stopped")
	return nil
}

var errRefreshRunning = oops.In("server").Errorf("refresh already in progress")

func (s *Server) current() (*pipeline.Result, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result, s.refreshed
}

func unavailable(c *fiber.Ctx) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"success": false,
		"message": "no ranking available yet",
	})
}

func (s *Server) getRanked(c *fiber.Ctx) error {
	result, refreshed := s.current()
	if result == nil {
		return unavailable(c)
	}

	ranked := result.Ranked
	if c.QueryBool("kev") {
		ranked = lo.Filter(ranked, func(r models.ScoredRecord, _ int) bool {
			return r.KEV
		})
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"message": "limit must be a non-negative integer",
			})
		}
		if n > 0 && n < len(ranked) {
			ranked = ranked[:n]
		}
	}
	if ranked == nil {
		ranked = []models.ScoredRecord{}
	}

	return c.JSON(fiber.Map{
		"run_id":       result.RunID,
		"refreshed_at": refreshed.UTC(),
		"ranked":       ranked,
	})
}

func (s *Server) getSummary(c *fiber.Ctx) error {
	result, refreshed := s.current()
	if result == nil {
		return unavailable(c)
	}
	return c.JSON(fiber.Map{
		"run_id":          result.RunID,
		"profile_version": result.ProfileVersion,
		"refreshed_at":    refreshed.UTC(),
		"summary":         result.Summary,
		"by_priority":     result.ByPriority,
		"stats":           result.Stats,
		"unscorable":      result.Unscorable,
		"history_errors":  result.HistoryErrors,
	})
}

func (s *Server) getRecords(c *fiber.Ctx) error {
	result, _ := s.current()
	if result == nil {
		return unavailable(c)
	}

	records := result.Records
	if p := c.Query("priority"); p != "" {
		records = lo.Filter(records, func(r models.VulnerabilityRecord, _ int) bool {
			return strings.EqualFold(string(r.SAPPriority), p)
		})
	}
	if records == nil {
		records = []models.VulnerabilityRecord{}
	}
	return c.JSON(fiber.Map{
		"count":   len(records),
		"records": records,
	})
}

func (s *Server) getRecord(c *fiber.Ctx) error {
	result, _ := s.current()
	if result == nil {
		return unavailable(c)
	}

	id := strings.ToUpper(c.Params("cve"))
	if scored, ok := lo.Find(result.Ranked, func(r models.ScoredRecord) bool { return r.CVEID == id }); ok {
		return c.JSON(fiber.Map{
			"ranked": true,
			"record": scored,
		})
	}
	if rec, ok := lo.Find(result.Records, func(r models.VulnerabilityRecord) bool { return r.CVEID == id }); ok {
		return c.JSON(fiber.Map{
			"ranked": false,
			"record": rec,
		})
	}
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"success": false,
		"message": "unknown CVE " + id,
	})
}

func (s *Server) postRefresh(c *fiber.Ctx) error {
	result, err := s.Refresh(c.UserContext())
	if errors.Is(err, errRefreshRunning) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Refresh already in progress",
		})
	}
	if err != nil {
		log.WithPrefix("server").Error("Refresh failed", log.Err(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"run_id":  result.RunID,
		"ranked":  len(result.Ranked),
	})
}

func accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	log.WithPrefix("http").Debug("Request",
		log.String("method", c.Method()),
		log.String("path", c.Path()),
		log.Int("status", c.Response().StatusCode()),
		log.Duration("took", time.Since(start)),
		log.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)))
	return err
}
