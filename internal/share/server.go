// Package share exposes the archive directory over plain HTTP so a peer can
// fetch the latest backup, and fetches archives from a peer's share session.
package share

import (
	"context"
	"fmt"
	"html"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/yourusername/backup-manager/internal/backup"
)

// Server is an ephemeral HTTP share session over the archive directory.
// It binds all interfaces and blocks until the context is cancelled.
type Server struct {
	dir  string
	port int
	hub  *EventHub
}

// NewServer creates a share server for the given archive directory
func NewServer(dir string, port int) *Server {
	return &Server{
		dir:  dir,
		port: port,
		hub:  NewEventHub(),
	}
}

// Run serves until the context is cancelled. Fails with ErrNoBackups when
// the archive directory holds no archive to share.
func (s *Server) Run(ctx context.Context) error {
	latest, err := backup.LatestArchive(s.dir)
	if err != nil {
		return err
	}

	// index.html is a plain redirect convenience for browsers, not a
	// format contract.
	if err := s.writeIndexRedirect(filepath.Base(latest)); err != nil {
		log.Printf("[Share] Warning: failed to write index.html: %v", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/", s.handleListing)
	router.GET("/events", s.handleEvents)
	router.GET("/:filename", s.handleFile)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", s.port),
		Handler:     router,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("[Share] Sharing %s on port %d (latest: %s)", s.dir, s.port, filepath.Base(latest))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("share server failed: %w", err)
	}
	return nil
}

func (s *Server) writeIndexRedirect(filename string) error {
	content := fmt.Sprintf(
		`<!DOCTYPE html><html><head><meta http-equiv="refresh" content="0; url=/%s"></head></html>`,
		html.EscapeString(filename))
	return os.WriteFile(filepath.Join(s.dir, "index.html"), []byte(content), 0644)
}

func (s *Server) handleListing(c *gin.Context) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		c.String(http.StatusInternalServerError, "failed to read archive directory")
		return
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html><html><body><h1>Backups</h1><ul>")
	for _, entry := range entries {
		if entry.IsDir() || !backup.IsArchiveName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		name := html.EscapeString(entry.Name())
		fmt.Fprintf(&sb, `<li><a href="/%s">%s</a> (%s)</li>`,
			name, name, humanize.Bytes(uint64(info.Size())))
	}
	sb.WriteString("</ul></body></html>")

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(sb.String()))
}

func (s *Server) handleFile(c *gin.Context) {
	filename := c.Param("filename")
	if strings.ContainsAny(filename, `/\`) || filename != filepath.Base(filename) {
		c.Status(http.StatusBadRequest)
		return
	}

	path := filepath.Join(s.dir, filename)
	if _, err := os.Stat(path); err != nil {
		c.Status(http.StatusNotFound)
		return
	}

	log.Printf("[Share] Serving %s to %s", filename, c.ClientIP())
	s.hub.Broadcast(Event{Type: "transfer_started", Filename: filename, Timestamp: time.Now()})
	c.File(path)
	s.hub.Broadcast(Event{Type: "transfer_completed", Filename: filename, Timestamp: time.Now()})
}
