package gateway

import (
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hoststate/hoststate/internal/config"
	"github.com/hoststate/hoststate/internal/metrics"
	"github.com/hoststate/hoststate/internal/probe"
	"github.com/hoststate/hoststate/internal/session"
)

// Server exposes sessions to observers over websocket and Socket.IO, plus
// the one-shot query endpoints.
type Server struct {
	registry *session.Registry
	probe    probe.HostProbe
	metrics  *metrics.Collector
	socketIO *SocketIO

	allowAll       bool
	allowedOrigins map[string]bool
	allowedHosts   map[string]bool

	engine *gin.Engine
}

// NewServer builds the router. m may be nil, in which case /metrics is not
// mounted.
func NewServer(cfg *config.Config, registry *session.Registry, p probe.HostProbe, m *metrics.Collector) *Server {
	s := &Server{
		registry:       registry,
		probe:          p,
		metrics:        m,
		allowAll:       cfg.AllowsAnyOrigin(),
		allowedOrigins: make(map[string]bool),
		allowedHosts:   make(map[string]bool),
	}

	for _, origin := range cfg.Server.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" || trimmed == "*" {
			continue
		}
		s.allowedOrigins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.allowedHosts[parsed.Host] = true
		}
	}

	s.socketIO = NewSocketIO(registry, cfg.Server.SocketIOPath)
	s.engine = s.routes(cfg.Server.SocketIOPath)
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

// Close shuts the Socket.IO server down. Sessions belong to the registry
// and are stopped by its Shutdown.
func (s *Server) Close() {
	s.socketIO.Close()
}

func (s *Server) routes(socketIOPath string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), securityHeaders(), cors.New(s.corsConfig()))

	r.GET("/ws", s.handleWS)
	r.GET("/monitors", s.handleMonitors)
	r.GET("/apps", s.handleApps)
	r.GET("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	sio := gin.WrapH(s.socketIO.Handler())
	base := strings.TrimSuffix(socketIOPath, "/")
	r.Any(base, sio)
	r.Any(base+"/*any", sio)

	r.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "Not Found")
	})
	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if s.allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOriginFunc = func(origin string) bool { return s.originAllowed(origin, "") }
	}
	return cfg
}

func (s *Server) handleWS(c *gin.Context) {
	upgrader := websocket.Upgrader{
		CheckOrigin: s.checkOrigin,
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[ws] upgrade error: %v", err)
		return
	}

	client := newWSClient(uuid.NewString(), conn)
	go client.writePump()

	if _, err := s.registry.OnConnect(client.id, client); err != nil {
		log.Printf("[ws %s] rejected: %v", client.id, err)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(writeWait))
		client.close()
		return
	}
	log.Printf("[ws %s] connected: %s", client.id, c.Request.RemoteAddr)

	go func() {
		defer func() {
			s.registry.OnDisconnect(client.id)
			client.close()
			log.Printf("[ws %s] disconnected", client.id)
		}()
		client.readPump()
	}()
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthPayload{Status: "ok", Sessions: s.registry.Count()})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return s.originAllowed(origin, r.Host)
}

// originAllowed applies allowed_origins. With no list configured, only the
// request's own host and loopback origins pass.
func (s *Server) originAllowed(origin, requestHost string) bool {
	if s.allowAll {
		return true
	}

	if len(s.allowedOrigins) > 0 {
		if s.allowedOrigins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.allowedHosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	if requestHost != "" && parsed.Host == requestHost {
		return true
	}
	return isLoopbackHost(parsed.Host)
}

func isLoopbackHost(host string) bool {
	for _, h := range []string{"localhost", "127.0.0.1", "[::1]"} {
		if host == h || strings.HasPrefix(host, h+":") {
			return true
		}
	}
	return host == "::1"
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'self'")
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		// Socket.IO long-polling would flood the log.
		if strings.Contains(c.Request.URL.Path, "socket.io") {
			return
		}
		log.Printf("[http] %s %s - %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
