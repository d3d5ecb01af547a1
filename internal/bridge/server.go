// Package bridge serves the scene to a WebXR page over a websocket: the page
// streams its camera pose and gamepads each frame and gets back bearing
// points to draw and haptic pulses to play.
package bridge

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"soundscape.klederson.com/internal/config"
	"soundscape.klederson.com/internal/controller"
	"soundscape.klederson.com/internal/frame"
	"soundscape.klederson.com/internal/indicator"
	"soundscape.klederson.com/internal/log"
	"soundscape.klederson.com/internal/scene"
)

// ErrSessionInUse rejects a page that reuses a connected session id.
var ErrSessionInUse = errors.New("session id already connected")

// Session is one connected page.
type Session struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time

	mu       sync.Mutex // guards writes and the fields below
	lastSeen time.Time
	elapsed  time.Duration
	frames   uint64
	outbox   controller.Outbox
}

// Send writes a message to the page.
func (s *Session) Send(msg *Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Conn.WriteMessage(websocket.TextMessage, data)
}

// Server bridges WebXR pages to one scene.
type Server struct {
	scene *scene.Scene
	app   *fiber.App

	mu       sync.RWMutex
	sessions map[string]*Session

	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	framesStepped    atomic.Uint64
	started          time.Time
}

// NewServer creates a bridge for sc with its routes registered.
func NewServer(sc *scene.Scene) *Server {
	s := &Server{
		scene:    sc,
		sessions: make(map[string]*Session),
		started:  time.Now(),
	}
	s.app = fiber.New(fiber.Config{
		AppName:               config.AppName,
		DisableStartupMessage: true,
	})
	s.app.Use(recover.New())
	// The page is usually served from another origin.
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	s.RegisterRoutes(s.app)
	s.RegisterAPIRoutes(s.app.Group("/api"))
	return s
}

// App returns the Fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	log.Info("bridge listening", "addr", addr, "ws", "/ws/xr")
	return s.app.Listen(addr)
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	log.Info("bridge listening", "addr", ln.Addr().String(), "ws", "/ws/xr")
	return s.app.Listener(ln)
}

// Shutdown closes every session and stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// RegisterRoutes registers the websocket endpoint and health check.
func (s *Server) RegisterRoutes(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"scene":    s.scene.Name(),
			"sessions": s.SessionCount(),
			"uptime":   time.Since(s.started).Round(time.Second).String(),
		})
	})

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/xr", websocket.New(s.handleXR))
	app.Get("/ws/xr/:id", websocket.New(s.handleXR))
}

func (s *Server) handleXR(c *websocket.Conn) {
	id := c.Params("id")
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	sess := &Session{ID: id, Conn: c, Connected: now, lastSeen: now}

	s.mu.Lock()
	if _, taken := s.sessions[id]; taken {
		s.mu.Unlock()
		log.Warn("xr session id in use", "session", id)
		if msg, err := NewMessage(TypeError, fiber.Map{"error": ErrSessionInUse.Error()}); err == nil {
			sess.Send(msg)
		}
		return
	}
	s.sessions[id] = sess
	count := len(s.sessions)
	s.mu.Unlock()
	log.Info("xr session connected", "session", id, "sessions", count)

	defer func() {
		s.mu.Lock()
		if s.sessions[id] == sess {
			delete(s.sessions, id)
		}
		count := len(s.sessions)
		s.mu.Unlock()
		log.Info("xr session closed", "session", id, "sessions", count)
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			log.Debug("xr read ended", "session", id, "err", err)
			return
		}
		s.messagesReceived.Add(1)
		sess.mu.Lock()
		sess.lastSeen = time.Now()
		sess.mu.Unlock()

		reply, err := s.handleMessage(sess, data)
		if err != nil {
			log.Warn("xr message rejected", "session", id, "err", err)
			reply, _ = NewMessage(TypeError, fiber.Map{"error": err.Error()})
		}
		if reply == nil {
			continue
		}
		if err := sess.Send(reply); err != nil {
			log.Debug("xr write failed", "session", id, "err", err)
			return
		}
		s.messagesSent.Add(1)
	}
}

// handleMessage returns the reply to send, if any.
func (s *Server) handleMessage(sess *Session, data []byte) (*Message, error) {
	msg, err := ParseMessage(data)
	if err != nil {
		return nil, err
	}

	switch msg.Type {
	case TypeFrame:
		var f FrameData
		if err := msg.ParseData(&f); err != nil {
			return nil, err
		}
		st, err := s.step(sess, f)
		if err != nil {
			return nil, err
		}
		return NewMessage(TypeState, st)

	case TypeToggle:
		var t ToggleData
		if err := msg.ParseData(&t); err != nil {
			return nil, err
		}
		return nil, s.toggle(t)

	case TypeMove:
		var m MoveData
		if err := msg.ParseData(&m); err != nil {
			return nil, err
		}
		return nil, s.move(m)

	case TypeMode:
		var m ModeData
		if err := msg.ParseData(&m); err != nil {
			return nil, err
		}
		mode, err := indicator.ParseHeadingMode(m.Mode)
		if err != nil {
			return nil, err
		}
		s.scene.SetMode(mode)
		return nil, nil

	case TypePing:
		return NewMessage(TypePong, fiber.Map{"ping_ts": msg.Timestamp})

	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// step runs one scene frame for the session's pose and gamepads.
func (s *Server) step(sess *Session, f FrameData) (StateData, error) {
	pose, err := f.Pose()
	if err != nil {
		return StateData{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	handles := make([]controller.Handle, 0, len(f.Gamepads))
	for i, g := range f.Gamepads {
		id := fmt.Sprintf("%s/%d", sess.ID, i)
		handles = append(handles, controller.NewRemote(id, controller.ParseHand(g.Handedness), g.Haptics, &sess.outbox))
	}

	dt := f.Delta()
	sess.elapsed += dt
	sess.frames++
	snap := s.scene.Step(frame.Context{
		Pose:        pose,
		Controllers: handles,
		Elapsed:     sess.elapsed,
		Delta:       dt,
	})
	s.framesStepped.Add(1)
	return newState(snap, sess.outbox.Drain()), nil
}

func (s *Server) toggle(t ToggleData) error {
	id, err := uuid.Parse(t.ID)
	if err != nil {
		return fmt.Errorf("toggle: %w", err)
	}
	if t.Playing == nil {
		return s.scene.Toggle(id)
	}
	return s.scene.SetPlaying(id, *t.Playing)
}

func (s *Server) move(m MoveData) error {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return fmt.Errorf("move: %w", err)
	}
	pos, err := m.Vec()
	if err != nil {
		return err
	}
	return s.scene.Move(id, pos)
}

// SessionCount returns the number of connected pages.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SessionInfo describes a connected page.
type SessionInfo struct {
	ID        string    `json:"id"`
	Connected time.Time `json:"connected"`
	LastSeen  time.Time `json:"last_seen"`
	Frames    uint64    `json:"frames"`
}

// Sessions lists connected pages.
func (s *Server) Sessions() []SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sess.mu.Lock()
		out = append(out, SessionInfo{
			ID:        sess.ID,
			Connected: sess.Connected,
			LastSeen:  sess.lastSeen,
			Frames:    sess.frames,
		})
		sess.mu.Unlock()
	}
	return out
}

// Stats contains bridge counters.
type Stats struct {
	Sessions         int    `json:"sessions"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	FramesStepped    uint64 `json:"frames_stepped"`
}

// GetStats returns bridge counters.
func (s *Server) GetStats() Stats {
	return Stats{
		Sessions:         s.SessionCount(),
		MessagesReceived: s.messagesReceived.Load(),
		MessagesSent:     s.messagesSent.Load(),
		FramesStepped:    s.framesStepped.Load(),
	}
}

// RegisterAPIRoutes registers the JSON API.
func (s *Server) RegisterAPIRoutes(api fiber.Router) {
	api.Get("/state", func(c *fiber.Ctx) error {
		return c.JSON(newState(s.scene.Last(), nil))
	})

	api.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(s.GetStats())
	})

	api.Get("/sessions", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"sessions": s.Sessions(),
			"count":    s.SessionCount(),
		})
	})

	api.Post("/sources/:id/toggle", func(c *fiber.Ctx) error {
		if err := s.toggle(ToggleData{ID: c.Params("id")}); err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api.Put("/sources/:id/position", func(c *fiber.Ctx) error {
		var m MoveData
		if err := c.BodyParser(&m); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		m.ID = c.Params("id")
		if err := s.move(m); err != nil {
			status := fiber.StatusBadRequest
			if errors.Is(err, scene.ErrUnknownSource) {
				status = fiber.StatusNotFound
			}
			return c.Status(status).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api.Put("/mode", func(c *fiber.Ctx) error {
		var m ModeData
		if err := c.BodyParser(&m); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		mode, err := indicator.ParseHeadingMode(m.Mode)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		s.scene.SetMode(mode)
		return c.JSON(fiber.Map{"mode": mode.String()})
	})
}
