// Package app is the terminal front end: a Bubble Tea model that walks the
// listener around the scene, steps it every frame and draws the HUD.
package app

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"soundscape.klederson.com/internal/config"
	"soundscape.klederson.com/internal/controller"
	"soundscape.klederson.com/internal/frame"
	"soundscape.klederson.com/internal/hud"
	"soundscape.klederson.com/internal/indicator"
	"soundscape.klederson.com/internal/log"
	"soundscape.klederson.com/internal/scene"
	"soundscape.klederson.com/internal/spatial"
	"soundscape.klederson.com/internal/ui"
)

// Options configure the model.
type Options struct {
	Muted    bool
	BLE      bool       // scan for real controllers
	Sessions func() int // connected bridge pages, nil when not serving
}

// shared holds state shared between the Bubble Tea model copies and main.go.
// Because Bubble Tea uses value receivers, pointer fields ensure all copies
// see the same underlying data.
type shared struct {
	scene   *scene.Scene
	store   *controller.Store
	pads    []*controller.Simulated
	glow    *hud.Glow
	history map[string]*PeakRing

	bleScanner     *controller.BLEScanner
	classicScanner *controller.ClassicScanner
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	width  int
	height int

	pose     spatial.Pose
	haptic   bool
	detail   bool
	cursor   int
	elapsed  time.Duration
	lastTick time.Time
	notice   string

	opts   Options
	shared *shared

	// Cached snapshot
	snap scene.Snapshot
}

// New creates a model that starts at the scene's listener pose with both
// simulated pads rumbling.
func New(sc *scene.Scene, opts Options) AppModel {
	return AppModel{
		pose:   sc.Start(),
		haptic: true,
		opts:   opts,
		shared: &shared{
			scene: sc,
			store: controller.NewStore(),
			pads: []*controller.Simulated{
				controller.NewSimulated("sim-left", controller.HandLeft),
				controller.NewSimulated("sim-right", controller.HandRight),
			},
			glow:    hud.NewGlow(),
			history: make(map[string]*PeakRing),
		},
	}
}

func (m AppModel) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd()}
	if m.opts.BLE {
		cmds = append(cmds, evictCmd())
	}
	return tea.Batch(cmds...)
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		m = m.step(time.Time(msg))
		return m, tickCmd()

	case EvictMsg:
		if n := m.shared.store.Evict(config.ControllerTimeout); n > 0 {
			log.Debug("controllers evicted", "count", n)
		}
		return m, evictCmd()

	case controller.DiscoveredMsg:
		m.shared.store.Upsert(msg.Address, msg.Name, float64(msg.RSSI), msg.Transport)
		return m, nil

	case ScanErrorMsg:
		log.Warn("controller scan failed", "err", msg.Err)
		m.notice = "scan failed"
		return m, nil
	}

	return m, nil
}

// step advances the scene to now and refreshes the cached snapshot.
func (m AppModel) step(now time.Time) AppModel {
	dt := time.Second / time.Duration(config.TargetFPS)
	if !m.lastTick.IsZero() {
		dt = now.Sub(m.lastTick)
	}
	if dt < 0 {
		dt = 0
	}
	m.lastTick = now
	m.elapsed += dt

	m.snap = m.shared.scene.Step(frame.Context{
		Pose:        m.pose,
		Controllers: m.controllers(),
		Elapsed:     m.elapsed,
		Delta:       dt,
	})

	m.shared.glow.Update(dt)
	for _, p := range m.snap.Pulses {
		if p.Result == controller.ResultFired {
			m.shared.glow.Trigger(max(p.Effect.Strong, p.Effect.Weak))
		}
	}

	for _, s := range m.snap.Sources {
		key := s.ID.String()
		ring, ok := m.shared.history[key]
		if !ok {
			ring = NewPeakRing(config.HistoryLen)
			m.shared.history[key] = ring
		}
		ring.Push(s.Peak)
	}

	if n := len(m.snap.Sources); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	return m
}

// controllers lists the simulated pads followed by discovered pads.
func (m AppModel) controllers() []controller.Handle {
	handles := make([]controller.Handle, 0, len(m.shared.pads)+m.shared.store.Count())
	for _, p := range m.shared.pads {
		handles = append(handles, p)
	}
	return append(handles, m.shared.store.Handles()...)
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	turn := spatial.Radians(config.TurnStepDeg)

	switch msg.String() {
	case "q", "Q", "ctrl+c":
		m.stopScanners()
		return m, tea.Quit

	case "left":
		m.pose = m.pose.Turned(turn)
	case "right":
		m.pose = m.pose.Turned(-turn)
	case "w", "W":
		m.pose = m.pose.Moved(config.MoveStep, 0)
	case "s", "S":
		m.pose = m.pose.Moved(-config.MoveStep, 0)
	case "a", "A":
		m.pose = m.pose.Moved(0, -config.MoveStep)
	case "d", "D":
		m.pose = m.pose.Moved(0, config.MoveStep)

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.snap.Sources)-1 {
			m.cursor++
		}

	case " ":
		if id := m.selected(); id != uuid.Nil {
			if err := m.shared.scene.Toggle(id); err != nil {
				log.Warn("toggle failed", "source", id, "err", err)
			}
		}

	case "enter":
		m.detail = len(m.snap.Sources) > 0
	case "esc":
		m.detail = false

	case "h", "H":
		m.haptic = !m.haptic
		for _, p := range m.shared.pads {
			p.SetHaptics(m.haptic)
		}

	case "m", "M":
		mode := indicator.HeadingRelative
		if m.shared.scene.Mode() == indicator.HeadingRelative {
			mode = indicator.HeadingAbsolute
		}
		m.shared.scene.SetMode(mode)
		log.Info("heading mode", "mode", mode.String())
	}

	return m, nil
}

func (m AppModel) selected() uuid.UUID {
	if m.cursor < 0 || m.cursor >= len(m.snap.Sources) {
		return uuid.Nil
	}
	return m.snap.Sources[m.cursor].ID
}

// pointFor finds the bearing point of a source, nil for ambient ones.
func (m AppModel) pointFor(id uuid.UUID) *indicator.PointState {
	for i := range m.snap.Points {
		if m.snap.Points[i].ID == id {
			return &m.snap.Points[i]
		}
	}
	return nil
}

func (m AppModel) rumble() float64 {
	var r float64
	for _, p := range m.shared.pads {
		r = max(r, p.Rumble())
	}
	return r
}

func (m AppModel) histories() map[string][]float64 {
	out := make(map[string][]float64, len(m.shared.history))
	for k, r := range m.shared.history {
		out[k] = r.Values()
	}
	return out
}

func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing soundscape..."
	}

	menuH := 1
	statusH := 1
	bodyH := m.height - menuH - statusH
	if bodyH < 5 {
		bodyH = 5
	}

	hudW := m.width * 3 / 4
	if hudW < 30 {
		hudW = 30
	}
	listW := m.width - hudW
	if listW < 15 {
		listW = 15
		hudW = m.width - listW
	}

	menuBar := ui.RenderMenuBar(m.width, m.shared.scene.Name(), m.opts.Muted)

	var hudPanel string
	if m.detail && m.cursor < len(m.snap.Sources) {
		src := m.snap.Sources[m.cursor]
		var hist []float64
		if r, ok := m.shared.history[src.ID.String()]; ok {
			hist = r.Values()
		}
		hudPanel = ui.RenderDetailPanel(src, m.pointFor(src.ID), m.snap.Ring, hudW, bodyH, hist)
	} else {
		innerW := max(hudW-4, 5)
		innerH := max(bodyH-4, 3)
		content := hud.Render(innerW, innerH, m.snap, m.shared.glow, m.selected())
		hudPanel = ui.RenderHUDPanel(hudW, bodyH, content, hud.RenderLegend(innerW))
	}

	sourceList := ui.RenderSourceList(m.snap.Sources, m.histories(), listW, bodyH, m.cursor)

	st := ui.Status{
		Position:    m.pose.Position,
		YawDeg:      spatial.Degrees(spatial.Yaw(m.pose)),
		Mode:        m.shared.scene.Mode().String(),
		Controllers: len(m.shared.pads) + m.shared.store.Count(),
		Haptic:      m.haptic,
		Rumble:      m.rumble(),
		Notice:      m.notice,
	}
	if m.opts.Sessions != nil {
		st.Sessions = m.opts.Sessions()
	}
	statusBar := ui.RenderStatusBar(m.width, st)

	return ui.ComposeLayout(menuBar, hudPanel, sourceList, statusBar)
}

// StartScanners starts controller discovery when BLE is enabled. Must be
// called before p.Run().
func (m *AppModel) StartScanners(p *tea.Program) error {
	if !m.opts.BLE {
		return nil
	}

	m.shared.bleScanner = controller.NewBLEScanner()
	if err := m.shared.bleScanner.Start(p); err != nil {
		m.shared.bleScanner = nil
		return err
	}

	if controller.ClassicScannerAvailable() {
		m.shared.classicScanner = controller.NewClassicScanner(
			time.Duration(config.ClassicScanSec) * time.Second)
		_ = m.shared.classicScanner.Start(p)
	}

	return nil
}

func (m *AppModel) stopScanners() {
	if m.shared.bleScanner != nil {
		m.shared.bleScanner.Stop()
	}
	if m.shared.classicScanner != nil {
		m.shared.classicScanner.Stop()
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(config.TargetFPS), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func evictCmd() tea.Cmd {
	return tea.Tick(config.EvictInterval, func(t time.Time) tea.Msg {
		return EvictMsg(t)
	})
}
