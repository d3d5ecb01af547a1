package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"soundscape.klederson.com/internal/app"
	"soundscape.klederson.com/internal/bridge"
	"soundscape.klederson.com/internal/config"
	"soundscape.klederson.com/internal/log"
	"soundscape.klederson.com/internal/scene"
)

var (
	flagScene      string
	flagMute       bool
	flagHeading    string
	flagServe      string
	flagHeadless   bool
	flagBLE        bool
	flagLogLevel   string
	flagLogFile    string
	flagPrintScene bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "soundscape",
		Short: "Soundscape - spatial audio scene with a direction HUD and haptic cues",
		Long: `Soundscape places looping animal calls around a listener, plays them with
positional audio and shows where each one is on a head-locked ring. Loud calls
rumble the controllers.

Walk the scene in the terminal, or serve it to a WebXR page with --serve and
let the headset drive the listener.`,
		RunE:         run,
		SilenceUsage: true,
	}

	f := rootCmd.Flags()
	f.StringVar(&flagScene, "scene", "", "Scene YAML file (env "+config.EnvScene+", default built-in forest)")
	f.BoolVar(&flagMute, "mute", false, "Do not open the audio device")
	f.StringVar(&flagHeading, "heading", "", "Heading mode: absolute or relative (overrides the scene file)")
	f.StringVar(&flagServe, "serve", "", "Serve the WebXR bridge on this address, e.g. "+config.DefaultBridgeAddr)
	f.BoolVar(&flagHeadless, "headless", false, "With --serve, run without the terminal UI")
	f.BoolVar(&flagBLE, "ble", false, "Scan for Bluetooth controllers (needs sudo or CAP_NET_ADMIN)")
	f.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (env "+config.EnvLogLevel+")")
	f.StringVar(&flagLogFile, "log-file", "", "Write logs to this file while the terminal UI runs")
	f.BoolVar(&flagPrintScene, "print-scene", false, "Print the resolved scene as YAML and exit")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	headless := flagServe != "" && flagHeadless
	closeLog, err := initLog(headless)
	if err != nil {
		return err
	}
	defer closeLog()

	path := config.Resolve(flagScene, config.EnvScene, "")
	cfg, err := config.LoadScene(path)
	if err != nil {
		return err
	}

	if flagPrintScene {
		data, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	opts := scene.Options{SampleRate: config.SampleRate, Heading: flagHeading}
	if path != "" {
		opts.BaseDir = filepath.Dir(path)
	}
	sc, err := scene.Build(cfg, opts)
	if err != nil {
		return err
	}
	defer sc.Close()

	muted := flagMute
	if !muted {
		if err := sc.Engine().StartSpeaker(); err != nil {
			log.Warn("audio unavailable, continuing muted", "err", err)
			muted = true
		}
	}
	sc.Engine().SetMuted(muted)

	var srv *bridge.Server
	if flagServe != "" {
		srv = bridge.NewServer(sc)
		if headless {
			return serveHeadless(srv, flagServe)
		}
		go func() {
			if err := srv.Listen(flagServe); err != nil {
				log.Error("bridge stopped", "err", err)
			}
		}()
		defer srv.Shutdown()
	}

	appOpts := app.Options{Muted: muted, BLE: flagBLE}
	if srv != nil {
		appOpts.Sessions = srv.SessionCount
	}
	model := app.New(sc, appOpts)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithFPS(config.TargetFPS),
	)

	if err := model.StartScanners(p); err != nil {
		log.Warn("controller scan unavailable", "err", err)
		go p.Send(app.ScanErrorMsg{Err: err})
	}

	_, err = p.Run()
	return err
}

// initLog sends logs to stderr when headless. The terminal UI owns the
// screen, so there logs go to --log-file or nowhere.
func initLog(headless bool) (func(), error) {
	level := config.Resolve(flagLogLevel, config.EnvLogLevel, "info")
	switch {
	case headless:
		log.Init(os.Stderr, level)
	case flagLogFile != "":
		f, err := os.OpenFile(flagLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		log.Init(f, level)
		return func() { f.Close() }, nil
	default:
		log.Discard()
	}
	return func() {}, nil
}

func serveHeadless(srv *bridge.Server, addr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.Listen(addr) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		return srv.Shutdown()
	}
}
