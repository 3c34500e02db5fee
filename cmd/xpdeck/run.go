package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"go.uber.org/zap"

	"github.com/xpdeck/xpdeck/internal/device"
	"github.com/xpdeck/xpdeck/internal/discovery"
	"github.com/xpdeck/xpdeck/internal/logging"
	"github.com/xpdeck/xpdeck/internal/panel"
	"github.com/xpdeck/xpdeck/internal/profile"
	"github.com/xpdeck/xpdeck/internal/ui"
	"github.com/xpdeck/xpdeck/internal/xplane"
)

// Run command flags
var (
	deviceAddr  string
	xplaneHost  string
	xplanePort  int
	rateHz      int
	noTelemetry bool
)

var runCmd = &cobra.Command{
	Use:   "run [profile]",
	Short: "Drive the panel from a profile",
	Long: `Connect to the panel and X-Plane and run the profile until interrupted.

The panel is found automatically: a USB-attached Loupedeck Live shows up as
a network interface, simulated panels advertise themselves on mDNS. Use
--device to skip discovery. When the panel disconnects xpdeck goes back to
looking for it; X-Plane may be started before or after xpdeck.`,
	Example: `  # Run the profile from the settings file or config directory
  xpdeck run

  # Run a specific profile against X-Plane on another machine
  xpdeck run cockpit.yaml --xplane-host 192.168.1.20

  # Use the simulated panel started with 'xpdeck sim'
  xpdeck run cockpit.toml --device localhost:8790`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPanel,
}

func init() {
	for _, cmd := range []*cobra.Command{rootCmd, runCmd} {
		cmd.Flags().StringVar(&deviceAddr, "device", "", "Panel address host[:port], skips discovery")
		cmd.Flags().StringVar(&xplaneHost, "xplane-host", "", "X-Plane host (default from settings: localhost)")
		cmd.Flags().IntVar(&xplanePort, "xplane-port", 0, "X-Plane web API port (default from settings: 8086)")
		cmd.Flags().IntVar(&rateHz, "rate", 0, "Dataref updates per second (default from settings: 30)")
		cmd.Flags().BoolVar(&noTelemetry, "no-xplane", false, "Run without X-Plane; gauges show placeholders")
	}
}

// applyRunFlags lets command line flags override settings.
func applyRunFlags() {
	if deviceAddr != "" {
		settings.Device.Address = deviceAddr
	}
	if xplaneHost != "" {
		settings.XPlane.Host = xplaneHost
	}
	if xplanePort > 0 {
		settings.XPlane.Port = xplanePort
	}
	if rateHz > 0 {
		settings.XPlane.RateHz = rateHz
	}
}

// loadProfile resolves and loads the profile, logging its warnings.
func loadProfile(args []string) (*profile.Profile, error) {
	var arg string
	if len(args) > 0 {
		arg = args[0]
	}
	path, err := settings.ResolveProfilePath(arg)
	if err != nil {
		return nil, err
	}
	p, err := profile.Load(path)
	if err != nil {
		return nil, err
	}
	for _, w := range p.Warnings {
		logging.Warn("Profile warning", zap.String("profile", path), zap.String("warning", w))
	}
	return p, nil
}

// liveDevice is the connected panel, closed on exit.
type liveDevice struct {
	mu  sync.Mutex
	dev *device.Live
}

func (l *liveDevice) set(dev *device.Live) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.dev = dev
}

func (l *liveDevice) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dev != nil {
		_ = l.dev.Close()
		l.dev = nil
	}
}

func runPanel(cmd *cobra.Command, args []string) error {
	applyRunFlags()
	p, err := loadProfile(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var telemetry panel.Telemetry
	if !noTelemetry {
		client := xplane.NewClient(settings.XPlane.Host, settings.XPlane.Port)
		atexit.Register(func() { _ = client.Close() })
		telemetry = client
	}

	var live liveDevice
	atexit.Register(live.close)

	ui.PrintCommandHeader(cmd.OutOrStdout(), "X-Plane panel", "xpdeck run",
		ui.Param{Key: "Profile", Value: p.Path},
		ui.Param{Key: "Pages", Value: fmt.Sprint(p.Len())},
		ui.Param{Key: "X-Plane", Value: xplaneTarget()},
		ui.Param{Key: "Device", Value: deviceTarget()},
	)

	ctrl := panel.New(p, telemetry,
		panel.WithRate(float64(settings.XPlane.RateHz)),
		panel.WithRetryDelay(settings.RetryDelay()),
	)
	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(settings.Device.DiscoverTimeout) * time.Second

	for ctx.Err() == nil {
		ep, err := locateDevice(ctx, scanner)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return err
		}

		dev, err := device.Dial(ctx, ep.Addr())
		if err != nil {
			logging.Warn("Failed to connect to device",
				zap.String("endpoint", ep.String()),
				zap.Error(err),
			)
			if !sleep(ctx, settings.RetryDelay()) {
				break
			}
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %s Connected to %s\n", ui.SuccessMarker, ep)
		logging.Info("Device connected",
			zap.String("endpoint", ep.String()),
			zap.String("session", dev.Session()),
		)
		if err := dev.SetBrightness(settings.Device.Brightness); err != nil {
			logging.Warn("Failed to set brightness", zap.Error(err))
		}

		live.set(dev)
		err = ctrl.Run(ctx, dev)
		live.close()
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error("Panel loop stopped", zap.Error(err))
		}
		if ctx.Err() == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s Lost %s, reconnecting\n", ui.FailureMarker, ep)
		}
	}

	logging.Info("Shutting down")
	return nil
}

// locateDevice returns the configured address or runs discovery until a
// panel turns up.
func locateDevice(ctx context.Context, scanner *discovery.Scanner) (*discovery.Endpoint, error) {
	if settings.Device.Address != "" {
		return discovery.Configured(settings.Device.Address)
	}
	return scanner.Find(ctx, settings.RetryDelay())
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func xplaneTarget() string {
	if noTelemetry {
		return "disabled"
	}
	return fmt.Sprintf("%s:%d", settings.XPlane.Host, settings.XPlane.Port)
}

func deviceTarget() string {
	if settings.Device.Address != "" {
		return settings.Device.Address
	}
	return "discover"
}
