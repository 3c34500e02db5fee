package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"github.com/xpdeck/xpdeck/internal/device"
	"github.com/xpdeck/xpdeck/internal/discovery"
	"github.com/xpdeck/xpdeck/internal/panel"
	"github.com/xpdeck/xpdeck/internal/profile"
	"github.com/xpdeck/xpdeck/internal/sim"
	"github.com/xpdeck/xpdeck/internal/ui"
	"github.com/xpdeck/xpdeck/internal/xplane"
)

// Validate command

var (
	strict      bool
	checkXPlane bool
)

var validateCmd = &cobra.Command{
	Use:   "validate [profile]",
	Short: "Check a profile and show its pages",
	Long: `Load a profile the way 'run' does and print every page with its keys
and knob slots, followed by any warnings. Malformed keys are not fatal at
run time, they show up as empty slots; use --strict to fail on warnings.

With --xplane every dataref and command named in the profile is looked up
in the running simulator, which catches typos before a flight.`,
	Example: `  xpdeck validate cockpit.yaml
  xpdeck validate cockpit.toml --strict
  xpdeck validate cockpit.yaml --xplane --xplane-host 192.168.1.20`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		applyRunFlags()
		p, err := loadProfile(args)
		if err != nil {
			ui.PrintFailure(out, "Cannot load profile", err, []string{
				"Check the file path and extension (.yaml, .yml or .toml)",
				"The top level must be a list of pages, or a table with a 'pages' list",
			})
			return err
		}

		ui.PrintCommandHeader(out, "Profile check", "xpdeck validate",
			ui.Param{Key: "Profile", Value: p.Path},
			ui.Param{Key: "Pages", Value: fmt.Sprint(p.Len())},
		)
		fmt.Fprintln(out, ui.RenderProfile(p))

		datarefs, commands := profileNames(p)
		details := []ui.Param{
			{Key: "Pages", Value: fmt.Sprint(p.Len())},
			{Key: "Default page", Value: fmt.Sprint(p.DefaultPage + 1)},
			{Key: "Datarefs", Value: fmt.Sprint(len(datarefs))},
			{Key: "Commands", Value: fmt.Sprint(len(commands))},
		}
		warnings := len(p.Warnings)

		if checkXPlane {
			missing, err := lookupNames(cmd.Context(), datarefs, commands)
			if err != nil {
				ui.PrintFailure(out, "Cannot check names against X-Plane", err, hintLines(err))
				return err
			}
			if len(missing) > 0 {
				fmt.Fprintln(out, ui.RenderWarnings(missing))
			}
			details = append(details, ui.Param{Key: "Unknown in X-Plane", Value: fmt.Sprint(len(missing))})
			warnings += len(missing)
		}

		if warnings > 0 {
			ui.PrintWarning(out, fmt.Sprintf("Profile loaded with %d warnings", warnings), details...)
			if strict {
				return fmt.Errorf("%d profile warnings", warnings)
			}
			return nil
		}
		ui.PrintSuccess(out, "Profile is valid", details...)
		return nil
	},
}

// profileNames returns the distinct datarefs and commands the profile uses,
// in order of first appearance.
func profileNames(p *profile.Profile) (datarefs, commands []string) {
	seen := make(map[string]bool)
	add := func(list *[]string, name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		*list = append(*list, name)
	}
	for _, page := range p.Pages {
		for _, k := range slices.Concat(page.Keys, page.Left, page.Right) {
			if k == nil {
				continue
			}
			if k.IsGauge() {
				for _, s := range k.Display.Sources {
					add(&datarefs, s.Dataref)
				}
			}
			for _, kind := range []profile.ActionKind{profile.ActionPressed, profile.ActionInc, profile.ActionDec} {
				if a := k.Action(kind); a != nil {
					add(&commands, a.Command)
				}
			}
		}
	}
	return datarefs, commands
}

// lookupNames resolves every name against the X-Plane web API and returns
// a warning for each one the simulator does not know. Network failures
// abort the check.
func lookupNames(ctx context.Context, datarefs, commands []string) ([]string, error) {
	client := xplane.NewClient(settings.XPlane.Host, settings.XPlane.Port)
	client.SetRetry(1, 500*time.Millisecond)
	defer client.Close()

	var missing []string
	check := func(kind, name string, lookup func(context.Context, string) (int64, error)) error {
		_, err := lookup(ctx, name)
		switch {
		case err == nil:
		case xplane.IsNotFound(err):
			missing = append(missing, fmt.Sprintf("%s %q is unknown to X-Plane", kind, name))
		default:
			return err
		}
		return nil
	}
	for _, name := range datarefs {
		if err := check("dataref", name, client.LookupDataref); err != nil {
			return missing, err
		}
	}
	for _, name := range commands {
		if err := check("command", name, client.LookupCommand); err != nil {
			return missing, err
		}
	}
	return missing, nil
}

// hintLines turns an X-Plane error hint into troubleshooting bullets.
func hintLines(err error) []string {
	var lines []string
	for _, line := range strings.Split(xplane.GetTroubleshootingHint(err), "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "•"))
		if line == "" || line == "Troubleshooting:" {
			continue
		}
		lines = append(lines, line)
	}
	if !xplane.IsNetworkError(err) {
		return lines
	}
	return append(lines, fmt.Sprintf("xpdeck looked for X-Plane at %s", xplaneTarget()))
}

// Render command

var (
	renderOut   string
	renderPage  int
	renderScale int
)

var renderCmd = &cobra.Command{
	Use:   "render [profile]",
	Short: "Render pages to PNG files",
	Long: `Draw pages of a profile the way the panel shows them, without a panel
or X-Plane, and save them as PNG images. Gauges show their placeholder
values.`,
	Example: `  # Every page into ./pages
  xpdeck render cockpit.yaml --out pages

  # Page 2 at double size
  xpdeck render cockpit.yaml --page 2 --scale 2`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile(args)
		if err != nil {
			return err
		}
		if renderPage < 0 || renderPage > p.Len() {
			return fmt.Errorf("page %d out of range (1-%d)", renderPage, p.Len())
		}
		if renderScale < 1 {
			return fmt.Errorf("scale must be at least 1")
		}
		if err := os.MkdirAll(renderOut, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		pages := []int{renderPage - 1}
		if renderPage == 0 {
			pages = pages[:0]
			for i := 0; i < p.Len(); i++ {
				pages = append(pages, i)
			}
		}

		out := cmd.OutOrStdout()
		for _, i := range pages {
			img, err := renderGlass(cmd.Context(), p, i)
			if err != nil {
				return err
			}
			if renderScale > 1 {
				b := img.Bounds()
				img = imaging.Resize(img, b.Dx()*renderScale, b.Dy()*renderScale, imaging.NearestNeighbor)
			}
			name := filepath.Join(renderOut, fmt.Sprintf("page-%02d-%s.png", i+1, slug(p.Page(i).Name)))
			if err := imaging.Save(img, name); err != nil {
				return fmt.Errorf("failed to save %s: %w", name, err)
			}
			fmt.Fprintf(out, "  %s %s\n", ui.SuccessMarker, name)
		}
		return nil
	},
}

func init() {
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", ".", "Output directory")
	renderCmd.Flags().IntVar(&renderPage, "page", 0, "Page to render, 1-based (0 = all)")
	renderCmd.Flags().IntVar(&renderScale, "scale", 1, "Integer upscale factor")

	validateCmd.Flags().BoolVar(&strict, "strict", false, "Fail when the profile has warnings")
	validateCmd.Flags().BoolVar(&checkXPlane, "xplane", false, "Look up datarefs and commands in the running simulator")
	validateCmd.Flags().StringVar(&xplaneHost, "xplane-host", "", "X-Plane host (default from settings: localhost)")
	validateCmd.Flags().IntVar(&xplanePort, "xplane-port", 0, "X-Plane web API port (default from settings: 8086)")
}

// renderGlass runs a controller against an offscreen panel and returns the
// glass with page i showing.
func renderGlass(ctx context.Context, p *profile.Profile, i int) (image.Image, error) {
	hw := sim.NewHardware()
	off := sim.NewOffscreen(hw,
		device.Event{Kind: device.EventConnect},
		device.Event{Kind: device.EventDown, Button: device.PageButton(i)},
	)
	if err := panel.New(p, nil).Run(ctx, off); err != nil {
		return nil, err
	}
	return hw.Glass(), nil
}

func slug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "-"):
			b.WriteByte('-')
		}
	}
	if s := strings.Trim(b.String(), "-"); s != "" {
		return s
	}
	return "page"
}

// Scan command

var (
	scanTimeout time.Duration
	scanNoMDNS  bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Look for panels",
	Long: `Run one discovery round and list the panels found: USB-attached
Loupedeck Live devices (network interfaces in 100.127.0.0/16) and
simulated panels advertising _xpdeck._tcp on mDNS.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scanner := discovery.NewScanner()
		scanner.Timeout = scanTimeout
		if scanTimeout <= 0 {
			scanner.Timeout = time.Duration(settings.Device.DiscoverTimeout) * time.Second
		}
		scanner.SkipMDNS = scanNoMDNS

		out := cmd.OutOrStdout()
		ui.PrintCommandHeader(out, "Panel discovery", "xpdeck scan",
			ui.Param{Key: "mDNS", Value: mdnsSummary(scanner)},
		)
		found, err := scanner.Scan(cmd.Context())
		if err != nil {
			ui.PrintFailure(out, "Discovery failed", err, []string{
				"Check that the panel is plugged in and powered",
				"For a simulated panel, start 'xpdeck sim' on the same network",
			})
			return err
		}
		fmt.Fprintln(out, ui.RenderEndpoints(found))
		return nil
	},
}

func init() {
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 0, "mDNS browse window (default from settings: 3s)")
	scanCmd.Flags().BoolVar(&scanNoMDNS, "no-mdns", false, "Only check network interfaces")
}

func mdnsSummary(s *discovery.Scanner) string {
	if s.SkipMDNS {
		return "disabled"
	}
	return fmt.Sprintf("%s for %s", s.Service, s.Timeout)
}
