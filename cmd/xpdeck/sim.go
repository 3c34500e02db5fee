package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/xpdeck/xpdeck/internal/sim"
	"github.com/xpdeck/xpdeck/internal/ui"
)

// Sim command flags
var (
	simHost       string
	simPort       int
	simNoMDNS     bool
	simHeadless   bool
	simCaptureDir string

	analyzeCommand string
	analyzeQuiet   bool
)

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Start a simulated panel",
	Long: `Start a simulated Loupedeck Live that speaks the device protocol over
WebSocket. The glass is drawn in the terminal and the keyboard stands in for
the buttons, knobs and touch keys. The simulator advertises itself on mDNS
so 'xpdeck run' finds it without --device.

To record every packet for protocol analysis, use --capture-dir.`,
	Example: `  # Interactive simulator on the default port
  xpdeck sim

  # Headless, on a fixed port, capturing packets
  xpdeck sim --headless --port 9000 --capture-dir ./captures`,
	Args: cobra.NoArgs,
	RunE: runSim,
}

func init() {
	simCmd.Flags().StringVar(&simHost, "host", "", "Listen address (empty = all interfaces)")
	simCmd.Flags().IntVar(&simPort, "port", 0, "Listen port (default from settings: 8790)")
	simCmd.Flags().BoolVar(&simNoMDNS, "no-mdns", false, "Do not advertise on mDNS")
	simCmd.Flags().BoolVar(&simHeadless, "headless", false, "Run without the terminal front panel")
	simCmd.Flags().StringVar(&simCaptureDir, "capture-dir", "", "Directory for packet captures (disabled if not specified)")

	analyzeCmd.Flags().StringVar(&analyzeCommand, "command", "", "Only show packets of this command (e.g. SET_COLOR)")
	analyzeCmd.Flags().BoolVarP(&analyzeQuiet, "quiet", "q", false, "Print the summary only")
	simCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <capture.jsonl>",
	Short: "Decode a packet capture",
	Long: `Decode a capture written by 'xpdeck sim --capture-dir'. Every packet is
parsed back into its message and a per-command summary is printed at the end.`,
	Example: `  xpdeck sim analyze captures/capture-20261018-101500.jsonl
  xpdeck sim analyze --command SET_COLOR captures/capture-20261018-101500.jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	records, err := sim.ReadCapture(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	out := cmd.OutOrStdout()
	ui.PrintCommandHeader(out, "Capture analysis", "xpdeck sim analyze",
		ui.Param{Key: "File", Value: args[0]},
		ui.Param{Key: "Packets", Value: strconv.Itoa(len(records))},
	)

	failed := 0
	for _, rec := range records {
		if analyzeCommand != "" && !strings.EqualFold(rec.Command, analyzeCommand) {
			continue
		}
		msg, err := rec.Decode()
		if err != nil {
			failed++
		}
		if analyzeQuiet {
			continue
		}
		desc := fmt.Sprint(msg)
		if err != nil {
			desc = ui.ErrorMessageStyle.Render(err.Error())
		}
		fmt.Fprintf(out, "#%-5d %s  %-11s tx=%-3d %s\n",
			rec.MessageNum, rec.Timestamp.Format("15:04:05.000"), rec.Direction, rec.Transaction, desc)
	}

	var details []ui.Param
	for _, c := range sim.Summarize(records) {
		details = append(details, ui.Param{
			Key:   c.Direction + " " + c.Command,
			Value: fmt.Sprintf("%d packets, %d bytes", c.Count, c.Bytes),
		})
	}
	if failed > 0 {
		details = append(details, ui.Param{Key: "Undecodable", Value: strconv.Itoa(failed)})
		ui.PrintWarning(out, "Capture decoded with errors", details...)
		return nil
	}
	ui.PrintSuccess(out, "Capture decoded", details...)
	return nil
}

func runSim(cmd *cobra.Command, args []string) error {
	port := settings.Simulator.Port
	if simPort > 0 {
		port = simPort
	}
	srv, err := sim.New(&sim.Config{
		Host:       simHost,
		Port:       port,
		Name:       settings.Simulator.Name,
		Advertise:  settings.Simulator.Advertise && !simNoMDNS,
		CaptureDir: simCaptureDir,
	})
	if err != nil {
		return fmt.Errorf("failed to create simulator: %w", err)
	}
	if err := srv.Listen(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() { errChan <- srv.Start(ctx) }()
	atexit.Register(stop)

	interactive := !simHeadless && ui.IsTerminal()
	if !interactive {
		ui.PrintCommandHeader(cmd.OutOrStdout(), "Simulated panel", "xpdeck sim",
			ui.Param{Key: "Address", Value: srv.Addr().String()},
			ui.Param{Key: "Serial", Value: sim.Serial},
			ui.Param{Key: "Capture", Value: captureSummary()},
		)
		return <-errChan
	}

	err = sim.RunFrontPanel(ctx, srv)
	// quitting the front panel stops the simulator
	stop()
	if serr := <-errChan; err == nil {
		err = serr
	}
	return err
}

func captureSummary() string {
	if simCaptureDir == "" {
		return "disabled"
	}
	return simCaptureDir
}
