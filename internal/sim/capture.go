package sim

import (
	"bufio"
	"cmp"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xpdeck/xpdeck/internal/logging"
	"github.com/xpdeck/xpdeck/internal/protocol"
)

// Capture directions
const (
	HostToPanel = "host->panel"
	PanelToHost = "panel->host"
)

// PacketRecord is one captured packet.
type PacketRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	MessageNum   int       `json:"message_num"`
	RemoteAddr   string    `json:"remote_addr"`
	Direction    string    `json:"direction"`
	Command      string    `json:"command"`
	Cmd          byte      `json:"cmd"`
	Transaction  byte      `json:"transaction"`
	PayloadLen   int       `json:"payload_length"`
	PayloadHex   string    `json:"payload_hex"`
	PayloadASCII string    `json:"payload_ascii"`
}

// Capture appends packets to a JSON Lines file. A nil *Capture discards
// everything.
type Capture struct {
	mu   sync.Mutex
	path string
	f    *os.File
	enc  *json.Encoder
	n    int
}

// NewCapture creates dir/capture-<timestamp>.jsonl. An empty dir disables
// capturing and returns nil.
func NewCapture(dir string) (*Capture, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create capture directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("capture-%s.jsonl", time.Now().Format("20060102-150405")))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture file: %w", err)
	}
	logging.Info("Capturing packets", zap.String("filename", path))
	return &Capture{path: path, f: f, enc: json.NewEncoder(f)}, nil
}

// Path returns the capture file name.
func (c *Capture) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// Record appends one packet.
func (c *Capture) Record(remoteAddr, direction string, data []byte) {
	if c == nil {
		return
	}
	rec := PacketRecord{
		Timestamp:  time.Now(),
		RemoteAddr: remoteAddr,
		Direction:  direction,
	}
	if p, err := protocol.ParsePacket(data); err == nil {
		rec.Command = p.Command.String()
		rec.Cmd = byte(p.Command)
		rec.Transaction = p.Transaction
		rec.PayloadLen = len(p.Payload)
		rec.PayloadHex = hex.EncodeToString(p.Payload)
		rec.PayloadASCII = toASCII(p.Payload)
	} else {
		rec.Command = "malformed"
		rec.PayloadLen = len(data)
		rec.PayloadHex = hex.EncodeToString(data)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	rec.MessageNum = c.n
	if err := c.enc.Encode(rec); err != nil {
		logging.Error("Failed to write to capture file",
			zap.String("filename", c.path),
			zap.Error(err),
		)
	}
}

// Close closes the capture file.
func (c *Capture) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.f.Close()
}

// toASCII converts bytes to ASCII string (non-printable chars become '.')
func toASCII(data []byte) string {
	result := make([]byte, len(data))
	for i, b := range data {
		if b >= 32 && b <= 126 {
			result[i] = b
		} else {
			result[i] = '.'
		}
	}
	return string(result)
}

// maxCaptureLine fits a full center framebuffer in hex.
const maxCaptureLine = 1 << 22

// ReadCapture parses a capture file.
func ReadCapture(r io.Reader) ([]PacketRecord, error) {
	var records []PacketRecord
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxCaptureLine)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec PacketRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return records, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return records, fmt.Errorf("failed to read capture: %w", err)
	}
	return records, nil
}

// Decode parses the captured packet back into a message.
func (r PacketRecord) Decode() (protocol.Message, error) {
	if r.Command == "malformed" {
		return nil, fmt.Errorf("packet #%d was malformed when captured", r.MessageNum)
	}
	payload, err := hex.DecodeString(r.PayloadHex)
	if err != nil {
		return nil, fmt.Errorf("packet #%d: %w", r.MessageNum, err)
	}
	p, err := protocol.ParsePacket(protocol.BuildPacket(protocol.Command(r.Cmd), r.Transaction, payload))
	if err != nil {
		return nil, err
	}
	return p.ParseMessage()
}

// CommandCount is how often one command went one way.
type CommandCount struct {
	Direction string
	Command   string
	Count     int
	Bytes     int
}

// Summarize counts packets per direction and command.
func Summarize(records []PacketRecord) []CommandCount {
	index := make(map[[2]string]int)
	var out []CommandCount
	for _, r := range records {
		k := [2]string{r.Direction, r.Command}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, CommandCount{Direction: r.Direction, Command: r.Command})
		}
		out[i].Count++
		out[i].Bytes += r.PayloadLen
	}
	slices.SortFunc(out, func(a, b CommandCount) int {
		return cmp.Or(cmp.Compare(a.Direction, b.Direction), cmp.Compare(a.Command, b.Command))
	})
	return out
}
