package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/smazurov/mxcamera/internal/wire"
	"github.com/spf13/cobra"
)

type receiveOptions struct {
	Count    int
	DumpDir  string
	Interval time.Duration
}

type receiveStats struct {
	Frames  uint64
	Bytes   uint64
	Gaps    uint64
	Lost    uint64
	Skipped int64

	lastID uint32
	haveID bool
}

// observe records a frame id and returns how many ids were missed before it.
func (s *receiveStats) observe(id uint32) uint32 {
	var missed uint32
	if s.haveID && id != s.lastID+1 {
		missed = id - s.lastID - 1
		s.Gaps++
		s.Lost += uint64(missed)
	}
	s.lastID = id
	s.haveID = true
	return missed
}

// CreateReceiveCmd connects to a running camera and checks the stream.
func CreateReceiveCmd() *cobra.Command {
	var opts receiveOptions
	var dialTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "receive [host:port]",
		Short: "Receive and check the raw TCP frame stream",
		Long: "Connects as the stream client, resynchronizes on the frame marker, checks that frame ids are " +
			"consecutive and reports the receive rate. With --dump, payloads are written to disk.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := "127.0.0.1:8888"
			if len(args) == 1 {
				addr = args[0]
			}
			if opts.DumpDir != "" {
				if err := os.MkdirAll(opts.DumpDir, 0o755); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var d net.Dialer
			dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
			conn, err := d.DialContext(dialCtx, "tcp", addr)
			cancel()
			if err != nil {
				return err
			}
			defer conn.Close()
			// Unblocks the read on Ctrl-C.
			context.AfterFunc(ctx, func() { _ = conn.Close() })

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Connected to %s\n", addr)
			stats, err := receive(ctx, conn, opts, out)
			fmt.Fprintf(out, "Received %d frames (%d bytes), %d gaps, %d frames lost, %d bytes skipped\n",
				stats.Frames, stats.Bytes, stats.Gaps, stats.Lost, stats.Skipped)
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&opts.Count, "count", "n", 0, "Stop after this many frames (0 = until interrupted)")
	cmd.Flags().StringVar(&opts.DumpDir, "dump", "", "Write each payload to this directory")
	cmd.Flags().DurationVar(&opts.Interval, "interval", time.Second, "Rate report interval")
	cmd.Flags().DurationVar(&dialTimeout, "dial-timeout", 5*time.Second, "Connect timeout")
	return cmd
}

// receive reads frames from r until EOF, an error or opts.Count frames.
func receive(ctx context.Context, r io.Reader, opts receiveOptions, out io.Writer) (receiveStats, error) {
	var stats receiveStats
	reader := wire.NewReader(r, 0)
	var buf []byte

	interval := opts.Interval
	if interval <= 0 {
		interval = time.Second
	}
	windowStart := time.Now()
	var windowFrames uint64

	for opts.Count <= 0 || stats.Frames < uint64(opts.Count) {
		h, payload, err := reader.ReadFrame(buf)
		buf = payload
		stats.Skipped = reader.Skipped
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return stats, nil
			}
			return stats, err
		}

		if missed := stats.observe(h.FrameID); missed > 0 {
			fmt.Fprintf(out, "frame %d: %d frames missed\n", h.FrameID, missed)
		}
		stats.Frames++
		stats.Bytes += uint64(len(payload))
		windowFrames++

		if opts.DumpDir != "" {
			name := fmt.Sprintf("frame_%08d_%dx%d.raw", h.FrameID, h.Width, h.Height)
			if err := os.WriteFile(filepath.Join(opts.DumpDir, name), payload, 0o644); err != nil {
				return stats, err
			}
		}

		if elapsed := time.Since(windowStart); elapsed >= interval {
			fmt.Fprintf(out, "%.2f fps, frame %d, %dx%d, %d bytes\n",
				float64(windowFrames)/elapsed.Seconds(), h.FrameID, h.Width, h.Height, h.Size)
			windowStart = time.Now()
			windowFrames = 0
		}
	}
	return stats, nil
}
