// Package ingest decodes inspection videos into JPEG frame streams via an
// ffmpeg subprocess.
package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
)

// FrameCallback is called for each extracted JPEG frame, in capture order.
type FrameCallback func(index int, frameData []byte) error

// FFmpegExtractor extracts JPEG frames from a local video file using FFmpeg.
// The zero value is ready to use.
type FFmpegExtractor struct{}

// Extract decodes the video at path, sampling fps frames per second and
// scaling to the given width, and calls the callback once per frame. It
// blocks until the video ends, maxFrames frames have been extracted, or the
// context is cancelled. A missing or broken ffmpeg binary surfaces as an
// error from here, not a crash.
func (f *FFmpegExtractor) Extract(ctx context.Context, path string, fps, width, maxFrames int, callback FrameCallback) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	args := []string{
		"-hide_banner",
		"-loglevel", "warning",
		"-i", path,
		"-vf", fmt.Sprintf("fps=%d,scale=%d:-1", fps, width),
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "5",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return 0, fmt.Errorf("ffmpeg stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start ffmpeg: %w", err)
	}

	// Log stderr in background
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			slog.Warn("ffmpeg stderr", "output", scanner.Text())
		}
	}()

	count, err := readJPEGFrames(ctx, stdout, maxFrames, callback)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		if ctx.Err() != nil {
			return count, ctx.Err()
		}
		return count, fmt.Errorf("read frames: %w", err)
	}

	if count >= maxFrames && maxFrames > 0 {
		// Stop decoding once the frame cap is reached.
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return count, nil
	}

	if err := cmd.Wait(); err != nil {
		if count > 0 {
			// ffmpeg exits non-zero when killed mid-stream; the frames we
			// already have are still usable.
			slog.Warn("ffmpeg exited with error after producing frames", "frames", count, "error", err)
			return count, nil
		}
		return count, fmt.Errorf("ffmpeg: %w", err)
	}
	return count, nil
}

// readJPEGFrames reads a stream of concatenated JPEG images, scanning for
// SOI/EOI markers.
func readJPEGFrames(ctx context.Context, r io.Reader, maxFrames int, callback FrameCallback) (int, error) {
	reader := bufio.NewReaderSize(r, 512*1024) // 512KB buffer
	framesRead := 0

	for {
		if ctx.Err() != nil {
			return framesRead, ctx.Err()
		}
		if maxFrames > 0 && framesRead >= maxFrames {
			return framesRead, nil
		}

		// Find JPEG start marker: FF D8
		if err := findJPEGStart(reader); err != nil {
			if err == io.EOF {
				if framesRead > 0 {
					return framesRead, nil
				}
				return 0, fmt.Errorf("no frames decoded")
			}
			return framesRead, err
		}

		// Read until JPEG end marker: FF D9
		frameData, err := readUntilJPEGEnd(reader)
		if err != nil {
			if err == io.EOF && framesRead > 0 {
				return framesRead, nil // stream ended mid-frame; treat as normal end
			}
			return framesRead, err
		}

		if len(frameData) > 0 {
			if err := callback(framesRead, frameData); err != nil {
				return framesRead, fmt.Errorf("frame callback: %w", err)
			}
			framesRead++
		}
	}
}

func findJPEGStart(r *bufio.Reader) error {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		if b != 0xFF {
			continue
		}
		b, err = r.ReadByte()
		if err != nil {
			return err
		}
		if b == 0xD8 {
			return nil
		}
	}
}

func readUntilJPEGEnd(r *bufio.Reader) ([]byte, error) {
	// Start with JPEG header
	data := []byte{0xFF, 0xD8}

	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		data = append(data, b)

		if b == 0xFF {
			next, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			data = append(data, next)
			if next == 0xD9 {
				return data, nil
			}
		}

		// Safety: max 10MB per frame
		if len(data) > 10*1024*1024 {
			return nil, fmt.Errorf("jpeg frame too large: %s bytes", strconv.Itoa(len(data)))
		}
	}
}
