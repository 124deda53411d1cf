package ingest

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jpegBlob(payload []byte) []byte {
	data := []byte{0xFF, 0xD8}
	data = append(data, payload...)
	return append(data, 0xFF, 0xD9)
}

func TestReadJPEGFramesSplitsOnMarkers(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(jpegBlob([]byte{0x01, 0x02, 0x03}))
	stream.Write(jpegBlob([]byte{0x04, 0x05}))
	stream.Write(jpegBlob([]byte{0x06}))

	var frames [][]byte
	n, err := readJPEGFrames(context.Background(), &stream, 0, func(index int, data []byte) error {
		assert.Equal(t, len(frames), index)
		frames = append(frames, data)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, frames, 3)

	for _, f := range frames {
		assert.Equal(t, []byte{0xFF, 0xD8}, f[:2])
		assert.Equal(t, []byte{0xFF, 0xD9}, f[len(f)-2:])
	}
}

func TestReadJPEGFramesHonorsMaxFrames(t *testing.T) {
	var stream bytes.Buffer
	for i := 0; i < 10; i++ {
		stream.Write(jpegBlob([]byte{byte(i)}))
	}

	count := 0
	n, err := readJPEGFrames(context.Background(), &stream, 4, func(int, []byte) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 4, count)
}

func TestReadJPEGFramesEmptyStream(t *testing.T) {
	_, err := readJPEGFrames(context.Background(), bytes.NewReader(nil), 0, func(int, []byte) error {
		t.Fatal("callback should not run")
		return nil
	})
	require.Error(t, err)
}

func TestReadJPEGFramesTruncatedTail(t *testing.T) {
	var stream bytes.Buffer
	stream.Write(jpegBlob([]byte{0x01}))
	stream.Write([]byte{0xFF, 0xD8, 0x02, 0x03}) // frame cut off mid-stream

	n, err := readJPEGFrames(context.Background(), &stream, 0, func(int, []byte) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
