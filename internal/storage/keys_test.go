package storage

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestObjectKeyLayout(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	assert.Equal(t, "videos/11111111-2222-3333-4444-555555555555/reference.mp4", VideoKey(id, RoleReference))
	assert.Equal(t, "videos/11111111-2222-3333-4444-555555555555/damaged.mp4", VideoKey(id, RoleDamaged))
	assert.Equal(t, "frames/11111111-2222-3333-4444-555555555555/damaged/processed_0007.jpg", FrameKey(id, RoleDamaged, 7))
	assert.Equal(t, "maps/11111111-2222-3333-4444-555555555555/crack_binary_0000.png", CrackBinaryKey(id, 0))
	assert.Equal(t, "maps/11111111-2222-3333-4444-555555555555/crack_map_0012.png", CrackMapKey(id, 12))
	assert.Equal(t, "results/11111111-2222-3333-4444-555555555555/crack_detection_results.json", ResultKey(id, "crack_detection_results.json"))
}

func TestPrefixesContainTheirKeys(t *testing.T) {
	id := uuid.New()

	assert.Contains(t, FrameKey(id, RoleReference, 3), FramesPrefix(id, RoleReference))
	assert.Contains(t, CrackBinaryKey(id, 3), MapsPrefix(id))
	assert.Contains(t, CrackMapKey(id, 3), MapsPrefix(id))
	assert.Contains(t, VideoKey(id, RoleDamaged), VideosPrefix(id))
	assert.Contains(t, ResultKey(id, "x.json"), ResultsPrefix(id))
}

func TestFrameKeysSortPositionally(t *testing.T) {
	id := uuid.New()

	// Zero-padded indices keep lexical listing order equal to frame order.
	assert.Less(t, FrameKey(id, RoleDamaged, 9), FrameKey(id, RoleDamaged, 10))
	assert.Less(t, FrameKey(id, RoleDamaged, 99), FrameKey(id, RoleDamaged, 100))
}
