package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/inkwell/internal/draft"
)

func TestCodecFor(t *testing.T) {
	tests := []struct {
		name string
		want Codec
		ok   bool
	}{
		{"backup-00000001.jsonl", Plain, true},
		{"backup-00000001.jsonl.zst", Zstd, true},
		{"backup-00000001.json", nil, false},
		{"backup-00000001.zst", nil, false},
	}

	for _, tt := range tests {
		got, ok := codecFor(tt.name)
		if ok != tt.ok || got != tt.want {
			t.Errorf("codecFor(%q) = %v, %v, want %v, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestZstdStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := openTestStore(t, dir, 5, WithPrefix("backup"), WithCodec(Zstd))

	content := strings.Repeat("the tide came in and went out again ", 200)
	res, err := s.Save(ctx, draft.Draft{Content: content}, "")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "backup-00000001.jsonl.zst"), res.Snapshot.Location)

	info, err := os.Stat(res.Snapshot.Location)
	require.NoError(t, err)
	require.Less(t, info.Size(), int64(len(content)), "record should be compressed")

	loaded, err := s.Load(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, content, loaded.Payload.Content)
	require.Equal(t, 1600, loaded.WordCount)

	history, err := s.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, 1600, history[0].WordCount)
}

func TestStore_ReadsMixedCodecs(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	plain := openTestStore(t, dir, 10, WithPrefix("backup"))
	_, err := plain.Save(ctx, page(1), "")
	require.NoError(t, err)

	compressed := openTestStore(t, dir, 10, WithPrefix("backup"), WithCodec(Zstd))
	_, err = compressed.Save(ctx, page(2), "")
	require.NoError(t, err)

	history, err := plain.History(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, []int{2, 1}, versionsOf(history))

	latest, err := plain.LoadLatest(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, latest.Version)
	require.Equal(t, "page 2 of the story", latest.Payload.Content)

	first, err := compressed.Load(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "page 1 of the story", first.Payload.Content)
}

func TestZstd_CorruptStreamIsExcluded(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := openTestStore(t, dir, 5, WithPrefix("backup"), WithCodec(Zstd))

	_, err := s.Save(ctx, page(1), "")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "backup-00000002.jsonl.zst"), []byte("not zstd"), 0600))

	history, err := s.History(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, []int{1}, versionsOf(history))
}
