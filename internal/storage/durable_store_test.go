package storage

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Corphon/StoryPlanner/internal/models"
	"github.com/Corphon/StoryPlanner/internal/utils"
)

func newTestDurableStore(kv KeyValueStore, opts ...Option) *DurableStore {
	opts = append([]Option{WithLogger(utils.NewNopLogger())}, opts...)
	return NewDurableStore(kv, opts...)
}

func TestLoadAbsentSlot(t *testing.T) {
	ds := newTestDurableStore(NewMemoryStorage(), WithScheduler(ImmediateScheduler{}))

	snap, ok := ds.Load()
	assert.False(t, ok)
	assert.Nil(t, snap)
}

func TestLoadCorruptSlot(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "{{not json"},
		{"json null", "null"},
		{"json array", "[1,2,3]"},
		{"json string", `"projects"`},
		{"empty", "   "},
		{"wrong field types", `{"projects": 5}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kv := NewMemoryStorage()
			require.NoError(t, kv.SetItem(DefaultKey, []byte(tc.raw)))
			metrics := utils.NewMetricsCollector()
			ds := newTestDurableStore(kv, WithScheduler(ImmediateScheduler{}), WithMetrics(metrics))

			snap, ok := ds.Load()
			assert.False(t, ok)
			assert.Nil(t, snap)
			assert.Equal(t, int64(1), metrics.GetCounterValue(utils.MetricLoadFailures))
		})
	}
}

func TestLoadStorageErrorIsSwallowed(t *testing.T) {
	kv := newRecordingKV()
	kv.getErr = errQuotaExceeded
	ds := newTestDurableStore(kv, WithScheduler(ImmediateScheduler{}))

	snap, ok := ds.Load()
	assert.False(t, ok)
	assert.Nil(t, snap)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	kv := NewMemoryStorage()
	ds := newTestDurableStore(kv, WithScheduler(ImmediateScheduler{}))
	want := sampleSnapshot(t)

	ds.Save(want)

	got, ok := ds.Load()
	require.True(t, ok)
	if diff := cmp.Diff(want, *got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadLegacyWithoutVersion(t *testing.T) {
	kv := NewMemoryStorage()
	require.NoError(t, kv.SetItem(DefaultKey, []byte(`{"projects":[{"id":"p1","title":"Old","status":"planning"}]}`)))
	ds := newTestDurableStore(kv, WithScheduler(ImmediateScheduler{}))

	snap, ok := ds.Load()
	require.True(t, ok)
	assert.Equal(t, models.SnapshotVersion, snap.Version)
	require.Len(t, snap.Projects, 1)
	assert.Equal(t, "Old", snap.Projects[0].Title)
	// 缺失的集合保持 nil，由调用方补齐默认值
	assert.Nil(t, snap.Characters)
}

func TestCustomKey(t *testing.T) {
	kv := NewMemoryStorage()
	ds := newTestDurableStore(kv, WithScheduler(ImmediateScheduler{}), WithKey("other-slot"))
	ds.Save(models.EmptySnapshot())

	_, ok, err := kv.GetItem(DefaultKey)
	require.NoError(t, err)
	assert.False(t, ok)

	raw, ok, err := kv.GetItem("other-slot")
	require.NoError(t, err)
	require.True(t, ok)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.EqualValues(t, models.SnapshotVersion, doc["version"])
	assert.Contains(t, doc, "projects")
	assert.Contains(t, doc, "continuityIssues")
}

func TestDebouncedBurstWritesOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	kv := newRecordingKV()
	ds := newTestDurableStore(kv, WithScheduler(NewDebouncer(50*time.Millisecond)))
	defer ds.Close()

	for i := 1; i <= 10; i++ {
		snap := models.EmptySnapshot()
		snap.Projects = []models.Project{{ID: "p1", Title: "draft", Stats: models.ProjectStats{WordCount: i}}}
		ds.Save(snap)
	}
	assert.True(t, ds.HasPending())
	assert.Zero(t, kv.writeCount())

	require.Eventually(t, func() bool { return kv.writeCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 1, kv.writeCount())
	assert.False(t, ds.HasPending())

	got, ok := ds.Load()
	require.True(t, ok)
	require.Len(t, got.Projects, 1)
	assert.Equal(t, 10, got.Projects[0].Stats.WordCount)
}

func TestFlushWritesPendingImmediately(t *testing.T) {
	kv := newRecordingKV()
	ds := newTestDurableStore(kv, WithScheduler(NewDebouncer(time.Hour)))
	defer ds.Close()

	ds.Save(sampleSnapshot(t))
	assert.Zero(t, kv.writeCount())

	ds.Flush()
	assert.Equal(t, 1, kv.writeCount())
	assert.False(t, ds.HasPending())

	// 没有待写入时 Flush 不产生写入
	ds.Flush()
	assert.Equal(t, 1, kv.writeCount())
}

func TestSaveNowCancelsPending(t *testing.T) {
	kv := newRecordingKV()
	ds := newTestDurableStore(kv, WithScheduler(NewDebouncer(30*time.Millisecond)))
	defer ds.Close()

	stale := models.EmptySnapshot()
	stale.Projects = []models.Project{{ID: "stale", Title: "stale"}}
	ds.Save(stale)

	fresh := models.EmptySnapshot()
	fresh.Projects = []models.Project{{ID: "fresh", Title: "fresh"}}
	require.NoError(t, ds.SaveNow(fresh))
	assert.False(t, ds.HasPending())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, kv.writeCount())

	got, ok := ds.Load()
	require.True(t, ok)
	assert.Equal(t, "fresh", got.Projects[0].ID)
}

func TestClearRemovesSlotAndPending(t *testing.T) {
	kv := newRecordingKV()
	ds := newTestDurableStore(kv, WithScheduler(NewDebouncer(30*time.Millisecond)))
	defer ds.Close()

	require.NoError(t, ds.SaveNow(sampleSnapshot(t)))
	ds.Save(sampleSnapshot(t))

	require.NoError(t, ds.Clear())
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 1, kv.writeCount())
	snap, ok := ds.Load()
	assert.False(t, ok)
	assert.Nil(t, snap)
}

func TestWriteFailureIsSwallowed(t *testing.T) {
	kv := newRecordingKV()
	kv.setErr = errQuotaExceeded
	metrics := utils.NewMetricsCollector()
	ds := newTestDurableStore(kv, WithScheduler(ImmediateScheduler{}), WithMetrics(metrics))

	assert.NotPanics(t, func() { ds.Save(sampleSnapshot(t)) })
	assert.Equal(t, int64(1), metrics.GetCounterValue(utils.MetricPersistErrors))
	assert.Zero(t, metrics.GetCounterValue(utils.MetricPersistWrites))

	// SaveNow 把错误返回给调用方
	assert.ErrorIs(t, ds.SaveNow(sampleSnapshot(t)), errQuotaExceeded)
}

func TestCloseFlushesAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	kv := newRecordingKV()
	ds := newTestDurableStore(kv, WithScheduler(NewDebouncer(time.Hour)))

	ds.Save(sampleSnapshot(t))
	ds.Close()
	assert.Equal(t, 1, kv.writeCount())

	// 关闭后的 Save 不再调度写入
	ds.Save(sampleSnapshot(t))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, kv.writeCount())
}
