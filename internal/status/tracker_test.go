package status

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soc-console/internal/client/notify"
	coreerrors "soc-console/internal/core/errors"
	"soc-console/internal/core/events"
	corelog "soc-console/internal/core/log"
)

type fakeConn struct {
	connected    atomic.Bool
	reconnecting atomic.Bool
}

func (c *fakeConn) Connected() bool    { return c.connected.Load() }
func (c *fakeConn) Reconnecting() bool { return c.reconnecting.Load() }

type fixture struct {
	bus      *events.Bus
	conn     *fakeConn
	rec      *notify.Recorder
	tracker  *Tracker
	refreshs atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		bus:  events.NewBus(corelog.NewTestLogger(t)),
		conn: &fakeConn{},
		rec:  notify.NewRecorder(),
	}
	f.conn.connected.Store(true)
	f.tracker = NewTracker(context.Background(), f.bus, f.conn, f.rec, Options{
		ConsoleHost:     "manager.example",
		RefreshInterval: time.Hour,
		Refresh: func(ctx context.Context) error {
			f.refreshs.Add(1)
			return nil
		},
		Logger: corelog.NewTestLogger(t),
	})
	require.NoError(t, f.tracker.Start())
	t.Cleanup(func() { _ = f.tracker.Close() })
	return f
}

func (f *fixture) publish(t *testing.T, kind events.Kind, obj interface{}) {
	env, err := events.NewEnvelope(kind, obj)
	require.NoError(t, err)
	require.NoError(t, f.bus.Publish(env))
}

func TestEngineStatus_StatePriority(t *testing.T) {
	cases := []struct {
		name   string
		status EngineStatus
		want   EngineState
	}{
		{"healthy", EngineStatus{}, StateHealthy},
		{"migrating wins", EngineStatus{Migrating: true, Importing: true, Syncing: true, SyncFailure: true}, StateMigrating},
		{"importing while syncing", EngineStatus{Importing: true, Syncing: true, MigrationFailure: true}, StateImporting},
		{"migration failure", EngineStatus{MigrationFailure: true, IntegrityFailure: true}, StateMigrationFailure},
		{"integrity over sync failure", EngineStatus{IntegrityFailure: true, SyncFailure: true}, StateIntegrityFailure},
		{"sync failure", EngineStatus{SyncFailure: true, Importing: true}, StateSyncFailure},
		{"import pending", EngineStatus{Importing: true}, StateImportPending},
		{"syncing", EngineStatus{Syncing: true}, StateSyncing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.status.State())
		})
	}
}

func TestEngineState_Severity(t *testing.T) {
	assert.Equal(t, SeverityWarning, StateSyncFailure.Severity())
	assert.Equal(t, SeverityWarning, StateIntegrityFailure.Severity())
	assert.Equal(t, SeverityWarning, StateMigrationFailure.Severity())
	assert.Equal(t, SeveritySuccess, StateHealthy.Severity())
	assert.Equal(t, SeverityNormal, StateSyncing.Severity())
	assert.Equal(t, SeverityNormal, StateUnknown.Severity())
}

func TestCorrectCasing(t *testing.T) {
	assert.Equal(t, "ElastAlert", CorrectCasing("elastalert"))
	assert.Equal(t, "Suricata", CorrectCasing("SURICATA"))
	assert.Equal(t, "other", CorrectCasing("other"))
	assert.Equal(t, []string{"elastalert", "strelka", "suricata"}, Engines())
}

func TestTracker_StatusEvent(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, StateUnknown, f.tracker.DetectionEngineStatus(EngineSuricata))
	assert.False(t, f.tracker.IsAttentionNeeded())

	f.publish(t, events.KindStatus, Status{
		Grid:   GridStatus{TotalNodeCount: 3},
		Alerts: AlertsStatus{NewCount: 0},
		Detections: map[string]EngineStatus{
			EngineElastAlert: {},
			EngineStrelka:    {Syncing: true},
			EngineSuricata:   {},
		},
	})

	st, ok := f.tracker.Current()
	require.True(t, ok)
	assert.Equal(t, 3, st.Grid.TotalNodeCount)
	assert.Equal(t, StateSyncing, f.tracker.DetectionEngineStatus(EngineStrelka))
	assert.Equal(t, StateHealthy, f.tracker.DetectionEngineStatus(EngineSuricata))
	assert.True(t, f.tracker.IsDetectionsUpdating())
	assert.False(t, f.tracker.IsDetectionsUnhealthy())
	assert.False(t, f.tracker.IsAttentionNeeded())

	f.publish(t, events.KindStatus, Status{
		Detections: map[string]EngineStatus{
			EngineStrelka:  {Syncing: true},
			EngineSuricata: {IntegrityFailure: true},
		},
	})
	assert.True(t, f.tracker.IsDetectionsUnhealthy())
	assert.False(t, f.tracker.IsDetectionsUpdating(), "failures suppress the updating flag")
	assert.True(t, f.tracker.IsAttentionNeeded())
}

func TestTracker_AttentionNeeded(t *testing.T) {
	f := newFixture(t)

	f.publish(t, events.KindStatus, Status{Grid: GridStatus{UnhealthyNodeCount: 1}})
	assert.True(t, f.tracker.IsGridUnhealthy())
	assert.True(t, f.tracker.IsAttentionNeeded())

	f.publish(t, events.KindStatus, Status{Alerts: AlertsStatus{NewCount: 2}})
	assert.False(t, f.tracker.IsGridUnhealthy())
	assert.True(t, f.tracker.IsNewAlert())
	assert.True(t, f.tracker.IsAttentionNeeded())

	f.publish(t, events.KindStatus, Status{})
	assert.False(t, f.tracker.IsAttentionNeeded())

	f.conn.connected.Store(false)
	assert.True(t, f.tracker.IsAttentionNeeded())

	f.conn.connected.Store(true)
	f.conn.reconnecting.Store(true)
	assert.True(t, f.tracker.IsAttentionNeeded())
}

func TestTracker_ImportEvents(t *testing.T) {
	f := newFixture(t)

	f.publish(t, events.KindImport, ImportNoChanges)
	f.publish(t, events.KindImport, "https://MANAGER.example/#/grid?node=n1")
	f.publish(t, events.KindImport, "https://elsewhere.example/path")
	f.publish(t, events.KindImport, "")

	assert.Equal(t, []string{
		notify.KeyGridMemberImportNoChanges,
		"Import successful: #/grid?node=n1",
		"Import successful: https://elsewhere.example/path",
	}, f.rec.Messages(notify.LevelInfo))
}

func TestTracker_DetectionSyncEvents(t *testing.T) {
	f := newFixture(t)

	f.publish(t, events.KindDetectionSync, SyncReport{Engine: "suricata", Status: SyncSuccess})
	f.publish(t, events.KindDetectionSync, SyncReport{Engine: "strelka", Status: SyncPartial})
	f.publish(t, events.KindDetectionSync, SyncReport{Engine: "elastalert", Status: SyncError})
	f.publish(t, events.KindDetectionSync, SyncReport{Engine: "suricata", Status: "bogus"})

	assert.Equal(t, []notify.Notification{
		{Level: notify.LevelInfo, Message: "Suricata synchronization completed successfully."},
		{Level: notify.LevelWarning, Message: "Strelka synchronization completed with errors."},
		{Level: notify.LevelError, Message: "ElastAlert synchronization failed."},
	}, f.rec.All())
}

func TestTracker_MalformedEventsAreIgnored(t *testing.T) {
	f := newFixture(t)
	f.publish(t, events.KindStatus, "not an object")
	f.publish(t, events.KindImport, 42)

	_, ok := f.tracker.Current()
	assert.False(t, ok)
	assert.Empty(t, f.rec.All())
}

func TestTracker_RefreshIsThrottled(t *testing.T) {
	f := newFixture(t)

	f.tracker.UpdateStatus(nil)
	f.tracker.UpdateStatus(nil)
	f.publish(t, events.KindStatus, Status{})

	require.Eventually(t, func() bool { return f.refreshs.Load() == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), f.refreshs.Load())
}

func TestTracker_WaitForStatus(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.tracker.WaitForStatus(ctx)
	assert.True(t, coreerrors.IsCode(err, coreerrors.CodeTimeout))

	go func() {
		time.Sleep(10 * time.Millisecond)
		env, _ := events.NewEnvelope(events.KindStatus, Status{Alerts: AlertsStatus{NewCount: 7}})
		_ = f.bus.Publish(env)
	}()
	st, err := f.tracker.WaitForStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, st.Alerts.NewCount)
}

func TestTracker_CloseReleasesSubscriptions(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, 1, f.bus.HandlerCount(events.KindStatus))

	require.NoError(t, f.tracker.Close())
	assert.Equal(t, 0, f.bus.HandlerCount(events.KindStatus))
	assert.Equal(t, 0, f.bus.HandlerCount(events.KindImport))
	assert.Equal(t, 0, f.bus.HandlerCount(events.KindDetectionSync))
}
