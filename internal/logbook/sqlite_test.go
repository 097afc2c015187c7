package logbook

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/home-controller/internal/device"
	"github.com/sweeney/home-controller/internal/sensor"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "data", DefaultDatabaseFile))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteActions(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.AppendAction(ActionEntry{Time: base, DeviceID: "led1", Action: device.StateOn, Origin: OriginLocal}))
	require.NoError(t, s.AppendAction(ActionEntry{Time: base.Add(time.Second), DeviceID: "led1", Action: device.StateOff, Origin: OriginBus}))
	require.NoError(t, s.AppendAction(ActionEntry{Time: base.Add(2 * time.Second), DeviceID: "fan", Action: device.StateOn, Origin: OriginLocal}))

	recent, err := s.RecentActions(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	assert.Equal(t, "led1", recent[0].DeviceID)
	assert.Equal(t, device.StateOff, recent[0].Action)
	assert.Equal(t, OriginBus, recent[0].Origin)
	assert.True(t, recent[0].Time.Equal(base.Add(time.Second)))

	assert.Equal(t, "fan", recent[1].DeviceID)
	assert.Equal(t, OriginLocal, recent[1].Origin)

	all, err := s.RecentActions(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLiteRejectsInvalidAction(t *testing.T) {
	s := openTestStore(t)

	err := s.AppendAction(ActionEntry{Time: time.Now(), DeviceID: "led1", Action: device.State("DIM")})
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestSQLiteReadings(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, v := range []float64{24.1, 25.2, 26.3} {
		require.NoError(t, s.AppendReading(sensor.Reading{Time: base.Add(time.Duration(i) * 5 * time.Second), Value: v}))
	}

	readings, err := s.RecentReadings(10)
	require.NoError(t, err)
	require.Len(t, readings, 3)
	assert.InDelta(t, 24.1, readings[0].Value, 1e-9)
	assert.InDelta(t, 26.3, readings[2].Value, 1e-9)
}

func TestSQLiteReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultDatabaseFile)

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.AppendAction(ActionEntry{Time: time.Now(), DeviceID: "led2", Action: device.StateOn, Origin: OriginLocal}))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	recent, err := s.RecentActions(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "led2", recent[0].DeviceID)
	assert.Equal(t, path, s.Path())
}
