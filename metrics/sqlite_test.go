package metrics

import "path/filepath"
import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

func TestSQLiteSeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs", "metrics.db")
	s, err := OpenSQLite(path, -1)
	require.NoError(t, err)
	defer s.Close()

	for step, v := range []float64{0.9, 0.5, 0.25} {
		require.NoError(t, s.Scalar(TrainLoss, step, v))
	}
	require.NoError(t, s.Scalar(ValidLoss, 2, 0.3))

	series, err := s.Series(TrainLoss)
	require.NoError(t, err)
	require.Len(t, series, 3)
	for i, p := range series {
		assert.Equal(t, i, p.Step)
		assert.Equal(t, s.RunID, p.RunID)
	}
	assert.Equal(t, 0.25, series[2].Value)
}

func TestSQLitePurge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.db")
	first, err := OpenSQLite(path, -1)
	require.NoError(t, err)
	for step := 0; step < 10; step++ {
		require.NoError(t, first.Scalar(TrainLoss, step, float64(step)))
	}
	require.NoError(t, first.Close())

	second, err := OpenSQLite(path, 6)
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.Scalar(TrainLoss, 6, -1))

	series, err := second.Series(TrainLoss)
	require.NoError(t, err)
	require.Len(t, series, 7)
	assert.Equal(t, -1.0, series[6].Value)
	assert.Equal(t, second.RunID, series[6].RunID)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestClosedSink(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "m.db"), -1)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.NoError(t, s.Close())
	assert.Error(t, s.Scalar(TestLoss, 0, 1))
}

func TestNop(t *testing.T) {
	var sink Sink = Nop{}
	assert.NoError(t, sink.Scalar(TrainLoss, 1, 2))
	assert.NoError(t, sink.Flush())
	assert.NoError(t, sink.Close())
}
