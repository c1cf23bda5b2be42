package checkpoint

import "errors"
import "os"
import "path/filepath"
import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

import "github.com/neurlang/diffar/optim"

func record(step int) *Record {
	return &Record{
		Step:  step,
		Model: map[string][]float32{"w": {float32(step), 1, 2}},
		Optimizer: optim.State{LR: 1e-4, Beta1: 0.9, Beta2: 0.999, Eps: 1e-8,
			Slots: map[string]optim.Slot{"w": {Step: step, ExpAvg: []float32{0.5, 0, 0}, ExpAvgSq: []float32{0.25, 0, 0}}}},
		Params: map[string]any{"batch_size": 4.0, "model_dir": "runs/a"},
	}
}

func TestRoundTrip(t *testing.T) {
	s := New(t.TempDir(), 0, nil)
	want := record(7)
	path, err := s.Save(General, want)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root, "weights-7.ckpt"), path)

	got, err := s.Restore(General)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRestoreEmptyPool(t *testing.T) {
	s := New(t.TempDir(), 0, nil)
	rec, err := s.Restore(BestValid)
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRetention(t *testing.T) {
	s := New(t.TempDir(), 0, nil)
	for step := 1; step <= 9; step++ {
		_, err := s.Save(BestTrain, record(step*10))
		require.NoError(t, err)
	}
	entries, err := s.List(BestTrain)
	require.NoError(t, err)
	var steps []int
	for _, e := range entries {
		steps = append(steps, e.Step)
	}
	assert.Equal(t, []int{60, 70, 80, 90}, steps)

	files, err := os.ReadDir(s.Dir(BestTrain))
	require.NoError(t, err)
	assert.Len(t, files, DefaultKeep+1)

	latest, err := s.Latest(BestTrain)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(BestTrain), "weights-90.ckpt"), latest)

	rec, err := s.Restore(BestTrain)
	require.NoError(t, err)
	assert.Equal(t, 90, rec.Step)
}

func TestRetentionOrdersByStep(t *testing.T) {
	s := New(t.TempDir(), 2, nil)
	for _, step := range []int{5, 100, 20} {
		_, err := s.Save(General, record(step))
		require.NoError(t, err)
	}
	entries, err := s.List(General)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 20, entries[0].Step)
	assert.Equal(t, 100, entries[1].Step)
}

func TestPoolsAreSeparate(t *testing.T) {
	s := New(t.TempDir(), 0, nil)
	_, err := s.Save(General, record(1))
	require.NoError(t, err)
	_, err = s.Save(BestValid, record(2))
	require.NoError(t, err)

	general, err := s.List(General)
	require.NoError(t, err)
	valid, err := s.List(BestValid)
	require.NoError(t, err)
	assert.Len(t, general, 1)
	assert.Len(t, valid, 1)
	assert.DirExists(t, filepath.Join(s.Root, "min_val"))
}

func TestCorruptIsFatal(t *testing.T) {
	s := New(t.TempDir(), 0, nil)
	path, err := s.Save(General, record(3))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("not a checkpoint"), 0o644))

	rec, err := s.Restore(General)
	assert.Nil(t, rec)
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestDanglingAliasStartsFresh(t *testing.T) {
	s := New(t.TempDir(), 0, nil)
	path, err := s.Save(General, record(3))
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	rec, err := s.Restore(General)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestBadPointerIsCorrupt(t *testing.T) {
	s := New(t.TempDir(), 0, nil)
	require.NoError(t, os.WriteFile(filepath.Join(s.Root, alias), []byte("not a pointer"), 0o644))

	_, err := s.Restore(General)
	assert.True(t, errors.Is(err, ErrCorrupt))
}

func TestPointerAlias(t *testing.T) {
	s := New(t.TempDir(), 0, nil)
	path, err := s.Save(General, record(11))
	require.NoError(t, err)
	link := filepath.Join(s.Root, alias)
	require.NoError(t, os.Remove(link))
	require.NoError(t, os.WriteFile(link, []byte(pointerID+"weights-11.ckpt\n"), 0o644))

	latest, err := s.Latest(General)
	require.NoError(t, err)
	assert.Equal(t, path, latest)
	rec, err := s.Restore(General)
	require.NoError(t, err)
	assert.Equal(t, 11, rec.Step)
}
