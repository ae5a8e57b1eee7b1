package statefile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type doc struct {
	Counter int      `json:"counter"`
	Tags    []string `json:"tags"`
}

func TestLoadMissingReturnsZero(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "missing.json"), func() doc { return doc{Counter: -1} })

	v, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, -1, v.Counter)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "state.json"), func() doc { return doc{} })

	require.NoError(t, s.Save(doc{Counter: 3, Tags: []string{"a", "b"}}))

	v, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, 3, v.Counter)
	require.Equal(t, []string{"a", "b"}, v.Tags)
}

func TestMutateAbortsOnError(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "state.json"), func() doc { return doc{Counter: 1} })

	require.NoError(t, s.Save(doc{Counter: 1}))

	_, err := s.Mutate(func(d doc) (doc, error) {
		d.Counter = 99
		return d, assertErr
	})
	require.Error(t, err)

	v, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, 1, v.Counter, "failed mutation must not persist")
}

var assertErr = errFixture{}

type errFixture struct{}

func (errFixture) Error() string { return "fixture error" }
