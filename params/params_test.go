package params

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTempParams(t *testing.T) {
	t.Helper()
	old := ParamsPath
	ParamsPath = filepath.Join(t.TempDir(), "d")
	t.Cleanup(func() { ParamsPath = old })
	EnsureParamDirectories()
}

func TestPutGetRoundTrip(t *testing.T) {
	useTempParams(t)
	path := ParamPath("TestValue")

	require.NoError(t, PutParam(path, []byte("hello")))
	data, err := GetParam(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestPutParamOverwrites(t *testing.T) {
	useTempParams(t)
	path := ParamPath("TestValue")

	require.NoError(t, PutParam(path, []byte("first")))
	require.NoError(t, PutParam(path, []byte("second")))
	data, err := GetParam(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)
}

func TestPutParamLeavesNoTempFiles(t *testing.T) {
	useTempParams(t)
	require.NoError(t, PutParam(ParamPath("TestValue"), []byte("x")))

	entries, err := os.ReadDir(ParamsPath)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "TestValue", entries[0].Name())
}

func TestGetParams(t *testing.T) {
	useTempParams(t)
	require.NoError(t, PutParam(ParamPath("Beta"), []byte("b")))
	require.NoError(t, PutParam(ParamPath("Alpha"), []byte("a")))

	names, err := GetParams()
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Beta"}, names)
}

func TestRemoveParam(t *testing.T) {
	useTempParams(t)
	path := ParamPath("TestValue")
	require.NoError(t, PutParam(path, []byte("x")))

	require.NoError(t, RemoveParam(path))
	exists, err := Exists(path)
	require.NoError(t, err)
	assert.False(t, exists)

	// Removing a missing param is not an error.
	require.NoError(t, RemoveParam(path))
}

func TestExists(t *testing.T) {
	useTempParams(t)

	exists, err := Exists(ParamPath("Nope"))
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = Exists(ParamsPath)
	require.NoError(t, err)
	assert.True(t, exists)
}
