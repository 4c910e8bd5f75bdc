package sources

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"youtv/models"
)

func TestDefaultRegistry(t *testing.T) {
	reg := NewRegistry(DefaultSources())

	src, ok := reg.Resolve("bfzy")
	require.True(t, ok)
	assert.Equal(t, "暴风影视", src.Name)
	assert.Equal(t, "https://bfzyapi.com/api.php/provide/vod", src.BaseURL)

	_, ok = reg.Resolve("nope")
	assert.False(t, ok)

	assert.Len(t, reg.ListAll(), 10)
	assert.Len(t, reg.ListNormal(), 10)
	assert.Empty(t, reg.ListAdult())
	assert.Equal(t, "bfzy", reg.Codes()[0])
}

func TestRegistrySnapshotsAreIsolated(t *testing.T) {
	reg := NewRegistry(DefaultSources())
	snap := reg.ListAll()
	delete(snap, "bfzy")

	_, ok := reg.Resolve("bfzy")
	assert.True(t, ok, "mutating a snapshot must not change the registry")
}

func TestRegistryAdultSplitAndOverride(t *testing.T) {
	reg := NewRegistry([]models.UpstreamSource{
		{Code: "a", Name: "A", BaseURL: "https://a.example"},
		{Code: "b", Name: "B", BaseURL: "https://b.example", IsAdult: true},
		{Code: "a", Name: "A2", BaseURL: "https://a2.example"},
		{Code: "custom_0", Name: "bad", BaseURL: "https://c.example"},
	})

	assert.Equal(t, []string{"a", "b"}, reg.Codes())
	assert.Contains(t, reg.ListNormal(), "a")
	assert.Contains(t, reg.ListAdult(), "b")
	src, _ := reg.Resolve("a")
	assert.Equal(t, "A2", src.Name)
	_, ok := reg.Resolve("custom_0")
	assert.False(t, ok)
}

func TestCustomAt(t *testing.T) {
	customs := []models.CustomSource{
		{Name: "first", URL: "https://one.example/api"},
		{Name: "second", URL: "https://two.example/api"},
	}

	got, err := CustomAt("custom_1", customs)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Name)

	for _, code := range []string{"custom_2", "custom_-1", "custom_x", "bfzy"} {
		_, err := CustomAt(code, customs)
		assert.True(t, errors.Is(err, models.ErrValidation), "code %s", code)
	}
}

func TestLoadFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/youtv/sources.ini", []byte(`
[extra]
name = 额外影视
api = https://extra.example/api.php/provide/vod

[night]
api = https://night.example/api.php/provide/vod
adult = true
`), 0o644))

	list, err := LoadFile(fs, "/etc/youtv/sources.ini")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, models.UpstreamSource{Code: "extra", Name: "额外影视", BaseURL: "https://extra.example/api.php/provide/vod"}, list[0])
	assert.Equal(t, "night", list[1].Name)
	assert.True(t, list[1].IsAdult)

	reg := NewRegistry(append(DefaultSources(), list...))
	assert.Len(t, reg.ListAll(), 12)
	assert.Len(t, reg.ListAdult(), 1)
}

func TestLoadFileErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := LoadFile(fs, "/missing.ini")
	assert.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "/noapi.ini", []byte("[x]\nname = X\n"), 0o644))
	_, err = LoadFile(fs, "/noapi.ini")
	assert.ErrorContains(t, err, "has no api")
}
