package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func renderNoEnv(filesData []FileData) *ConfigRender {
	r := NewConfigRender(filesData, EnvVarPrefix)
	r.LookupEnvFunc = func(string) (string, bool) { return "", false }
	return r
}

func TestMergeLaterFileWins(t *testing.T) {
	r := renderNoEnv([]FileData{
		{Name: "defaults", Content: "A = 1\nB = 2\n"},
		{Name: "custom", Content: "B = 3\n"},
	})
	out, err := r.Merge()
	require.NoError(t, err)
	require.Contains(t, out, "A = 1")
	require.Contains(t, out, "B = 3")
	require.NotContains(t, out, "B = 2")
}

func TestRenderResolvesVars(t *testing.T) {
	r := renderNoEnv([]FileData{
		{Name: "vars", Content: `Base = "http://host"` + "\n"},
		{Name: "values", Content: `[Section]` + "\n" + `URL = "{{Base}}/api"` + "\n"},
	})
	out, err := r.Render()
	require.NoError(t, err)
	require.Contains(t, out, `URL = "http://host/api"`)
}

func TestRenderResolvesUnquotedIntVar(t *testing.T) {
	r := renderNoEnv([]FileData{
		{Name: "vars", Content: "Port = 8000\n"},
		{Name: "values", Content: "[Section]\nPort = {{Port}}\n"},
	})
	out, err := r.Render()
	require.NoError(t, err)
	require.Contains(t, out, "Port = 8000")
	require.False(t, strings.Contains(out, "{{"))
}

func TestRenderEnvironmentOverridesFile(t *testing.T) {
	r := NewConfigRender([]FileData{
		{Name: "vars", Content: `Base = "http://host"` + "\n"},
		{Name: "values", Content: `URL = "{{Base}}"` + "\n"},
	}, EnvVarPrefix)
	r.LookupEnvFunc = func(key string) (string, bool) {
		if key == EnvVarPrefix+"_Base" {
			return "http://env-host", true
		}
		return "", false
	}
	out, err := r.Render()
	require.NoError(t, err)
	require.Contains(t, out, `URL = "http://env-host"`)
}

func TestRenderMissingVar(t *testing.T) {
	r := renderNoEnv([]FileData{
		{Name: "values", Content: `URL = "{{Undefined}}"` + "\n"},
	})
	_, err := r.Render()
	require.ErrorIs(t, err, ErrMissingVars)
}

func TestRenderCycleVars(t *testing.T) {
	r := renderNoEnv([]FileData{
		{Name: "values", Content: "A = {{B}}\nB = {{A}}\n"},
	})
	_, err := r.Render()
	require.ErrorIs(t, err, ErrCycleVars)
}

func TestRenderChainedVars(t *testing.T) {
	r := renderNoEnv([]FileData{
		{Name: "values", Content: "A = 1\nB = {{A}}\nC = {{B}}\n"},
	})
	out, err := r.Render()
	require.NoError(t, err)
	require.Contains(t, out, "C = 1")
}

func TestConvertJSONFileToToml(t *testing.T) {
	out, err := convertFileToToml(`{"Section": {"Port": 8000}}`, "json")
	require.NoError(t, err)
	require.Contains(t, out, "[Section]")
	require.Contains(t, out, "Port = 8000")
}

func TestConvertUnsupportedFileType(t *testing.T) {
	_, err := convertFileToToml("a: 1", "yaml")
	require.ErrorIs(t, err, ErrUnsupportedConfigFileType)
}
