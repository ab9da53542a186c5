package cli

import (
	"bytes"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/sadopc/hundred/internal/voice"
)

// setupEnv isolates a test from the user's config, keyring and network.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HUNDRED_DB_PATH", filepath.Join(dir, "hundred.db"))
	t.Setenv("HUNDRED_LOG_PATH", filepath.Join(dir, "hundred.log"))
	t.Setenv("HUNDRED_CHECK_UPDATES", "false")
	t.Setenv("HUNDRED_RECOGNIZER_CMD", "")
	t.Setenv("HUNDRED_RESTART_DELAY", "1ms")
	t.Setenv("OPENAI_API_KEY", "")
	keyring.MockInit()
	return dir
}

func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCmd()
	var outBuf, errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	e := cmd.Execute()
	return outBuf.String(), errBuf.String(), e
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := runCLI(t, args...)
	require.NoError(t, err, "hundred %v\nstderr:\n%s", args, stderr)
	return out
}

// ============================================================
// tap / status / reset
// ============================================================

func TestTap(t *testing.T) {
	setupEnv(t)

	assert.Contains(t, mustRun(t, "tap"), "Day 1: 1/100")
	assert.Contains(t, mustRun(t, "tap", "3", "--day", "2"), "Day 2: 3/100")
	assert.Contains(t, mustRun(t, "tap"), "Day 1: 2/100")
}

func TestTapInvalid(t *testing.T) {
	setupEnv(t)

	_, _, err := runCLI(t, "tap", "0")
	assert.Error(t, err)
	_, _, err = runCLI(t, "tap", "abc")
	assert.Error(t, err)
	_, _, err = runCLI(t, "tap", "--day", "9")
	assert.Error(t, err)
}

func TestTapStopsAtHundred(t *testing.T) {
	setupEnv(t)

	out, stderr, err := runCLI(t, "tap", "150", "--day", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "Day 3: 100/100")
	assert.Contains(t, out, "complete")
	assert.Contains(t, stderr, "only 100 of 150")

	_, _, err = runCLI(t, "tap", "--day", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already complete")
}

func TestStatus(t *testing.T) {
	setupEnv(t)
	mustRun(t, "tap", "100")
	mustRun(t, "tap", "4", "--day", "2")

	out := mustRun(t, "status")
	assert.Contains(t, out, "* Day 1  100/100  complete")
	assert.Contains(t, out, "  Day 2    4/100")
	assert.Contains(t, out, "never")
	assert.Contains(t, out, "104 squares, 1/7 days complete, streak 1")
}

func TestReset(t *testing.T) {
	setupEnv(t)
	mustRun(t, "tap", "5")

	_, _, err := runCLI(t, "reset")
	require.Error(t, err)
	assert.Contains(t, mustRun(t, "status"), "Day 1    5/100")

	assert.Contains(t, mustRun(t, "reset", "--yes"), "Challenge reset")
	assert.Contains(t, mustRun(t, "status"), "Day 1    0/100")
}

// ============================================================
// export / import
// ============================================================

func TestExportImportRoundTrip(t *testing.T) {
	dir := setupEnv(t)
	mustRun(t, "tap", "7")
	mustRun(t, "tap", "2", "--day", "5")

	jsonPath := filepath.Join(dir, "week.json")
	assert.Contains(t, mustRun(t, "export", "-o", jsonPath), jsonPath)
	csvPath := filepath.Join(dir, "week.csv")
	mustRun(t, "export", "--format", "csv", "-o", csvPath)

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 1+9)

	mustRun(t, "reset", "--yes")
	assert.Contains(t, mustRun(t, "import", jsonPath), "Imported 7 days")

	out := mustRun(t, "status")
	assert.Contains(t, out, "Day 1    7/100")
	assert.Contains(t, out, "Day 5    2/100")
}

func TestExportDefaultName(t *testing.T) {
	dir := setupEnv(t)
	mustRun(t, "export")

	matches, err := filepath.Glob(filepath.Join(dir, "hundred-export-*.json"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestExportBadFormat(t *testing.T) {
	setupEnv(t)
	_, _, err := runCLI(t, "export", "--format", "xml")
	assert.Error(t, err)
}

func TestImportInvalidLeavesStateAlone(t *testing.T) {
	dir := setupEnv(t)
	mustRun(t, "tap", "3")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"days":[{"day":1,"count":2,"coloredSquares":[
		{"number":1,"color":"#fff","position":4},
		{"number":2,"color":"#fff","position":4}]}]}`), 0o644))

	_, _, err := runCLI(t, "import", bad)
	require.Error(t, err)
	assert.Contains(t, mustRun(t, "status"), "Day 1    3/100")
}

// ============================================================
// voice
// ============================================================

func writeClip(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "clip.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	data := make([]int, 4000)
	for i := range data {
		data[i] = int(16000 * math.Sin(float64(i)/5))
	}
	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 16000},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func TestTranscribe(t *testing.T) {
	dir := setupEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			http.NotFound(w, r)
			return
		}
		io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"Count. Plus one!"}`))
	}))
	defer srv.Close()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("HUNDRED_OPENAI_BASE_URL", srv.URL+"/v1/")

	out := mustRun(t, "transcribe", writeClip(t, dir))
	assert.Contains(t, out, "+2, day 1 at 2")
	assert.Contains(t, mustRun(t, "status"), "Day 1    2/100")
}

func TestTranscribeNoKey(t *testing.T) {
	dir := setupEnv(t)
	_, _, err := runCLI(t, "transcribe", writeClip(t, dir))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key set")
}

func TestListen(t *testing.T) {
	setupEnv(t)

	out, stderr, err := runCLI(t, "listen", "--cmd", `printf '~cou\ncount\n'`, "--max-restarts", "1")
	require.ErrorIs(t, err, voice.ErrRestartsExhausted)
	assert.Contains(t, out, `"count": +1, day 1 at 1`)
	assert.Contains(t, stderr, "restarting")
	assert.Contains(t, mustRun(t, "status"), "Day 1    1/100")
}

func TestListenStdin(t *testing.T) {
	setupEnv(t)
	cmd := NewRootCmd()
	var out, stderr bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader("~one mo\none more\nhello\nplus one, next\n"))
	cmd.SetArgs([]string{"listen", "--cmd", "-"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), `"one more": +1, day 1 at 1`)
	assert.Contains(t, out.String(), `"hello": no trigger phrase`)
	assert.Contains(t, out.String(), `"plus one, next": +2, day 1 at 3`)
	assert.NotContains(t, stderr.String(), "restarting")
	assert.Contains(t, mustRun(t, "status"), "Day 1    3/100")
}

func TestListenNoRecognizer(t *testing.T) {
	setupEnv(t)
	_, _, err := runCLI(t, "listen")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HUNDRED_RECOGNIZER_CMD")
}

// ============================================================
// key / version
// ============================================================

func TestKeyLifecycle(t *testing.T) {
	setupEnv(t)

	assert.Contains(t, mustRun(t, "key", "show"), "(not set)")
	assert.Contains(t, mustRun(t, "key", "set", "sk-abcdef9876"), "9876")

	out := mustRun(t, "key", "show")
	assert.Contains(t, out, "9876 (keyring)")
	assert.NotContains(t, out, "abcdef")

	mustRun(t, "key", "clear")
	assert.Contains(t, mustRun(t, "key", "show"), "(not set)")
}

func TestKeySetFromStdin(t *testing.T) {
	setupEnv(t)
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader("sk-fromstdin1111\n"))
	cmd.SetArgs([]string{"key", "set"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "1111")
}

func TestKeyShowPrefersEnv(t *testing.T) {
	setupEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-envkey5555")
	assert.Contains(t, mustRun(t, "key", "show"), "5555 (OPENAI_API_KEY)")
}

func TestVersionOffline(t *testing.T) {
	setupEnv(t)
	out := mustRun(t, "version", "--offline")
	assert.True(t, strings.HasPrefix(out, "hundred "))
	assert.NotContains(t, out, "latest")
}

func TestConfigParseError(t *testing.T) {
	setupEnv(t)
	t.Setenv("HUNDRED_RESTART_DELAY", "soon")
	_, _, err := runCLI(t, "status")
	assert.Error(t, err)
}
