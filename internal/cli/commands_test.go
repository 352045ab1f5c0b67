package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/w3f/edunews/internal/keys"
	"github.com/w3f/edunews/internal/testutil"
)

// cliEnv points every command at a fresh SQLite devnet, so state persists
// between commands of one test.
func cliEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("EDUNEWS_DEVNET_PATH", filepath.Join(dir, "devnet", "ledgers.db"))
	t.Setenv("EDUNEWS_NETWORK", "")
	t.Setenv("EDUNEWS_MNEMONIC", "")
	return dir
}

type cliRun struct {
	out  string
	errs string
	err  error
}

func runCLI(t *testing.T, args ...string) cliRun {
	t.Helper()
	out, errs := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := newRootCommand(&RootOptions{FlowGenerator: testutil.NewFixedFlowGenerator("flow-cli")})
	cmd.SetOut(out)
	cmd.SetErr(errs)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return cliRun{out: out.String(), errs: errs.String(), err: err}
}

type jsonResponse struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Error   *CLIError       `json:"error"`
	TraceID string          `json:"trace_id"`
}

func decodeResponse(t *testing.T, r cliRun) (jsonResponse, map[string]any) {
	t.Helper()
	var resp jsonResponse
	require.NoError(t, json.Unmarshal([]byte(r.out), &resp), "stdout: %s\nstderr: %s", r.out, r.errs)
	var data map[string]any
	if raw := bytes.TrimSpace(resp.Data); len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &data))
	}
	return resp, data
}

func alice(t *testing.T) string {
	t.Helper()
	s, err := keys.Dev("Alice")
	require.NoError(t, err)
	return s.Address().String()
}

func TestRegisterVerifyShowList(t *testing.T) {
	cliEnv(t)

	r := runCLI(t, "--format", "json", "register", "--mnemonic", "//Alice",
		"--title", "Test", "--url", "http://x", "--content", "hello world")
	require.NoError(t, r.err, r.out)
	resp, data := decodeResponse(t, r)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "flow-cli", resp.TraceID)
	assert.Equal(t, float64(0), data["collection_id"])
	assert.Equal(t, float64(0), data["item_id"])
	assert.Equal(t, true, data["collection_created"])
	assert.Equal(t, alice(t), data["publisher"])
	assert.True(t, strings.HasPrefix(data["article_id"].(string), "article_"))

	r = runCLI(t, "--format", "json", "verify", "0", "0")
	require.NoError(t, r.err)
	_, data = decodeResponse(t, r)
	assert.Equal(t, true, data["article_exists"])
	assert.Equal(t, true, data["nft_exists"])
	assert.Equal(t, false, data["publisher_verified"])

	r = runCLI(t, "--format", "json", "show", "0", "0")
	require.NoError(t, r.err)
	_, data = decodeResponse(t, r)
	assert.Equal(t, "Test", data["title"])
	assert.Equal(t, float64(2), data["word_count"])

	r = runCLI(t, "--format", "json", "list", alice(t))
	require.NoError(t, r.err)
	resp, data = decodeResponse(t, r)
	assert.Nil(t, data, "list data is an array")
	var articles []map[string]any
	require.NoError(t, json.Unmarshal(resp.Data, &articles))
	require.Len(t, articles, 1)
	assert.Equal(t, "http://x", articles[0]["url"])

	r = runCLI(t, "audit", "0", "0")
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "binding consistent")

	// The same publisher reuses its collection.
	r = runCLI(t, "--format", "json", "register", "--mnemonic", "//Alice",
		"--title", "Second", "--url", "http://y", "--content", "another article")
	require.NoError(t, r.err, r.out)
	_, data = decodeResponse(t, r)
	assert.Equal(t, float64(0), data["collection_id"])
	assert.Equal(t, float64(1), data["item_id"])
	assert.Equal(t, false, data["collection_created"])
}

func TestRegisterContentFileAndEnvMnemonic(t *testing.T) {
	dir := cliEnv(t)
	t.Setenv("EDUNEWS_MNEMONIC", "//Bob")
	path := filepath.Join(dir, "article.md")
	require.NoError(t, os.WriteFile(path, []byte("three words here"), 0o644))

	r := runCLI(t, "register", "--title", "From file", "--url", "http://f", "--content-file", path)
	require.NoError(t, r.err, r.out)
	assert.Contains(t, r.out, "Article registered")
	assert.Contains(t, r.out, "flow-cli")

	r = runCLI(t, "show", "0", "0")
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "From file")
	assert.Contains(t, r.out, "3")
}

func TestIdentityCommands(t *testing.T) {
	cliEnv(t)

	r := runCLI(t, "--format", "json", "identity", alice(t))
	require.NoError(t, r.err)
	_, data := decodeResponse(t, r)
	assert.Equal(t, false, data["verified"])
	assert.Nil(t, data["display_name"])

	r = runCLI(t, "identity", "set", "--mnemonic", "//Alice", "--display", "Alice", "--legal", "Alice Liddell")
	require.NoError(t, r.err, r.out)
	assert.Contains(t, r.out, "Identity set")

	r = runCLI(t, "--format", "json", "identity", alice(t))
	require.NoError(t, r.err)
	_, data = decodeResponse(t, r)
	assert.Equal(t, true, data["verified"])
	assert.Equal(t, "Alice", data["display_name"])
	assert.Equal(t, "Alice Liddell", data["legal_name"])

	r = runCLI(t, "identity", alice(t))
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "Alice Liddell")
}

func TestNotFoundAndUnparsable(t *testing.T) {
	cliEnv(t)

	r := runCLI(t, "--format", "json", "show", "5", "5")
	require.NoError(t, r.err)
	resp, data := decodeResponse(t, r)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "null", string(resp.Data))
	assert.Nil(t, data)

	r = runCLI(t, "show", "5", "5")
	require.Error(t, r.err)
	assert.Equal(t, ExitNotFound, GetExitCode(r.err))
	assert.True(t, IsReported(r.err))
	assert.Contains(t, r.out, "NOT_FOUND")

	r = runCLI(t, "audit", "5", "5")
	assert.Equal(t, ExitNotFound, GetExitCode(r.err))

	r = runCLI(t, "--format", "json", "identity", "not-an-address")
	require.NoError(t, r.err)
	resp, _ = decodeResponse(t, r)
	assert.Equal(t, "null", string(resp.Data))

	r = runCLI(t, "identity", "not-an-address")
	assert.Equal(t, ExitInvalidInput, GetExitCode(r.err))
}

func TestInvalidInputExitCodes(t *testing.T) {
	dir := cliEnv(t)
	file := filepath.Join(dir, "a.md")
	require.NoError(t, os.WriteFile(file, []byte("text"), 0o644))

	tests := []struct {
		name string
		args []string
	}{
		{"no content", []string{"register", "--mnemonic", "//Alice", "--title", "T", "--url", "u"}},
		{"both contents", []string{"register", "--mnemonic", "//Alice", "--title", "T", "--url", "u", "--content", "x", "--content-file", file}},
		{"missing content file", []string{"register", "--mnemonic", "//Alice", "--title", "T", "--url", "u", "--content-file", filepath.Join(dir, "nope.md")}},
		{"no mnemonic", []string{"register", "--title", "T", "--url", "u", "--content", "x"}},
		{"bad mnemonic", []string{"register", "--mnemonic", "not a real phrase", "--title", "T", "--url", "u", "--content", "x"}},
		{"bad scheme", []string{"register", "--mnemonic", "//Alice", "--scheme", "sr25519", "--title", "T", "--url", "u", "--content", "x"}},
		{"bad collection", []string{"verify", "x", "0"}},
		{"bad item", []string{"show", "0", "4294967296"}},
		{"unknown flag", []string{"verify", "--bogus", "0", "0"}},
		{"bad publisher", []string{"list", "nope"}},
		{"bad format", []string{"--format", "xml", "verify", "0", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := runCLI(t, tt.args...)
			require.Error(t, r.err)
			assert.Equal(t, ExitInvalidInput, GetExitCode(r.err), r.err.Error())
		})
	}
}

func TestJSONErrorBody(t *testing.T) {
	cliEnv(t)
	r := runCLI(t, "--format", "json", "register", "--mnemonic", "//Alice", "--title", "T", "--url", "u")
	require.Error(t, r.err)
	resp, _ := decodeResponse(t, r)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "MALFORMED_INPUT", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "content must be provided")
}

func TestUnreachableNetwork(t *testing.T) {
	cliEnv(t)
	t.Setenv("EDUNEWS_DEVNET_LISTEN", "127.0.0.1:1")
	t.Setenv("EDUNEWS_TIMEOUTS_CONNECT", "500ms")

	r := runCLI(t, "--network", "devnet", "show", "0", "0")
	require.Error(t, r.err)
	assert.Equal(t, ExitUnreachable, GetExitCode(r.err))
	assert.Contains(t, r.out, "CONNECTION_FAILURE")
}

func TestUnknownNetwork(t *testing.T) {
	cliEnv(t)
	r := runCLI(t, "--network", "mainnet", "verify", "0", "0")
	require.Error(t, r.err)
	assert.Equal(t, ExitInvalidInput, GetExitCode(r.err))
	assert.Contains(t, r.err.Error(), "unknown network")
}

func TestConfigFileNetwork(t *testing.T) {
	dir := cliEnv(t)
	cfg := filepath.Join(dir, "edunews.yaml")
	db := filepath.Join(dir, "custom.db")
	body := "network: mine\nnetworks:\n  mine:\n" +
		"    issuance: sqlite://" + db + "?ledger=issuance\n" +
		"    registry: sqlite://" + db + "?ledger=registry\n" +
		"    identity: sqlite://" + db + "?ledger=identity\n"
	require.NoError(t, os.WriteFile(cfg, []byte(body), 0o644))

	r := runCLI(t, "--config", cfg, "register", "--mnemonic", "//Alice", "--title", "T", "--url", "u", "--content", "x")
	require.NoError(t, r.err, r.out)
	_, err := os.Stat(db)
	assert.NoError(t, err)

	r = runCLI(t, "--config", cfg, "--format", "json", "verify", "0", "0")
	require.NoError(t, r.err)
	_, data := decodeResponse(t, r)
	assert.Equal(t, true, data["article_exists"])
}
