package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/w3f/edunews/internal/engine"
	"github.com/w3f/edunews/internal/ir"
	"github.com/w3f/edunews/internal/issuance"
	"github.com/w3f/edunews/internal/keys"
	"github.com/w3f/edunews/internal/ledger"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONNullData(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(nil))
	assert.JSONEq(t, `{"status":"ok","data":null}`, buf.String())
}

func TestOutputFormatter_TracedJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Traced("flow-9", map[string]int{"item_id": 2}, func(Theme) string { return "unused" })
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"item_id":2},"trace_id":"flow-9"}`, buf.String())
}

func TestOutputFormatter_ResultText(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Result(map[string]int{"item_id": 2}, func(t Theme) string {
		return t.Title.Render("rendered") + "\n"
	})
	require.NoError(t, err)
	assert.Equal(t, "rendered\n", buf.String())
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("NOT_FOUND", "no article for 0/1", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "no article for 0/1", resp.Error.Message)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error("MALFORMED_INPUT", "content must be provided", map[string]string{"flag": "--content"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [MALFORMED_INPUT]")
	assert.Contains(t, buf.String(), "content must be provided")
	assert.NotContains(t, buf.String(), "Details:")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	details := map[string]string{"flag": "--content"}
	err := formatter.Error("MALFORMED_INPUT", "content must be provided", details)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [MALFORMED_INPUT]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("resuming from %s", "unit.minted")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "resuming from unit.minted")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"malformed", &engine.Error{Code: engine.ErrCodeMalformedInput, Message: "bad"}, ExitInvalidInput},
		{"bad address", fmt.Errorf("list: %w", keys.ErrInvalidAddress), ExitInvalidInput},
		{"bad hash", ir.ErrInvalidContentHash, ExitInvalidInput},
		{"not found", &engine.Error{Code: engine.ErrCodeNotFound}, ExitNotFound},
		{"missing collection", issuance.ErrContainerNotFound, ExitNotFound},
		{"connection", &ledger.ConnectionError{Ledger: "registry", Endpoint: "grpc://x", Err: errors.New("refused")}, ExitUnreachable},
		{"unavailable", fmt.Errorf("read: %w", ledger.ErrUnavailable), ExitUnreachable},
		{"contention", engine.ErrContention, ExitFailure},
		{"partial write while unreachable", &engine.PartialWriteError{Phase: ir.PhaseUnitMinted, HasUnit: true, Err: ledger.ErrUnavailable}, ExitPartial},
		{"partial write code", fmt.Errorf("resume: %w", &engine.Error{Code: engine.ErrCodePartialWrite}), ExitPartial},
		{"other", errors.New("boom"), ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeFor(tt.err))
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitNotFound, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitNotFound, "gone"))))

	err := WrapExitError(ExitUnreachable, "connect", errors.New("refused"))
	assert.Equal(t, "connect: refused", err.Error())
	assert.False(t, IsReported(err))
}

func TestFail_PartialWrite(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	pwe := &engine.PartialWriteError{
		FlowToken:   "flow-7",
		Phase:       ir.PhaseUnitMinted,
		ContainerID: 2,
		UnitID:      5,
		HasUnit:     true,
		Err:         fmt.Errorf("set metadata: %w", ledger.ErrUnavailable),
	}
	err := formatter.Fail("registration failed", pwe)
	require.Error(t, err)
	assert.Equal(t, ExitPartial, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.ErrorIs(t, err, ledger.ErrUnavailable)

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code    string         `json:"code"`
			Details PartialDetails `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "PARTIAL_WRITE", resp.Error.Code)
	assert.Equal(t, PartialDetails{
		Phase:        "unit.minted",
		CollectionID: 2,
		ItemID:       5,
		HasItem:      true,
		FlowToken:    "flow-7",
		Resume:       "--resume-phase unit.minted --collection 2 --item 5",
	}, resp.Error.Details)
}

func TestFail_UnknownError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Fail("verify", errors.New("boom"))
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [ERROR]: verify: boom")
}
