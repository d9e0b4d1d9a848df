package stdio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/bobmcallan/doc-mcp-server/internal/common"
	"github.com/bobmcallan/doc-mcp-server/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Helpers ---

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func testDispatcher(t *testing.T, uploads *int) *tools.Dispatcher {
	t.Helper()
	reg, err := tools.NewRegistry(
		tools.Tool{
			Definition: tools.Definition{Name: "getSwaggerSpecification", Description: "spec", ReadOnly: true},
			Handler: func(ctx context.Context, args tools.Arguments) (string, error) {
				return "Swagger example", nil
			},
		},
		tools.Tool{
			Definition: tools.Definition{
				Name: "uploadSwaggerToApiFox",
				Schema: tools.Schema{Properties: []tools.Property{
					{Name: "projectId", Type: tools.TypeString, Required: true},
					{Name: "accessToken", Type: tools.TypeString, Required: true},
					{Name: "swaggerJson", Type: tools.TypeString, Required: true},
				}},
			},
			Handler: func(ctx context.Context, args tools.Arguments) (string, error) {
				*uploads++
				if args.String("projectId") == "broken" {
					return "", tools.NewUpstreamError(nil, "apifox API call failed: 500 - down")
				}
				return "uploaded " + args.String("projectId"), nil
			},
		},
	)
	require.NoError(t, err)
	return tools.NewDispatcher(reg, common.NewSilentLogger())
}

// run feeds lines through a fresh server and returns every output line.
func run(t *testing.T, lines ...string) []response {
	t.Helper()
	uploads := 0
	return runWith(t, &uploads, lines...)
}

func runWith(t *testing.T, uploads *int, lines ...string) []response {
	t.Helper()
	var out bytes.Buffer
	srv, err := New(testDispatcher(t, uploads), Options{
		Name:    "doc-mcp-server",
		Version: "1.0.0",
		In:      strings.NewReader(strings.Join(lines, "\n") + "\n"),
		Out:     &out,
		Logger:  common.NewSilentLogger(),
	})
	require.NoError(t, err)
	require.NoError(t, srv.Serve(context.Background()))
	assert.Equal(t, StateClosed, srv.State())
	return decodeAll(t, out.Bytes())
}

func decodeAll(t *testing.T, data []byte) []response {
	t.Helper()
	var out []response
	for _, line := range bytes.Split(bytes.TrimRight(data, "\n"), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var r response
		require.NoError(t, json.Unmarshal(line, &r), "non-JSON output line: %q", line)
		require.Equal(t, "2.0", r.JSONRPC)
		out = append(out, r)
	}
	return out
}

// byID indexes responses by their id rendered as text. Tool calls run on a
// worker, so responses are matched by id rather than position.
func byID(t *testing.T, resps []response) map[string]response {
	t.Helper()
	m := make(map[string]response, len(resps))
	for _, r := range resps {
		key := fmt.Sprint(r.ID)
		_, dup := m[key]
		require.False(t, dup, "duplicate response id %s", key)
		m[key] = r
	}
	return m
}

// --- Tests ---

func TestNew_RequiresStreams(t *testing.T) {
	uploads := 0
	_, err := New(testDispatcher(t, &uploads), Options{Out: io.Discard})
	assert.Error(t, err)
	_, err = New(nil, Options{In: strings.NewReader(""), Out: io.Discard})
	assert.Error(t, err)
}

func TestServe_Initialize(t *testing.T) {
	resps := run(t, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`)
	require.Len(t, resps, 1)
	assert.EqualValues(t, 1, resps[0].ID)
	require.Nil(t, resps[0].Error)

	var result map[string]any
	require.NoError(t, json.Unmarshal(resps[0].Result, &result))
	assert.NotEmpty(t, result["protocolVersion"])
	assert.Contains(t, result["capabilities"], "tools")
	info := result["serverInfo"].(map[string]any)
	assert.Equal(t, "doc-mcp-server", info["name"])
	assert.Equal(t, "1.0.0", info["version"])
}

func TestServe_Ping(t *testing.T) {
	resps := run(t, `{"jsonrpc":"2.0","id":"p-1","method":"ping"}`)
	require.Len(t, resps, 1)
	assert.Equal(t, "p-1", resps[0].ID)
	assert.JSONEq(t, `{}`, string(resps[0].Result))
}

func TestServe_ToolsList(t *testing.T) {
	resps := run(t, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	require.Len(t, resps, 1)

	var result struct {
		Tools []struct {
			Name        string `json:"name"`
			InputSchema struct {
				Required []string `json:"required"`
			} `json:"inputSchema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(resps[0].Result, &result))
	require.Len(t, result.Tools, 2)
	assert.Equal(t, "getSwaggerSpecification", result.Tools[0].Name)
	assert.Empty(t, result.Tools[0].InputSchema.Required)
	assert.Equal(t, "uploadSwaggerToApiFox", result.Tools[1].Name)
	assert.ElementsMatch(t, []string{"projectId", "accessToken", "swaggerJson"}, result.Tools[1].InputSchema.Required)
}

func TestServe_ToolsCallSuccess(t *testing.T) {
	resps := run(t, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"uploadSwaggerToApiFox","arguments":{"projectId":"42","accessToken":"t","swaggerJson":"{}"}}}`)
	require.Len(t, resps, 1)
	require.Nil(t, resps[0].Error)

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(resps[0].Result, &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.Equal(t, "uploaded 42", result.Content[0].Text)
}

func TestServe_ToolsCallInvalidParams(t *testing.T) {
	uploads := 0
	resps := runWith(t, &uploads, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"uploadSwaggerToApiFox","arguments":{"projectId":"","accessToken":"t","swaggerJson":"{}"}}}`)
	require.Len(t, resps, 1)
	require.NotNil(t, resps[0].Error)
	assert.Equal(t, -32603, resps[0].Error.Code)
	assert.Equal(t, "tool execution failed: projectId must not be empty", resps[0].Error.Message)
	assert.Zero(t, uploads)
}

func TestServe_ToolsCallFailureKinds(t *testing.T) {
	resps := run(t,
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"nope"}}`,
		`{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"uploadSwaggerToApiFox","arguments":{"projectId":"broken","accessToken":"t","swaggerJson":"{}"}}}`,
	)
	require.Len(t, resps, 2)
	got := byID(t, resps)

	unknown := got["5"]
	require.NotNil(t, unknown.Error)
	assert.Equal(t, -32603, unknown.Error.Code)
	assert.Equal(t, "tool execution failed: unknown tool: nope", unknown.Error.Message)

	upstream := got["6"]
	require.NotNil(t, upstream.Error)
	assert.Equal(t, -32603, upstream.Error.Code)
	assert.Equal(t, "tool execution failed: apifox API call failed: 500 - down", upstream.Error.Message)
}

func TestServe_MalformedToolsCallParams(t *testing.T) {
	resps := run(t,
		`{"jsonrpc":"2.0","id":7,"method":"tools/call"}`,
		`{"jsonrpc":"2.0","id":8,"method":"tools/call","params":[1,2]}`,
		`{"jsonrpc":"2.0","id":9,"method":"tools/call","params":{"arguments":{}}}`,
		`{"jsonrpc":"2.0","id":10,"method":"tools/call","params":{"name":"getSwaggerSpecification","arguments":"x"}}`,
	)
	require.Len(t, resps, 4)
	got := byID(t, resps)
	for _, id := range []string{"7", "8", "9", "10"} {
		r, ok := got[id]
		require.True(t, ok, "no response for id %s", id)
		require.NotNil(t, r.Error)
		assert.Equal(t, -32602, r.Error.Code)
	}
}

func TestServe_ProtocolErrors(t *testing.T) {
	resps := run(t,
		`{"jsonrpc":"2.0","id":11,"method":"resources/list"}`,
		`{"jsonrpc":"1.0","id":12,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":13}`,
		`{"jsonrpc":"2.0","id":14,"method":`,
	)
	require.Len(t, resps, 4)
	got := byID(t, resps)
	want := map[string]int{"11": -32601, "12": -32600, "13": -32600, "<nil>": -32700}
	for id, code := range want {
		r, ok := got[id]
		require.True(t, ok, "no response for id %s", id)
		require.NotNil(t, r.Error)
		assert.Equal(t, code, r.Error.Code, "id %s", id)
	}
}

func TestServe_WrongMemberTypesAreInvalidRequest(t *testing.T) {
	resps := run(t,
		`{"jsonrpc":"2.0","id":15,"method":["tools/list"]}`,
		`{"jsonrpc":"2.0","id":"m-5","method":5}`,
		`{"jsonrpc":"2.0","id":{"n":1},"method":"ping"}`,
		`[{"jsonrpc":"2.0","id":17,"method":"ping"}]`,
	)
	require.Len(t, resps, 4)
	for _, r := range resps {
		require.NotNil(t, r.Error)
		assert.Equal(t, -32600, r.Error.Code)
	}
	assert.EqualValues(t, 15, resps[0].ID)
	assert.Equal(t, "m-5", resps[1].ID)
	assert.Nil(t, resps[2].ID)
	assert.Nil(t, resps[3].ID)
}

func TestServe_ClientResponsesAreIgnored(t *testing.T) {
	resps := run(t,
		`{"jsonrpc":"2.0","id":40,"result":{}}`,
		`{"jsonrpc":"2.0","id":41,"error":{"code":-1,"message":"no"}}`,
		`{"jsonrpc":"2.0","id":42,"method":"ping"}`,
	)
	require.Len(t, resps, 1)
	assert.EqualValues(t, 42, resps[0].ID)
}

func TestServe_NotificationsAndBlankLinesAreSilent(t *testing.T) {
	resps := run(t,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`   `,
		`{"jsonrpc":"2.0","id":null,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":16,"method":"ping"}`,
	)
	require.Len(t, resps, 1)
	assert.EqualValues(t, 16, resps[0].ID)
}

func TestServe_AnswersEveryRequestOnce(t *testing.T) {
	uploads := 0
	resps := runWith(t, &uploads,
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"getSwaggerSpecification"}}`,
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"uploadSwaggerToApiFox","arguments":{"projectId":"a","accessToken":"t","swaggerJson":"{}"}}}`,
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"uploadSwaggerToApiFox","arguments":{"projectId":"b","accessToken":"t","swaggerJson":"{}"}}}`,
	)
	require.Len(t, resps, 5)
	got := byID(t, resps)
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		r, ok := got[id]
		require.True(t, ok, "no response for id %s", id)
		assert.Nil(t, r.Error)
	}
	assert.Equal(t, 2, uploads)
}

func TestServe_OutputContainsOnlyEnvelopes(t *testing.T) {
	// A verbose logger writing to its own sink must not touch Out.
	var diag, out bytes.Buffer
	logger := common.NewLoggerFromConfig(common.LoggingConfig{Level: "debug"}, &diag)

	uploads := 0
	srv, err := New(testDispatcher(t, &uploads), Options{
		Name:   "doc-mcp-server",
		In:     strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\nnot json\n" + `{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n"),
		Out:    &out,
		Logger: logger,
	})
	require.NoError(t, err)
	require.NoError(t, srv.Serve(context.Background()))

	assert.Greater(t, diag.Len(), 0, "diagnostics should reach the logger sink")
	assert.Contains(t, diag.String(), "stdio transport ready")

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		var msg map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &msg), "unexpected output: %q", line)
		assert.Equal(t, "2.0", msg["jsonrpc"])
	}
}

func TestServe_StopsOnContextCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	uploads := 0
	srv, err := New(testDispatcher(t, &uploads), Options{In: pr, Out: io.Discard})
	require.NoError(t, err)
	assert.Equal(t, StateUninitialized, srv.State())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	require.Eventually(t, func() bool { return srv.State() == StateReady }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	assert.Equal(t, StateClosed, srv.State())
}

func TestServe_LongLinesDoNotEndSession(t *testing.T) {
	const size = 51 << 20
	garbage := strings.Repeat("x", size)
	bigPing := `{"jsonrpc":"2.0","id":1,"method":"ping","params":{"pad":"` + strings.Repeat("y", size) + `"}}`

	resps := run(t,
		garbage,
		bigPing,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	)
	require.Len(t, resps, 3)

	require.NotNil(t, resps[0].Error)
	assert.Equal(t, -32700, resps[0].Error.Code)

	got := byID(t, resps[1:])
	for _, id := range []string{"1", "2"} {
		r, ok := got[id]
		require.True(t, ok, "no response for id %s", id)
		assert.Nil(t, r.Error)
		assert.JSONEq(t, `{}`, string(r.Result))
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("stdin gone") }

func TestServe_ReadErrorIsReturned(t *testing.T) {
	uploads := 0
	srv, err := New(testDispatcher(t, &uploads), Options{In: failingReader{}, Out: io.Discard})
	require.NoError(t, err)

	err = srv.Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stdin gone")
	assert.Equal(t, StateClosed, srv.State())
}

func TestServe_ProcessingWhileToolRuns(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	reg, err := tools.NewRegistry(tools.Tool{
		Definition: tools.Definition{Name: "slow"},
		Handler: func(ctx context.Context, args tools.Arguments) (string, error) {
			close(started)
			<-release
			return "done", nil
		},
	})
	require.NoError(t, err)

	pr, pw := io.Pipe()
	var out bytes.Buffer
	srv, err := New(tools.NewDispatcher(reg, common.NewSilentLogger()), Options{In: pr, Out: &out})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(context.Background()) }()

	_, err = io.WriteString(pw, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"slow"}}`+"\n")
	require.NoError(t, err)

	<-started
	assert.Equal(t, StateProcessing, srv.State())
	close(release)
	require.Eventually(t, func() bool { return srv.State() == StateReady }, time.Second, 5*time.Millisecond)

	require.NoError(t, pw.Close())
	require.NoError(t, <-done)

	resps := decodeAll(t, out.Bytes())
	require.Len(t, resps, 1)
	assert.EqualValues(t, 1, resps[0].ID)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "processing", StateProcessing.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "uninitialized", StateUninitialized.String())
}
