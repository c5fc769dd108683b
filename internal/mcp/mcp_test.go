package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"kvdoc/internal/records"
	"kvdoc/internal/store/mem"
	"kvdoc/internal/tools"
)

var ctx = context.Background()

func newHandler(t *testing.T) *Handler {
	t.Helper()
	reg := tools.NewRegistry()
	reg.RegisterRecords(records.New(mem.New(), records.Options{}))
	reg.Freeze()
	return NewHandler(reg, "kvdoc", "test")
}

func dispatch(t *testing.T, h *Handler, msg string) Response {
	t.Helper()
	resp, ok := handleMessage(ctx, h, []byte(msg))
	if !ok {
		t.Fatalf("no response to %s", msg)
	}
	return resp
}

// resultJSON re-encodes a response result for comparison.
func resultJSON(t *testing.T, r Response) string {
	t.Helper()
	if r.Error != nil {
		t.Fatalf("unexpected error %+v", r.Error)
	}
	b, err := json.Marshal(r.Result)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestInitialize(t *testing.T) {
	h := newHandler(t)
	resp := dispatch(t, h, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	got := resultJSON(t, resp)
	for _, want := range []string{`"protocolVersion":"2024-11-05"`, `"serverInfo":{"name":"kvdoc","version":"test"}`, `"tools":{}`} {
		if !strings.Contains(got, want) {
			t.Errorf("initialize result missing %s: %s", want, got)
		}
	}
	if string(resp.ID) != "1" {
		t.Errorf("id %s", resp.ID)
	}
}

func TestNotificationHasNoResponse(t *testing.T) {
	h := newHandler(t)
	if _, ok := handleMessage(ctx, h, []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)); ok {
		t.Fatal("notifications must not be answered")
	}
}

func TestProtocolErrors(t *testing.T) {
	h := newHandler(t)
	tests := []struct {
		name string
		msg  string
		code int
	}{
		{"parse error", `{not json`, CodeParseError},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"ping"}`, CodeInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"resources/list"}`, CodeMethodNotFound},
		{"unknown tool", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"drop_table"}}`, CodeMethodNotFound},
		{"missing tool name", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{}}`, CodeInvalidParams},
		{"bad params", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":[1]}`, CodeInvalidParams},
		{"key as number", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"get_row","arguments":{"db_path":"mem://a","key":7}}}`, CodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := dispatch(t, h, tt.msg)
			if resp.Error == nil || resp.Error.Code != tt.code {
				t.Fatalf("got %+v, want code %d", resp.Error, tt.code)
			}
		})
	}
}

func TestToolsList(t *testing.T) {
	h := newHandler(t)
	var out struct {
		Tools []ToolInfo `json:"tools"`
	}
	if err := json.Unmarshal([]byte(resultJSON(t, dispatch(t, h, `{"jsonrpc":"2.0","id":"a","method":"tools/list"}`))), &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Tools) != 13 {
		t.Fatalf("got %d tools", len(out.Tools))
	}
	if out.Tools[0].Name != "search" || out.Tools[0].InputSchema["type"] != "object" {
		t.Errorf("first tool %+v", out.Tools[0])
	}
}

func TestToolsCall(t *testing.T) {
	h := newHandler(t)
	resp := dispatch(t, h, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"create_record","arguments":{"db_path":"mem://t","key":"a","value":{"n":1}}}}`)
	want := `{"content":[{"type":"text","text":"{\"created\":true}"}],"structuredContent":{"created":true},"isError":false}`
	if got := resultJSON(t, resp); got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}

	resp = dispatch(t, h, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"get_row","arguments":{"db_path":"mem://t","key":"a"}}}`)
	if got := resultJSON(t, resp); !strings.Contains(got, `"structuredContent":{"key":"a","value":{"n":1}}`) {
		t.Fatalf("got %s", got)
	}
}

func TestToolFailureIsResult(t *testing.T) {
	h := newHandler(t)
	resp := dispatch(t, h, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"list_keys","arguments":{"db_path":"mem://missing"}}}`)
	var res CallResult
	if err := json.Unmarshal([]byte(resultJSON(t, resp)), &res); err != nil {
		t.Fatal(err)
	}
	if !res.IsError || len(res.Content) != 1 || !strings.Contains(res.Content[0].Text, "store unavailable") {
		t.Fatalf("got %+v", res)
	}
}

func TestServeStdio(t *testing.T) {
	h := newHandler(t)
	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"bulk_insert","arguments":{"db_path":"mem://s","records":{"a":{},"b":{}}}}}`,
	}, "\n") + "\n"

	var out bytes.Buffer
	if err := ServeStdio(ctx, h, strings.NewReader(in), &out); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 responses, got %d:\n%s", len(lines), out.String())
	}
	if lines[1] != `{"jsonrpc":"2.0","id":2,"result":{}}` {
		t.Errorf("ping response %s", lines[1])
	}
	if !strings.Contains(lines[2], `"structuredContent":{"inserted":2}`) {
		t.Errorf("bulk insert response %s", lines[2])
	}
}

func TestServeStdioCanceled(t *testing.T) {
	h := newHandler(t)
	cctx, cancel := context.WithCancel(ctx)
	cancel()
	err := ServeStdio(cctx, h, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"), io.Discard)
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestHTTPServer(t *testing.T) {
	h := newHandler(t)
	s := NewServer("127.0.0.1:0", h)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()
	base := "http://" + s.Addr()

	post := func(body string) *http.Response {
		t.Helper()
		resp, err := http.Post(base+"/rpc", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	resp := post(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"create_record","arguments":{"db_path":"mem://h","key":"k","value":{}}}}`)
	var r Response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		t.Fatal(err)
	}
	if r.Error != nil || string(r.ID) != "1" {
		t.Fatalf("got %+v", r)
	}

	if resp := post(`{"jsonrpc":"2.0","method":"notifications/initialized"}`); resp.StatusCode != http.StatusAccepted {
		t.Errorf("notification status %d", resp.StatusCode)
	}

	get, err := http.Get(base + "/rpc")
	if err != nil {
		t.Fatal(err)
	}
	_ = get.Body.Close()
	if get.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /rpc status %d", get.StatusCode)
	}

	health, err := http.Get(base + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(health.Body)
	_ = health.Body.Close()
	if string(body) != "ok\n" {
		t.Errorf("healthz %q", body)
	}

	m, err := http.Get(base + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ = io.ReadAll(m.Body)
	_ = m.Body.Close()
	if !strings.Contains(string(body), `kvdoc_tool_calls_total{tool="create_record",outcome="ok"} 1`) {
		t.Errorf("metrics missing tool counter:\n%s", body)
	}
}
