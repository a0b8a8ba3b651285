package httpclient

import (
	"net/http"
	"testing"

	"github.com/samvad-hq/samvad-httpclient/internal/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	prev := logger.S
	core, logs := observer.New(zapcore.DebugLevel)
	logger.S = zap.New(core).Sugar()
	t.Cleanup(func() { logger.S = prev })
	return logs
}

// loggedFields returns the structured object logged under key by the only entry with msg.
func loggedFields(t *testing.T, logs *observer.ObservedLogs, level zapcore.Level, msg, key string) map[string]any {
	t.Helper()
	entries := logs.FilterMessage(msg).All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 %q entry, got %d (all: %v)", msg, len(entries), logs.All())
	}
	if entries[0].Level != level {
		t.Fatalf("%q logged at %v, want %v", msg, entries[0].Level, level)
	}
	fields, ok := entries[0].ContextMap()[key].(map[string]any)
	if !ok {
		t.Fatalf("%q: expected %s object, got %v", msg, key, entries[0].ContextMap())
	}
	return fields
}

func TestParseTreeLogsNonOKStatus(t *testing.T) {
	logs := observeLogs(t)
	resp := &Response{Code: http.StatusNotFound, Body: []byte(`<html><head><title>Page not found</title></head></html>`)}

	if _, err := ParseTree(resp, "http://example.com/missing"); err != nil {
		t.Fatalf("ParseTree: %v", err)
	}

	fields := loggedFields(t, logs, zapcore.WarnLevel, "received non-OK status", "httpclient_status")
	if fields["url"] != "http://example.com/missing" || fields["code"] != http.StatusNotFound {
		t.Fatalf("unexpected fields %v", fields)
	}
	if fields["page_title"] != "Page not found" {
		t.Fatalf("expected page title, got %v", fields)
	}
}

func TestParseTreeLogsMalformedBody(t *testing.T) {
	logs := observeLogs(t)
	resp := &Response{Code: http.StatusOK, Body: []byte(`{"a": oops}`)}

	if _, err := ParseTree(resp, "http://example.com/bad"); err == nil {
		t.Fatalf("expected parse error")
	}

	fields := loggedFields(t, logs, zapcore.ErrorLevel, "error reading result of URL", "httpclient_parse_error")
	if fields["url"] != "http://example.com/bad" || fields["response"] != `{"a": oops}` {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestCheckErrorShapeLogsDiagnostics(t *testing.T) {
	cases := []struct {
		name string
		body string
		msg  string
		want map[string]string
	}{
		{
			name: "info and traceback",
			body: `{"info": "boom", "traceback": "line 1"}`,
			msg:  "Django error",
			want: map[string]string{"info": "boom", "traceback": "line 1"},
		},
		{
			name: "djerror",
			body: `{"djerror": "bad slice"}`,
			msg:  "Django error",
			want: map[string]string{"djerror": "bad slice"},
		},
		{
			name: "error",
			body: `{"error": "Status 500 when getting x"}`,
			msg:  "HTTP error",
			want: map[string]string{"error": "Status 500 when getting x"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logs := observeLogs(t)
			if matched, err := CheckErrorShape(mustParse(t, tc.body)); !matched || err != nil {
				t.Fatalf("CheckErrorShape: matched=%v err=%v", matched, err)
			}
			fields := loggedFields(t, logs, zapcore.ErrorLevel, tc.msg, "httpclient_error_shape")
			for k, v := range tc.want {
				if fields[k] != v {
					t.Fatalf("field %s = %v, want %q", k, fields[k], v)
				}
			}
		})
	}
}

func TestCheckErrorShapeLogsNullTree(t *testing.T) {
	logs := observeLogs(t)
	if matched, _ := CheckErrorShape(nil); !matched {
		t.Fatalf("nil tree should match")
	}
	loggedFields(t, logs, zapcore.ErrorLevel, "JSON error: null tree", "httpclient_error_shape")
}

func TestRegularPayloadLogsNothing(t *testing.T) {
	logs := observeLogs(t)
	if IsKnownErrorShape(mustParse(t, `{"id": 4}`)) {
		t.Fatalf("regular payload should not match")
	}
	if logs.Len() != 0 {
		t.Fatalf("expected no log entries, got %v", logs.All())
	}
}
