package capture

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestNormalizeDefaults(t *testing.T) {
	opts := Options{URL: "http://127.0.0.1/", OutputPath: "out.png"}
	if err := opts.normalize(); err != nil {
		t.Fatalf("normalize returned error: %v", err)
	}
	if opts.Width != DefaultWidth || opts.Height != DefaultHeight {
		t.Errorf("Expected default viewport, got %dx%d", opts.Width, opts.Height)
	}
	if opts.Timeout != DefaultTimeoutSec*time.Second {
		t.Errorf("Expected default timeout, got %s", opts.Timeout)
	}
}

func TestCapturePNGValidatesOptions(t *testing.T) {
	cases := map[string]Options{
		"missing url":    {OutputPath: "out.png"},
		"missing output": {URL: "http://127.0.0.1/"},
		"bad viewport":   {URL: "http://127.0.0.1/", OutputPath: "out.png", Width: -1},
	}
	for name, opts := range cases {
		err := CapturePNG(context.Background(), opts)
		if err == nil || !strings.HasPrefix(err.Error(), "capture:") {
			t.Errorf("%s: expected capture error, got %v", name, err)
		}
	}
}

func TestServeAndCaptureValidatesBeforeLaunch(t *testing.T) {
	err := ServeAndCapture(context.Background(), http.NotFoundHandler(), Options{})
	if err == nil || !strings.Contains(err.Error(), "OutputPath") {
		t.Errorf("Expected OutputPath error, got %v", err)
	}
}

func TestBasicAuth(t *testing.T) {
	if got := BasicAuth("admin", "secret"); got != "Basic YWRtaW46c2VjcmV0" {
		t.Errorf("Unexpected header %q", got)
	}
}
