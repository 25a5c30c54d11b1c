package llm

import (
	"bytes"
	"io"
	"log"
	"net/http"
	"strings"
)

const maxLoggedBody = 4096

// LoggingTransport is an http.RoundTripper that logs outbound request and
// response bodies when LogLevel is "debug". Credentials are never logged.
type LoggingTransport struct {
	Base     http.RoundTripper
	LogLevel string
}

func (t *LoggingTransport) base() http.RoundTripper {
	if t.Base == nil {
		return http.DefaultTransport
	}
	return t.Base
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if strings.ToLower(t.LogLevel) != "debug" {
		return t.base().RoundTrip(req)
	}

	var reqBody []byte
	if req.Body != nil {
		reqBody, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(reqBody))
	}

	auth := "none"
	if req.Header.Get("Authorization") != "" {
		auth = "<redacted>"
	}
	log.Printf("DEBUG OUTBOUND REQUEST: [%s] %s (authorization: %s)", req.Method, req.URL.String(), auth)
	if len(reqBody) > 0 {
		log.Printf("DEBUG OUTBOUND REQUEST BODY: %s", truncate(reqBody))
	}

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return resp, err
	}

	log.Printf("DEBUG OUTBOUND RESPONSE: %d %s", resp.StatusCode, req.URL.String())

	respBody, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(respBody))

	if len(respBody) > 0 {
		log.Printf("DEBUG OUTBOUND RESPONSE BODY: %s", truncate(respBody))
	}

	return resp, nil
}

func truncate(b []byte) string {
	if len(b) <= maxLoggedBody {
		return string(b)
	}
	return string(b[:maxLoggedBody]) + "...(truncated)"
}
