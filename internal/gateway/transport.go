package gateway

import (
	"bytes"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"go-ingredient-analyzer/internal/logger"
)

const maxLoggedBody = 4 << 10

// attributionTransport adds the HTTP-Referer and X-Title headers OpenRouter
// uses for app attribution, and logs the body of every non-2xx answer.
type attributionTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t *attributionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	if t.referer != "" {
		r.Header.Set("HTTP-Referer", t.referer)
	}
	if t.title != "" {
		r.Header.Set("X-Title", t.title)
	}

	resp, err := t.base.RoundTrip(r)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	entry := logger.WithFields(logrus.Fields{
		"status_code": resp.StatusCode,
		"url":         req.URL.Redacted(),
	})
	if readErr != nil {
		entry = entry.WithError(readErr)
	}
	if len(body) > maxLoggedBody {
		body = body[:maxLoggedBody]
	}
	entry.WithField("body", string(body)).Warn("Model service returned an error status")

	return resp, nil
}
