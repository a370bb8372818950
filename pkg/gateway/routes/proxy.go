package routes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/CS-UWC/OralSmart-sub001/pkg/common/logger"
	"github.com/CS-UWC/OralSmart-sub001/pkg/gateway/httpclient"
	"github.com/CS-UWC/OralSmart-sub001/pkg/gateway/middleware"
)

// errUpstream marks a 5xx answer so idempotent requests are retried.
var errUpstream = errors.New("upstream server error")

// Proxy forwards gateway requests to one backend service.
type Proxy struct {
	Name     string
	BaseURL  string
	Client   *http.Client
	Timeout  time.Duration
	Attempts int
	MaxBody  int64
}

func NewProxy(name, baseURL string, client *http.Client, timeout time.Duration, attempts int, maxBody int64) *Proxy {
	return &Proxy{
		Name:     name,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Client:   client,
		Timeout:  timeout,
		Attempts: attempts,
		MaxBody:  maxBody,
	}
}

// RegisterRiskRoutes mounts the prediction API under router.
func RegisterRiskRoutes(router *mux.Router, p *Proxy) {
	mustBeConfigured(p)
	router.HandleFunc("/risk/assess", p.Forward).Methods(http.MethodPost)
	router.HandleFunc("/risk/predict", p.Forward).Methods(http.MethodPost)
	router.HandleFunc("/patients/{id}/risk", p.Forward).Methods(http.MethodGet)
	router.HandleFunc("/predictions", p.Forward).Methods(http.MethodGet)
	router.HandleFunc("/model", p.Forward).Methods(http.MethodGet)
	router.HandleFunc("/model/reload", p.Forward).Methods(http.MethodPost)
	router.HandleFunc("/features", p.Forward).Methods(http.MethodGet)
}

// RegisterTrainingRoutes mounts the training job API under router.
func RegisterTrainingRoutes(router *mux.Router, p *Proxy) {
	mustBeConfigured(p)
	router.HandleFunc("/training/jobs", p.Forward).Methods(http.MethodPost)
	router.HandleFunc("/training/jobs", p.Forward).Methods(http.MethodGet)
	router.HandleFunc("/training/jobs/{id}", p.Forward).Methods(http.MethodGet)
}

func mustBeConfigured(p *Proxy) {
	if p == nil || p.Client == nil || p.BaseURL == "" {
		panic("proxy requires a client and a base url")
	}
}

// Forward relays the request to the same path on the backend. GET requests
// are retried on transport errors and 5xx answers.
func (p *Proxy) Forward(w http.ResponseWriter, r *http.Request) {
	var payload []byte
	if r.Body != nil && r.Method != http.MethodGet {
		body := io.Reader(r.Body)
		if p.MaxBody > 0 {
			body = http.MaxBytesReader(w, r.Body, p.MaxBody)
		}
		buf, err := io.ReadAll(body)
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}
		payload = buf
	}

	target := p.BaseURL + r.URL.Path
	if r.URL.RawQuery != "" {
		target = fmt.Sprintf("%s?%s", target, r.URL.RawQuery)
	}

	ctx := r.Context()
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	attempts := 1
	if r.Method == http.MethodGet && p.Attempts > 1 {
		attempts = p.Attempts
	}

	corrID := r.Header.Get(middleware.RequestIDHeader)
	if corrID == "" {
		corrID = uuid.New().String()
	}

	var resp *http.Response
	err := httpclient.Retry(ctx, attempts, 100*time.Millisecond, func() error {
		req, err := http.NewRequestWithContext(ctx, r.Method, target, bytes.NewReader(payload))
		if err != nil {
			return httpclient.Permanent(err)
		}
		copyHeaders(r, req, len(payload) > 0)
		req.Header.Set(middleware.RequestIDHeader, corrID)

		res, err := p.Client.Do(req)
		if err != nil {
			return err
		}
		if res.StatusCode >= http.StatusInternalServerError && attempts > 1 {
			// keep the last answer so it can be relayed if retries run out
			if resp != nil {
				resp.Body.Close()
			}
			resp = res
			return errUpstream
		}
		if resp != nil {
			resp.Body.Close()
		}
		resp = res
		return nil
	})
	if resp == nil {
		logger.Log.WithError(err).WithField("service", p.Name).Error("proxy request failed")
		http.Error(w, p.Name+" service unavailable", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	for k, v := range resp.Header {
		for _, value := range v {
			w.Header().Add(k, value)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.Log.WithError(err).Error("failed to copy upstream response")
	}

	logger.Log.WithFields(map[string]interface{}{
		"service":    p.Name,
		"url":        target,
		"status":     resp.StatusCode,
		"request_id": corrID,
	}).Info("Forwarded request")
}

func copyHeaders(src *http.Request, dst *http.Request, hasBody bool) {
	for k, v := range src.Header {
		if strings.EqualFold(k, "Content-Length") || strings.EqualFold(k, "Connection") {
			continue
		}
		dst.Header[k] = append([]string(nil), v...)
	}
	if hasBody && dst.Header.Get("Content-Type") == "" {
		dst.Header.Set("Content-Type", "application/json")
	}
}
