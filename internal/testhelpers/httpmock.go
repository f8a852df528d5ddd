package testhelpers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"
)

type Expectation struct {
	Method string
	URL    *url.URL

	StatusCode int
	RespBody   []byte
	Headers    http.Header
	Err        error
	Latency    time.Duration

	isMatched      bool
	MismatchReason string
}

type MockTransport struct {
	Expectations []*Expectation
	mutex        sync.Mutex
}

func NewMockTransport() *MockTransport {
	return &MockTransport{
		Expectations: make([]*Expectation, 0),
	}
}

var (
	DefaultTransport                           = NewMockTransport()
	originalDefaultTransport http.RoundTripper = http.DefaultTransport
)

func New(baseURL string) *Expectation {
	u, err := url.Parse(baseURL)
	if err != nil {
		panic(fmt.Sprintf("httpmock: invalid base URL provided: %v", err))
	}

	if u.Scheme == "" || u.Host == "" {
		panic(fmt.Sprintf("httpmock: base URL must include scheme and host (e.g., http://%s)", baseURL))
	}

	exp := &Expectation{
		URL:     u,
		Headers: make(http.Header),
	}
	DefaultTransport.Add(exp)
	return exp
}

func (e *Expectation) Get(path string) *Expectation {
	e.Method = http.MethodGet

	u, err := url.Parse(path)
	if err != nil {
		panic(fmt.Sprintf("httpmock: invalid path provided: %v", err))
	}

	e.URL.Path = u.Path
	e.URL.RawQuery = u.RawQuery
	return e
}

// ReplyError makes the matched request fail at the transport level.
func (e *Expectation) ReplyError(err error) *Expectation {
	e.Err = err
	return e
}

// Delay holds the response for d before returning it.
func (e *Expectation) Delay(d time.Duration) *Expectation {
	e.Latency = d
	return e
}

// Fixture replies with a file from testhelpers/fixtures.
func (e *Expectation) Fixture(name string) *Expectation {
	e.RespBody = MustLoadFixture(name)
	e.Headers.Set("Content-Type", "text/html; charset=utf-8")
	return e
}

func (e *Expectation) Reply(statusCode int) *Expectation {
	e.StatusCode = statusCode
	return e
}

func (e *Expectation) BodyString(body string) *Expectation {
	e.RespBody = []byte(body)
	return e
}

func (e *Expectation) Body(body []byte) *Expectation {
	e.RespBody = body
	return e
}

func (t *MockTransport) Add(exp *Expectation) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.Expectations = append(t.Expectations, exp)
}

func (t *MockTransport) Reset() {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.Expectations = make([]*Expectation, 0)
}

func IsDone() bool {
	DefaultTransport.mutex.Lock()
	defer DefaultTransport.mutex.Unlock()
	for _, exp := range DefaultTransport.Expectations {
		if !exp.isMatched {
			return false
		}
	}
	return true
}

func Activate() {
	if http.DefaultClient.Transport == DefaultTransport {
		return // Already active
	}

	if http.DefaultClient.Transport != nil {
		originalDefaultTransport = http.DefaultClient.Transport
	} else {
		originalDefaultTransport = http.DefaultTransport
	}

	http.DefaultClient.Transport = DefaultTransport
}

// Deactivate restores the original transport and resets all mocks.
func Deactivate() {
	http.DefaultClient.Transport = originalDefaultTransport
	DefaultTransport.Reset()
}

func (t *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	exp, err := t.claim(req)
	if err != nil {
		return nil, err
	}

	if exp.Latency > 0 {
		select {
		case <-time.After(exp.Latency):
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}

	if exp.Err != nil {
		return nil, exp.Err
	}
	return t.buildResponse(exp, req), nil
}

// Pending lists expectations that have not been matched yet.
func Pending() []string {
	DefaultTransport.mutex.Lock()
	defer DefaultTransport.mutex.Unlock()

	var out []string
	for _, exp := range DefaultTransport.Expectations {
		if !exp.isMatched {
			out = append(out, exp.Method+" "+exp.URL.String())
		}
	}
	return out
}

func (t *MockTransport) claim(req *http.Request) (*Expectation, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	for _, exp := range t.Expectations {
		if !exp.isMatched && t.matches(exp, req) {
			exp.isMatched = true
			return exp, nil
		}
	}

	var reasons []string
	for _, exp := range t.Expectations {
		if exp.MismatchReason != "" {
			reasons = append(reasons, exp.MismatchReason)
		}
	}

	extra := ""
	if len(reasons) > 0 {
		extra = " (" + strings.Join(reasons, "; ") + ")"
	}

	return nil, fmt.Errorf("httpmock: no match found for request %s %s%s", req.Method, req.URL, extra)
}

func (t *MockTransport) matches(exp *Expectation, req *http.Request) bool {
	exp.MismatchReason = mismatch(exp, req)
	return exp.MismatchReason == ""
}

// mismatch describes the first difference between exp and req. Only query
// keys named by the expectation are compared.
func mismatch(exp *Expectation, req *http.Request) string {
	switch {
	case exp.Method != "" && exp.Method != req.Method:
		return fmt.Sprintf("method: want %s, got %s", exp.Method, req.Method)
	case exp.URL.Scheme != req.URL.Scheme:
		return fmt.Sprintf("scheme: want %s, got %s", exp.URL.Scheme, req.URL.Scheme)
	case exp.URL.Host != req.URL.Host:
		return fmt.Sprintf("host: want %s, got %s", exp.URL.Host, req.URL.Host)
	case exp.URL.Path != req.URL.Path:
		return fmt.Sprintf("path: want %s, got %s", exp.URL.Path, req.URL.Path)
	}

	got := req.URL.Query()
	for key, want := range exp.URL.Query() {
		if !slices.Equal(got[key], want) {
			return fmt.Sprintf("query %s: want %v, got %v", key, want, got[key])
		}
	}
	return ""
}

func (t *MockTransport) buildResponse(exp *Expectation, req *http.Request) *http.Response {
	statusCode := exp.StatusCode
	if statusCode == 0 {
		statusCode = http.StatusOK // Default to 200 OK if not specified
	}

	return &http.Response{
		StatusCode: statusCode,
		// Body must be an io.ReadCloser.
		Body:          io.NopCloser(bytes.NewReader(exp.RespBody)),
		Header:        exp.Headers,
		Request:       req,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		ContentLength: int64(len(exp.RespBody)),
	}
}

func (e *Expectation) Header(key, value string) *Expectation {
	e.Headers.Set(key, value)
	return e
}
