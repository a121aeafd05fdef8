package whttp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agroscan/agroscan/internal/utils"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/html"
)

const userAgent = "agroscan/1.0 (+https://github.com/agroscan/agroscan)"

type WHTTPHeader struct {
	Name  string
	Value string
}

type WHTTPReq struct {
	URL     string
	Method  string
	Headers []WHTTPHeader
	Body    []byte
}

type WHTTPRes struct {
	StatusCode int
	HTTPTitle  string
	BodyString string
}

// OK reports a 2xx status.
func (r *WHTTPRes) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Config controls retries and proxying of a Client.
type Config struct {
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Proxy        string
}

// Client sends requests through a retrying HTTP client.
type Client struct {
	rc *retryablehttp.Client
}

func NewClient(cfg Config) (*Client, error) {
	rc := retryablehttp.NewClient()
	rc.Logger = leveledLogrus{}
	rc.RetryMax = cfg.RetryMax
	if cfg.RetryWaitMin > 0 {
		rc.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		rc.RetryWaitMax = cfg.RetryWaitMax
	}
	// Hand back the last response instead of a generic "giving up" error so callers
	// can report the status code.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %v", err)
		}
		rc.HTTPClient.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	}
	return &Client{rc: rc}, nil
}

// HTTPClient exposes the underlying client, mostly so tests can swap its transport.
func (c *Client) HTTPClient() *http.Client {
	return c.rc.HTTPClient
}

func (c *Client) SendHTTPRequest(ctx context.Context, wReq *WHTTPReq) (*WHTTPRes, error) {
	var body interface{}
	if wReq.Body != nil {
		body = wReq.Body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, wReq.Method, wReq.URL, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en")

	for _, h := range wReq.Headers {
		req.Header.Set(h.Name, h.Value)
	}

	resp, err := c.rc.Do(req)
	if resp == nil {
		if err == nil {
			err = fmt.Errorf("%s %s: no response", wReq.Method, wReq.URL)
		}
		return nil, err
	}
	defer resp.Body.Close()
	if err != nil {
		utils.Log.Debugf("%s %s gave up retrying with status %d: %v", wReq.Method, wReq.URL, resp.StatusCode, err)
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	wRes := &WHTTPRes{
		StatusCode: resp.StatusCode,
		BodyString: string(bodyBytes),
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "html") {
		if title, ok := getHTMLTitle(wRes.BodyString); ok {
			wRes.HTTPTitle = strings.ToValidUTF8(strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(title, "\n", ""), "\r", "")), "")
		}
	}
	return wRes, nil
}

// JSONRequest builds a request carrying a JSON payload.
func JSONRequest(method, url string, payload []byte) *WHTTPReq {
	return &WHTTPReq{
		Method:  method,
		URL:     url,
		Body:    payload,
		Headers: []WHTTPHeader{{Name: "Content-Type", Value: "application/json"}},
	}
}

// MultipartFileRequest builds a multipart/form-data POST with a single file part.
func MultipartFileRequest(url, field, path string, fields map[string]string) (*WHTTPReq, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	part, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	return &WHTTPReq{
		Method:  http.MethodPost,
		URL:     url,
		Body:    buf.Bytes(),
		Headers: []WHTTPHeader{{Name: "Content-Type", Value: mw.FormDataContentType()}},
	}, nil
}

func isTitleElement(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "title"
}

func traverse(n *html.Node) (string, bool) {
	if isTitleElement(n) {
		if n.FirstChild != nil {
			return n.FirstChild.Data, true
		}
		return "", true
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		result, ok := traverse(c)
		if ok {
			return result, ok
		}
	}

	return "", false
}

func getHTMLTitle(requestBody string) (string, bool) {
	doc, err := html.Parse(strings.NewReader(requestBody))
	if err != nil {
		utils.Log.Debugf("Failed to parse HTML error page: %v", err)
		return "", false
	}

	return traverse(doc)
}

// leveledLogrus routes retryablehttp's logging into the shared logger.
type leveledLogrus struct{}

func (leveledLogrus) Error(msg string, kv ...interface{}) { utils.Log.WithFields(fields(kv)).Error(msg) }
func (leveledLogrus) Info(msg string, kv ...interface{})  { utils.Log.WithFields(fields(kv)).Debug(msg) }
func (leveledLogrus) Debug(msg string, kv ...interface{}) { utils.Log.WithFields(fields(kv)).Debug(msg) }
func (leveledLogrus) Warn(msg string, kv ...interface{})  { utils.Log.WithFields(fields(kv)).Warn(msg) }

func fields(kv []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return out
}
