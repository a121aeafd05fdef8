package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/agroscan/agroscan/pkg/storage"
	"github.com/agroscan/agroscan/pkg/whttp"
)

const (
	SCAN_HISTORY_PATH     = "/scan_history"
	LANDSAT_SCENES_PATH   = "/landsat_scenes"
	LANDSAT_SCENE_PATH    = "/landsat_scene"
	LANDSAT_DOWNLOAD_PATH = "/landsat_download"
	DETECT_DISEASE_PATH   = "/detect_disease"
	WEATHER_PATH          = "/api/weather"

	DefaultPrefix  = "/api/v1"
	DefaultDataset = "landsat_ot_c2_l2"
	DefaultTimeout = 60 * time.Second
)

// Config describes how to reach the remote analysis service.
type Config struct {
	BaseURL string
	// Prefix is prepended to every path except the weather endpoint.
	Prefix string
	// Dataset is sent along with scene download requests.
	Dataset string
	// Timeout bounds requests whose context carries no deadline.
	Timeout time.Duration
	HTTP    whttp.Config
}

// Client talks to the remote analysis service.
type Client struct {
	cfg  Config
	http *whttp.Client
}

func New(cfg Config) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("analysis: base URL is required")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("analysis: invalid base URL %q: %v", cfg.BaseURL, err)
	}
	if cfg.Prefix != "" && !strings.HasPrefix(cfg.Prefix, "/") {
		cfg.Prefix = "/" + cfg.Prefix
	}
	cfg.Prefix = strings.TrimRight(cfg.Prefix, "/")
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	hc, err := whttp.NewClient(cfg.HTTP)
	if err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, http: hc}, nil
}

// HTTPClient exposes the transport for tests.
func (c *Client) HTTPClient() *http.Client { return c.http.HTTPClient() }

// BaseURL returns the normalized service root.
func (c *Client) BaseURL() string { return c.cfg.BaseURL }

func (c *Client) endpoint(path string) string {
	return c.cfg.BaseURL + c.cfg.Prefix + path
}

// do sends req and returns the body of a 2xx answer. Anything else is a NetworkFailure.
func (c *Client) do(ctx context.Context, op string, req *whttp.WHTTPReq) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	res, err := c.http.SendHTTPRequest(ctx, req)
	if err != nil {
		return "", transportError(op, err)
	}
	if !res.OK() {
		return "", statusError(op, res)
	}
	return res.BodyString, nil
}

// FetchHistory returns the remote scan history in the order the service sent it.
func (c *Client) FetchHistory(ctx context.Context) ([]storage.ScanRecord, error) {
	body, err := c.do(ctx, "fetch history", &whttp.WHTTPReq{Method: http.MethodGet, URL: c.endpoint(SCAN_HISTORY_PATH)})
	if err != nil {
		return nil, err
	}
	return parseHistory(body)
}

// DeleteScan removes one scan on the server.
func (c *Client) DeleteScan(ctx context.Context, id string) error {
	u := c.endpoint(SCAN_HISTORY_PATH) + "/" + url.PathEscape(id)
	_, err := c.do(ctx, "delete scan", &whttp.WHTTPReq{Method: http.MethodDelete, URL: u})
	return err
}

// DiscoverScenes lists the scenes matching q. An empty list is not an error.
func (c *Client) DiscoverScenes(ctx context.Context, q SceneQuery) ([]SceneCandidate, error) {
	v := url.Values{}
	v.Set("region", q.Region)
	v.Set("date", q.Date)
	v.Set("max_cloud", strconv.Itoa(q.MaxCloud))
	body, err := c.do(ctx, "discover scenes", &whttp.WHTTPReq{
		Method: http.MethodGet,
		URL:    c.endpoint(LANDSAT_SCENES_PATH) + "?" + v.Encode(),
	})
	if err != nil {
		return nil, err
	}
	return parseScenes(body)
}

// SceneMetadata fetches full metadata for one scene and merges it over base.
func (c *Client) SceneMetadata(ctx context.Context, base SceneCandidate) (SceneCandidate, error) {
	payload, _ := json.Marshal(map[string]string{"entityId": base.EntityID})
	body, err := c.do(ctx, "scene metadata", whttp.JSONRequest(http.MethodPost, c.endpoint(LANDSAT_SCENE_PATH), payload))
	if err != nil {
		return base, err
	}
	return mergeScene(base, body)
}

// PrepareDownload asks the service to fetch the scene files before analysis.
func (c *Client) PrepareDownload(ctx context.Context, entityIDs ...string) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"entityIds":   entityIDs,
		"datasetName": c.cfg.Dataset,
	})
	_, err := c.do(ctx, "prepare download", whttp.JSONRequest(http.MethodPost, c.endpoint(LANDSAT_DOWNLOAD_PATH), payload))
	return err
}

// DetectDisease submits a scene id or a local image for analysis.
func (c *Client) DetectDisease(ctx context.Context, req DetectRequest) (AnalysisResult, error) {
	var wReq *whttp.WHTTPReq
	switch {
	case req.SceneID != "":
		payload := map[string]interface{}{
			"sceneId":      req.SceneID,
			"generate_map": req.GenerateMap,
		}
		if req.Threshold > 0 {
			payload["threshold"] = req.Threshold
		}
		data, _ := json.Marshal(payload)
		wReq = whttp.JSONRequest(http.MethodPost, c.endpoint(DETECT_DISEASE_PATH), data)
	case req.ImagePath != "":
		fields := map[string]string{"generate_map": strconv.FormatBool(req.GenerateMap)}
		if req.Threshold > 0 {
			fields["threshold"] = strconv.FormatFloat(req.Threshold, 'f', -1, 64)
		}
		var err error
		wReq, err = whttp.MultipartFileRequest(c.endpoint(DETECT_DISEASE_PATH), "file", req.ImagePath, fields)
		if err != nil {
			return AnalysisResult{}, fmt.Errorf("detect disease: reading %s: %w", req.ImagePath, err)
		}
	default:
		return AnalysisResult{}, fmt.Errorf("detect disease: nothing to analyse")
	}

	body, err := c.do(ctx, "detect disease", wReq)
	if err != nil {
		return AnalysisResult{}, err
	}
	return parseDetection(body)
}

// Weather reads current conditions for a region. The endpoint lives at the service root.
func (c *Client) Weather(ctx context.Context, region string) (Weather, error) {
	u := c.cfg.BaseURL + WEATHER_PATH + "?" + url.Values{"region": {region}}.Encode()
	body, err := c.do(ctx, "weather", &whttp.WHTTPReq{Method: http.MethodGet, URL: u})
	if err != nil {
		return Weather{}, err
	}
	w, err := parseWeather(body)
	if err != nil {
		return Weather{}, err
	}
	w.Region = region
	w.FetchedAt = time.Now()
	return w, nil
}
