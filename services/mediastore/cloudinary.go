package mediastore

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/media"
)

const defaultBaseURL = "https://api.cloudinary.com/v1_1"

// CloudinaryAdmin talks to the Cloudinary Admin API to manage upload presets.
type CloudinaryAdmin struct {
	baseURL   string
	apiKey    string
	apiSecret string
	client    *http.Client
}

var _ media.ProviderAdmin = (*CloudinaryAdmin)(nil)

func NewCloudinaryAdmin() *CloudinaryAdmin {
	return &CloudinaryAdmin{
		baseURL:   defaultBaseURL + "/" + core.Conf.Media.CloudName,
		apiKey:    core.Conf.Media.ApiKey,
		apiSecret: core.Conf.Media.ApiSecret,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *CloudinaryAdmin) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	req.SetBasicAuth(a.apiKey, a.apiSecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.client.Do(req)
}

func (a *CloudinaryAdmin) DeletePreset(ctx context.Context, name string) error {
	res, err := a.do(ctx, http.MethodDelete, "/upload_presets/"+name, nil)
	if err != nil {
		return errors.Wrap(err, "calling upload preset API")
	}
	defer func() { _ = res.Body.Close() }()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return media.ErrPresetNotFound
	case res.StatusCode >= http.StatusBadRequest:
		body, _ := ioutil.ReadAll(res.Body)
		return errors.Errorf("deleting upload preset - status: %d - Body: %s", res.StatusCode, body)
	}
	return nil
}

func (a *CloudinaryAdmin) CreatePreset(ctx context.Context, cfg media.PresetConfig) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshalling preset config")
	}

	res, err := a.do(ctx, http.MethodPost, "/upload_presets", bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "calling upload preset API")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode >= http.StatusBadRequest {
		body, _ := ioutil.ReadAll(res.Body)
		return errors.Errorf("creating upload preset - status: %d - Body: %s", res.StatusCode, body)
	}
	return nil
}
