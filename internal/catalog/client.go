package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/campusstay/discovery/internal/models"
	appErrors "github.com/campusstay/discovery/pkg/errors"
)

// propertyPayload mirrors the remote catalog's wire shape. The backend
// reports bachelor (private) units and joins campus intake into one
// comma-separated string; both are normalised here.
type propertyPayload struct {
	ID              int64    `json:"id"`
	Title           string   `json:"title"`
	Address         string   `json:"address"`
	IsBachelor      bool     `json:"is_bachelor"`
	AvailableFlats  int      `json:"available_flats"`
	TotalFlats      int      `json:"total_flats"`
	SpacePerStudent int      `json:"space_per_student"`
	CampusIntake    string   `json:"campus_intake"`
	ImageURLs       []string `json:"image_urls"`
}

// Client fetches catalog snapshots from the remote marketplace API. It
// performs no retries; callers decide whether and how to surface
// failures.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a catalog client. The http.Client carries the
// request timeout.
func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// ListProperties loads one immutable catalog snapshot.
func (c *Client) ListProperties(ctx context.Context) ([]models.Property, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/properties/", nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "catalog fetch failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, appErrors.New(appErrors.ErrUnavailable.Code, resp.StatusCode, fmt.Sprintf("catalog returned status %d", resp.StatusCode))
	}

	var payload []propertyPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}

	properties := make([]models.Property, 0, len(payload))
	for _, item := range payload {
		p := item.toModel()
		if err := p.Validate(); err != nil {
			c.logger.Warn("skipping invalid listing", zap.Int64("property_id", item.ID), zap.Error(err))
			continue
		}
		properties = append(properties, p)
	}
	return properties, nil
}

func (p propertyPayload) toModel() models.Property {
	return models.Property{
		ID:             p.ID,
		Title:          p.Title,
		Address:        p.Address,
		IsSharedUnit:   !p.IsBachelor,
		AvailableUnits: p.AvailableFlats,
		TotalUnits:     p.TotalFlats,
		UnitCapacity:   p.SpacePerStudent,
		CampusIntake:   splitCampuses(p.CampusIntake),
		ImageURLs:      p.ImageURLs,
	}
}

// splitCampuses breaks the comma-joined intake string into trimmed
// campus names, dropping empties.
func splitCampuses(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
