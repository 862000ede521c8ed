// Package identity talks to the marketplace's auth endpoints. The engine
// stores what the provider issues; it never validates token signatures.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/campusstay/discovery/internal/models"
	appErrors "github.com/campusstay/discovery/pkg/errors"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// loginResponse mirrors the provider's login payload.
type loginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
}

// tokenClaims is the unverified claim set of the issued access token,
// used only as a fallback source for the role.
type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Client performs logins against the remote identity provider.
type Client struct {
	baseURL    string
	httpClient *http.Client
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewClient builds an identity client.
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
		validate:   validator.New(),
		logger:     logger,
	}
}

// Login exchanges credentials for an identity and an opaque token. Roles
// outside the closed enumeration are rejected as validation errors, not
// defaulted.
func (c *Client) Login(ctx context.Context, email, password string) (models.Identity, string, error) {
	reqBody := LoginRequest{Email: email, Password: password}
	if err := c.validate.Struct(reqBody); err != nil {
		return models.Identity{}, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login request")
	}

	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return models.Identity{}, "", fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.Identity{}, "", appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "login request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return models.Identity{}, "", appErrors.ErrInvalidCredentials
	}
	if resp.StatusCode != http.StatusOK {
		return models.Identity{}, "", appErrors.New(appErrors.ErrUnavailable.Code, resp.StatusCode, fmt.Sprintf("login returned status %d", resp.StatusCode))
	}

	var payload loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.Identity{}, "", fmt.Errorf("decode login response: %w", err)
	}
	if payload.AccessToken == "" {
		return models.Identity{}, "", appErrors.New(appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "login response missing access token")
	}

	rawRole := payload.Role
	if rawRole == "" {
		rawRole = c.roleFromToken(payload.AccessToken)
	}
	role, err := models.ParseRole(rawRole)
	if err != nil {
		return models.Identity{}, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "identity provider returned unknown role")
	}

	identity := models.Identity{
		Role:     role,
		Email:    payload.Email,
		FullName: payload.FullName,
	}
	if identity.Email == "" {
		identity.Email = email
	}
	return identity, payload.AccessToken, nil
}

// roleFromToken decodes the token's claims without verifying its
// signature. Verification belongs to the backend that issued it.
func (c *Client) roleFromToken(token string) string {
	claims := &tokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		c.logger.Debug("token claims unreadable", zap.Error(err))
		return ""
	}
	return claims.Role
}
