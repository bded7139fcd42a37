package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/service"
)

// stateCookie names the cookie carrying the CSRF state between the redirect
// and the callback.
const stateCookie = "oauth_state"

// OauthHandler drives the authorization-code flow against the configured
// providers and hands the verified identity to the OAuth session bridge.
type OauthHandler struct {
	Providers map[string]config.OAuthProvider
	Oauth     *service.OauthService
}

func NewOauthHandler(providers map[string]config.OAuthProvider, oauth *service.OauthService) *OauthHandler {
	return &OauthHandler{Providers: providers, Oauth: oauth}
}

// LoginRedirect sends the client to the provider's consent screen. The state
// parameter is mirrored into a short-lived cookie for the callback check.
func (h *OauthHandler) LoginRedirect(c echo.Context) error {
	provider, ok := h.Providers[c.Param("provider")]
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown provider"})
	}

	state := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
	})
	return c.Redirect(http.StatusFound, provider.Config.AuthCodeURL(state))
}

// Callback exchanges the authorization code, fetches the provider's userinfo
// and logs the mapped local user in, returning a token pair.
func (h *OauthHandler) Callback(c echo.Context) error {
	provider, ok := h.Providers[c.Param("provider")]
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown provider"})
	}

	cookie, err := c.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != c.QueryParam("state") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "state mismatch"})
	}
	code := c.QueryParam("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	tok, err := provider.Config.Exchange(ctx, code)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "code exchange failed"})
	}

	identity, err := fetchIdentity(ctx, provider, tok.AccessToken)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "userinfo fetch failed"})
	}

	pair, err := h.Oauth.Login(ctx, identity, requestMeta(c))
	if err != nil {
		if errors.Is(err, service.ErrDependencyUnavailable) {
			return c.JSON(http.StatusFailedDependency, echo.Map{"error": "token storage unavailable"})
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "oauth login failed"})
	}
	return c.JSON(http.StatusOK, tokenResp{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

// providerUserinfo covers the field names Google and Yandex use for the same
// three attributes.
type providerUserinfo struct {
	Sub          string `json:"sub"`   // google subject
	ID           string `json:"id"`    // yandex subject
	Name         string `json:"name"`  // google display name
	Login        string `json:"login"` // yandex login
	Email        string `json:"email"` // google email
	DefaultEmail string `json:"default_email"`
}

func fetchIdentity(ctx context.Context, provider config.OAuthProvider, accessToken string) (service.ExternalIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, provider.UserinfoURL, nil)
	if err != nil {
		return service.ExternalIdentity{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return service.ExternalIdentity{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return service.ExternalIdentity{}, errors.New("userinfo status " + resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return service.ExternalIdentity{}, err
	}
	var info providerUserinfo
	if err := json.Unmarshal(body, &info); err != nil {
		return service.ExternalIdentity{}, err
	}

	identity := service.ExternalIdentity{
		Provider:  provider.Name,
		SubjectID: info.Sub,
		Name:      info.Name,
		Email:     info.Email,
	}
	if identity.SubjectID == "" {
		identity.SubjectID = info.ID
	}
	if identity.Name == "" {
		identity.Name = info.Login
	}
	if identity.Email == "" {
		identity.Email = info.DefaultEmail
	}
	if identity.SubjectID == "" || identity.Name == "" {
		return service.ExternalIdentity{}, errors.New("incomplete userinfo")
	}
	return identity, nil
}
