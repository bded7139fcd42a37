package config

import (
	"golang.org/x/oauth2"
)

// OAuthProvider bundles everything needed to run the authorization-code flow
// against one external identity provider: the oauth2 client configuration and
// the userinfo endpoint queried after the code exchange.
type OAuthProvider struct {
	Name        string
	Config      oauth2.Config
	UserinfoURL string
}

// LoadOAuthProviders builds the provider registry from environment variables.
// A provider is registered only when its client id is set, so deployments can
// enable any subset of Google and Yandex.  Redirect URLs point back at the
// service's own callback route.
func LoadOAuthProviders() map[string]OAuthProvider {
	providers := map[string]OAuthProvider{}

	if id := envStr("OAUTH_GOOGLE_CLIENT_ID", ""); id != "" {
		providers["google"] = OAuthProvider{
			Name: "google",
			Config: oauth2.Config{
				ClientID:     id,
				ClientSecret: envStr("OAUTH_GOOGLE_CLIENT_SECRET", ""),
				RedirectURL:  envStr("OAUTH_GOOGLE_REDIRECT_URL", ""),
				Scopes:       []string{"openid", "email", "profile"},
				Endpoint: oauth2.Endpoint{
					AuthURL:  envStr("OAUTH_GOOGLE_AUTH_URL", "https://accounts.google.com/o/oauth2/v2/auth"),
					TokenURL: envStr("OAUTH_GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token"),
				},
			},
			UserinfoURL: envStr("OAUTH_GOOGLE_USERINFO_URL", "https://openidconnect.googleapis.com/v1/userinfo"),
		}
	}

	if id := envStr("OAUTH_YANDEX_CLIENT_ID", ""); id != "" {
		providers["yandex"] = OAuthProvider{
			Name: "yandex",
			Config: oauth2.Config{
				ClientID:     id,
				ClientSecret: envStr("OAUTH_YANDEX_CLIENT_SECRET", ""),
				RedirectURL:  envStr("OAUTH_YANDEX_REDIRECT_URL", ""),
				Endpoint: oauth2.Endpoint{
					AuthURL:  envStr("OAUTH_YANDEX_AUTH_URL", "https://oauth.yandex.ru/authorize"),
					TokenURL: envStr("OAUTH_YANDEX_TOKEN_URL", "https://oauth.yandex.ru/token"),
				},
			},
			UserinfoURL: envStr("OAUTH_YANDEX_USERINFO_URL", "https://login.yandex.ru/info?format=json"),
		}
	}

	return providers
}
