package federation

// Google drive scope delegated to the admin platform alongside profile/email
const GoogleDriveScope = "https://www.googleapis.com/auth/drive"

// NewGoogleProvider builds the Google provider configuration.
// The delegated drive scope and offline access are requested so the
// cloud-provider-linked flow obtains a refresh token.
func NewGoogleProvider(clientID, clientSecret string) *Provider {
	return &Provider{
		ID:           "google",
		DisplayName:  "Google",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AuthURL:      "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:     "https://oauth2.googleapis.com/token",
		UserInfoURL:  "https://www.googleapis.com/oauth2/v2/userinfo",
		Scopes: []string{
			"openid",
			"profile",
			"email",
			GoogleDriveScope,
		},
		ExtraAuthParams: map[string]string{
			"access_type": "offline",
			"prompt":      "consent",
		},
		Enabled: true,
	}
}

// NewGitHubProvider builds the GitHub provider configuration.
// GitHub profiles can omit a public email, so EmailsURL points at the
// verified-emails endpoint used as a fallback.
func NewGitHubProvider(clientID, clientSecret string) *Provider {
	return &Provider{
		ID:           "github",
		DisplayName:  "GitHub",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AuthURL:      "https://github.com/login/oauth/authorize",
		TokenURL:     "https://github.com/login/oauth/access_token",
		UserInfoURL:  "https://api.github.com/user",
		EmailsURL:    "https://api.github.com/user/emails",
		Scopes:       []string{"read:user", "user:email"},
		Enabled:      true,
	}
}
