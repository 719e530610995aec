package platform

// Endpoints is the provider-owned part of a Config row.
type Endpoints struct {
	AuthorizeURL string
	TokenURL     string
	ValidateURL  string
	Scopes       []string
	Quirks       Quirk
}

// Catalog holds the built-in endpoint table. Deployments may override any
// URL or the scope list through configuration.
var Catalog = map[Platform]Endpoints{
	LinkedIn: {
		AuthorizeURL: "https://www.linkedin.com/oauth/v2/authorization",
		TokenURL:     "https://www.linkedin.com/oauth/v2/accessToken",
		ValidateURL:  "https://api.linkedin.com/v2/userinfo",
		Scopes:       []string{"openid", "profile", "email", "w_member_social"},
	},
	Facebook: {
		AuthorizeURL: "https://www.facebook.com/v18.0/dialog/oauth",
		TokenURL:     "https://graph.facebook.com/v18.0/oauth/access_token",
		ValidateURL:  "https://graph.facebook.com/v18.0/me?fields=id,name",
		Scopes:       []string{"pages_show_list", "pages_read_engagement", "pages_manage_posts"},
		Quirks:       QuirkLongLivedUpgrade | QuirkFBExchangeGrant | QuirkQueryToken,
	},
	Instagram: {
		AuthorizeURL: "https://www.facebook.com/v18.0/dialog/oauth",
		TokenURL:     "https://graph.facebook.com/v18.0/oauth/access_token",
		ValidateURL:  "https://graph.facebook.com/v18.0/me?fields=id,name,instagram_business_account",
		Scopes:       []string{"instagram_basic", "instagram_content_publish", "pages_show_list"},
		Quirks:       QuirkLongLivedUpgrade | QuirkFBExchangeGrant | QuirkQueryToken,
	},
	Twitter: {
		AuthorizeURL: "https://twitter.com/i/oauth2/authorize",
		TokenURL:     "https://api.twitter.com/2/oauth2/token",
		ValidateURL:  "https://api.twitter.com/2/users/me",
		Scopes:       []string{"tweet.read", "tweet.write", "users.read", "offline.access"},
		Quirks:       QuirkPKCE | QuirkBasicAuth,
	},
	TikTok: {
		AuthorizeURL: "https://www.tiktok.com/v2/auth/authorize/",
		TokenURL:     "https://open.tiktokapis.com/v2/oauth/token/",
		ValidateURL:  "https://open.tiktokapis.com/v2/user/info/?fields=open_id,display_name,avatar_url",
		Scopes:       []string{"user.info.basic", "video.upload", "video.publish"},
		Quirks:       QuirkClientKey,
	},
	YouTube: {
		AuthorizeURL: "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:     "https://oauth2.googleapis.com/token",
		ValidateURL:  "https://www.googleapis.com/oauth2/v3/userinfo",
		Scopes: []string{
			"https://www.googleapis.com/auth/youtube.upload",
			"https://www.googleapis.com/auth/youtube.readonly",
			"openid",
			"profile",
		},
		Quirks: QuirkOfflineAccess,
	},
}

// Credentials are the deployment-owned part of a Config row.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Overrides replaces catalog values when non-empty.
type Overrides struct {
	AuthorizeURL string
	TokenURL     string
	ValidateURL  string
	Scopes       []string
}

// FromCatalog builds the Config for p from the catalog, the deployment base
// URL and optional overrides.
func FromCatalog(p Platform, baseURL string, creds Credentials, ov Overrides) Config {
	e := Catalog[p]
	cfg := Config{
		Platform:     p,
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURI:  RedirectURIFor(baseURL, p),
		Scopes:       append([]string(nil), e.Scopes...),
		AuthorizeURL: e.AuthorizeURL,
		TokenURL:     e.TokenURL,
		ValidateURL:  e.ValidateURL,
		Quirks:       e.Quirks,
	}
	if ov.AuthorizeURL != "" {
		cfg.AuthorizeURL = ov.AuthorizeURL
	}
	if ov.TokenURL != "" {
		cfg.TokenURL = ov.TokenURL
	}
	if ov.ValidateURL != "" {
		cfg.ValidateURL = ov.ValidateURL
	}
	if len(ov.Scopes) > 0 {
		cfg.Scopes = append([]string(nil), ov.Scopes...)
	}
	return cfg
}
