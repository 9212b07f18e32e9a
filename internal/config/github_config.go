package config

type GitHubConfig interface {
	GetGitHubClientID() string
	GetGitHubClientSecret() string
	GetGitHubAllowList() []string
	GetGitHubEnterpriseURL() string
}

// GitHub holds the OAuth app credentials. An empty allow list lets any
// GitHub account bind tokens.
type GitHub struct {
	ClientID      string   `yaml:"client_id" env:"GH_CLIENT_ID"`
	ClientSecret  string   `yaml:"client_secret" env:"GH_CLIENT_SECRET"`
	AllowList     []string `yaml:"allow_list" env:"GH_ALLOW_LIST" env-separator:","`
	EnterpriseURL string   `yaml:"enterprise_url" env:"GH_ENTERPRISE_URL"`
}

var _ GitHubConfig = GitHub{}

func (g GitHub) GetGitHubClientID() string {
	return g.ClientID
}

func (g GitHub) GetGitHubClientSecret() string {
	return g.ClientSecret
}

func (g GitHub) GetGitHubAllowList() []string {
	return g.AllowList
}

func (g GitHub) GetGitHubEnterpriseURL() string {
	return g.EnterpriseURL
}
