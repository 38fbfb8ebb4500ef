package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CLUSTER_API_URL", "https://ceph.example.com:8443")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, TaskStoreSQL, cfg.Tasks.Store)
	assert.Equal(t, 200, cfg.Tasks.History)
	assert.Equal(t, 30*time.Second, cfg.Cluster.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.UseFileShim())
	assert.False(t, cfg.OIDC.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("TASK_STORE", "redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("CLUSTER_FILE_SHIM", "/tmp/hosts.json")
	t.Setenv("CLUSTER_TIMEOUT", "5s")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, TaskStoreRedis, cfg.Tasks.Store)
	assert.Equal(t, 3, cfg.Tasks.RedisDB)
	assert.Equal(t, 5*time.Second, cfg.Cluster.Timeout)
	assert.True(t, cfg.UseFileShim())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")
	_, err := Load()
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: "sqlite3"},
		Tasks:    TaskConfig{Store: TaskStoreMemory},
		Cluster:  ClusterConfig{APIURL: "https://ceph.example.com"},
		Log:      LogConfig{Format: "json"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing cluster url", func(c *Config) { c.Cluster.APIURL = "" }, "CLUSTER_API_URL"},
		{"file shim replaces url", func(c *Config) { c.Cluster.APIURL = ""; c.Cluster.FileShim = "hosts.json" }, ""},
		{"client id without token url", func(c *Config) { c.Cluster.ClientID = "dash" }, "CLUSTER_TOKEN_URL"},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, "DB_DRIVER"},
		{"bad task store", func(c *Config) { c.Tasks.Store = "etcd" }, "TASK_STORE"},
		{"negative history", func(c *Config) { c.Tasks.History = -1 }, "TASK_HISTORY"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "LOG_FORMAT"},
		{"oidc missing issuer", func(c *Config) { c.OIDC.Enabled = true }, "OIDC_ISSUER_URL"},
		{"oidc short secret", func(c *Config) {
			c.OIDC = OIDCConfig{Enabled: true, IssuerURL: "https://idp", ClientID: "id", ClientSecret: "s", RedirectURL: "https://cb", SessionSecret: "short"}
		}, "OIDC_SESSION_SECRET"},
		{"oidc complete", func(c *Config) {
			c.OIDC = OIDCConfig{Enabled: true, IssuerURL: "https://idp", ClientID: "id", ClientSecret: "s", RedirectURL: "https://cb", SessionSecret: strings.Repeat("ab", 32)}
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOIDCHelpers(t *testing.T) {
	c := OIDCConfig{Scopes: "openid, email ,groups", AllowedDomains: "example.com, corp.example.com"}
	assert.Equal(t, []string{"openid", "email", "groups"}, c.GetScopes())
	assert.Equal(t, []string{"example.com", "corp.example.com"}, c.GetAllowedDomains())

	empty := OIDCConfig{}
	assert.Equal(t, []string{"openid", "email", "profile"}, empty.GetScopes())
	assert.Nil(t, empty.GetAllowedDomains())

	raw := OIDCConfig{SessionSecret: strings.Repeat("x", 32)}
	b, err := raw.GetSessionSecretBytes()
	require.NoError(t, err)
	assert.Len(t, b, 32)

	hexed := OIDCConfig{SessionSecret: strings.Repeat("0f", 32)}
	b, err = hexed.GetSessionSecretBytes()
	require.NoError(t, err)
	assert.Len(t, b, 32)
}
