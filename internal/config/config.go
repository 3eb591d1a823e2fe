package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	AccessSecret string
	TokenTTL     time.Duration
	UsersFile    string
	// Disabled turns off authentication and authorization entirely.
	// Local development only; Load refuses it in production.
	Disabled bool
}

// OrgProfile is the static identity material location for one
// organization on the permissioned network.
type OrgProfile struct {
	MSPID             string
	ConnectionProfile string
	CredentialDir     string
	IdentityLabel     string
}

type FabricConfig struct {
	ChannelName    string
	ChaincodeName  string
	DefaultOrg     string
	RequestTimeout time.Duration
	Orgs           map[string]OrgProfile
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	Auth        AuthConfig
	Fabric      FabricConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		Auth: AuthConfig{
			AccessSecret: v.GetString("JWT_ACCESS_SECRET"),
			TokenTTL:     v.GetDuration("JWT_TOKEN_TTL"),
			UsersFile:    v.GetString("AUTH_USERS_FILE"),
			Disabled:     v.GetBool("AUTH_DISABLED"),
		},
		Fabric: FabricConfig{
			ChannelName:    v.GetString("FABRIC_CHANNEL"),
			ChaincodeName:  v.GetString("FABRIC_CHAINCODE"),
			DefaultOrg:     v.GetString("FABRIC_DEFAULT_ORG"),
			RequestTimeout: v.GetDuration("FABRIC_REQUEST_TIMEOUT"),
			Orgs:           parseOrgs(v),
		},
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 3000
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 12 * time.Hour
	}
	if cfg.Auth.UsersFile == "" {
		cfg.Auth.UsersFile = "users.json"
	}
	if cfg.Fabric.ChannelName == "" {
		cfg.Fabric.ChannelName = "tenderchannel"
	}
	if cfg.Fabric.ChaincodeName == "" {
		cfg.Fabric.ChaincodeName = "tendercc"
	}
	if cfg.Fabric.RequestTimeout == 0 {
		cfg.Fabric.RequestTimeout = 30 * time.Second
	}
	if cfg.Fabric.DefaultOrg == "" && len(cfg.Fabric.Orgs) == 1 {
		for name := range cfg.Fabric.Orgs {
			cfg.Fabric.DefaultOrg = name
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseOrgs reads FABRIC_ORGS ("org1,org0") and the per-org keys
// <ORG>_MSP_ID, <ORG>_CCP, <ORG>_MSP_DIR, <ORG>_IDENTITY.
func parseOrgs(v *viper.Viper) map[string]OrgProfile {
	names := parseList(v.GetString("FABRIC_ORGS"))
	orgs := make(map[string]OrgProfile, len(names))
	for _, name := range names {
		prefix := strings.ToUpper(name) + "_"
		profile := OrgProfile{
			MSPID:             v.GetString(prefix + "MSP_ID"),
			ConnectionProfile: v.GetString(prefix + "CCP"),
			CredentialDir:     v.GetString(prefix + "MSP_DIR"),
			IdentityLabel:     v.GetString(prefix + "IDENTITY"),
		}
		if profile.IdentityLabel == "" {
			profile.IdentityLabel = fmt.Sprintf("Admin@%s.example.com", name)
		}
		orgs[name] = profile
	}
	return orgs
}

func validate(cfg *Config) error {
	if cfg.Auth.Disabled && cfg.Environment == "production" {
		return fmt.Errorf("AUTH_DISABLED is not permitted when APP_ENV=production")
	}
	if !cfg.Auth.Disabled && cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if len(cfg.Fabric.Orgs) == 0 {
		return fmt.Errorf("FABRIC_ORGS is required")
	}
	if cfg.Fabric.DefaultOrg == "" {
		return fmt.Errorf("FABRIC_DEFAULT_ORG is required")
	}
	if _, ok := cfg.Fabric.Orgs[cfg.Fabric.DefaultOrg]; !ok {
		return fmt.Errorf("FABRIC_DEFAULT_ORG %q is not a configured org", cfg.Fabric.DefaultOrg)
	}
	for name, org := range cfg.Fabric.Orgs {
		if org.MSPID == "" {
			return fmt.Errorf("%s_MSP_ID is required", strings.ToUpper(name))
		}
		if org.ConnectionProfile == "" {
			return fmt.Errorf("%s_CCP is required", strings.ToUpper(name))
		}
		if org.CredentialDir == "" {
			return fmt.Errorf("%s_MSP_DIR is required", strings.ToUpper(name))
		}
	}
	return nil
}

func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
