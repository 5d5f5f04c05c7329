package lakeconfig

import (
	"lakefill/internal/platform/config"
)

// EnvProvider reads the same settings from LAKE_* environment variables
// Handy for containerized runs where an INI file is not mounted
type EnvProvider struct {
	cfg config.Conf
}

// NewEnvProvider builds a provider over the LAKE_ prefix view of cfg
func NewEnvProvider(cfg config.Conf) *EnvProvider {
	return &EnvProvider{cfg: cfg.Prefix("LAKE_")}
}

// Config assembles and validates the settings from the environment
func (p *EnvProvider) Config() (Config, error) {
	c := Config{
		AWS: Credentials{
			AccessKeyID:     p.cfg.MayString("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: p.cfg.MayString("S3_SECRET_ACCESS_KEY", ""),
			Region:          p.cfg.MayString("S3_REGION_NAME", ""),
			EndpointURL:     p.cfg.MayString("S3_ENDPOINT_URL", ""),
		},
		Lake: Buckets{
			Bronze: p.cfg.MayString("BRONZE_BUCKET", ""),
			Silver: p.cfg.MayString("SILVER_BUCKET", ""),
			Gold:   p.cfg.MayString("GOLD_BUCKET", ""),
		},
	}
	if err := validate(c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Static is a Provider over a fixed, already built Config
// Tests and callers with out of band settings use it as the override hook
type Static struct {
	C Config
}

// Config returns the fixed value after the same validation as the real providers
func (s Static) Config() (Config, error) {
	if err := validate(s.C); err != nil {
		return Config{}, err
	}
	return s.C, nil
}

var (
	_ Provider = (*FileProvider)(nil)
	_ Provider = (*EnvProvider)(nil)
	_ Provider = Static{}
)
