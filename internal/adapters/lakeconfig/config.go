package lakeconfig

import (
	"reflect"
	"sync"

	"github.com/go-playground/validator/v10"

	perr "lakefill/internal/platform/errors"
)

// Config is the loaded settings bundle the ingestion side reads
// Treated as immutable once a provider hands it out
type Config struct {
	AWS  Credentials `ini:"aws"`
	Lake Buckets     `ini:"datalake"`
}

// Credentials is the [aws] section
type Credentials struct {
	AccessKeyID     string `ini:"s3_access_key_id" validate:"required"`
	SecretAccessKey string `ini:"s3_secret_access_key" validate:"required"`
	Region          string `ini:"s3_region_name" validate:"required"`
	EndpointURL     string `ini:"s3_endpoint_url"` // optional, non AWS backends
}

// Buckets is the [datalake] section
// Silver and gold belong to downstream stages and stay optional here
type Buckets struct {
	Bronze string `ini:"bronze_bucket" validate:"required"`
	Silver string `ini:"silver_bucket"`
	Gold   string `ini:"gold_bucket"`
}

// Provider supplies a loaded Config
// The orchestrator accepts any implementation of this single method
type Provider interface {
	Config() (Config, error)
}

var (
	vOnce sync.Once
	vIns  *validator.Validate
)

// vget returns the package validator, keyed to ini tag names
// so failures point at the actual file keys
func vget() *validator.Validate {
	vOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("ini")
			if tag == "" || tag == "-" {
				return fld.Name
			}
			return tag
		})
		vIns = v
	})
	return vIns
}

// validate checks required keys and maps the first failure to a config error
func validate(c Config) error {
	err := vget().Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return perr.Wrap(err, perr.ErrorCodeConfig, "lakeconfig: validate")
	}
	fe := verrs[0]
	if fe.Tag() == "required" {
		return perr.WithField(
			perr.Configf("lakeconfig: required key %s is missing", fe.Field()),
			fe.Field(),
		)
	}
	return perr.WithField(
		perr.Configf("lakeconfig: key %s failed %q", fe.Field(), fe.Tag()),
		fe.Field(),
	)
}
