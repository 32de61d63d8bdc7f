package options

import (
	"errors"

	"github.com/spf13/pflag"
)

var _ IOptions = (*S3Options)(nil)

// S3Options configures the object store CSV exports can be uploaded to.
type S3Options struct {
	Endpoint        string `json:"endpoint" mapstructure:"endpoint"`
	AccessKeyID     string `json:"access-key-id" mapstructure:"access-key-id"`
	SecretAccessKey string `json:"secret-access-key" mapstructure:"secret-access-key"`
	UseSSL          bool   `json:"use-ssl" mapstructure:"use-ssl"`
	BucketName      string `json:"bucket-name" mapstructure:"bucket-name"`
	Region          string `json:"region" mapstructure:"region"`

	// KeyPrefix is prepended to every uploaded object name.
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`

	InsecureSkipVerify bool `json:"insecure-skip-verify" mapstructure:"insecure-skip-verify"`
}

func NewS3Options() *S3Options {
	return &S3Options{
		Endpoint:   "localhost:9000",
		BucketName: "fleet-exports",
		Region:     "us-east-1",
		KeyPrefix:  "exports/",
	}
}

func (o *S3Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Endpoint == "" {
		errs = append(errs, errors.New("s3.endpoint must not be empty"))
	}
	if o.BucketName == "" {
		errs = append(errs, errors.New("s3.bucket-name must not be empty"))
	}
	return errs
}

func (o *S3Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Endpoint, flagName(prefixes, "s3", "endpoint"), o.Endpoint, "S3 endpoint (e.g. s3.amazonaws.com or minio.local:9000).")
	fs.StringVar(&o.AccessKeyID, flagName(prefixes, "s3", "access-key-id"), o.AccessKeyID, "S3 access key ID.")
	fs.StringVar(&o.SecretAccessKey, flagName(prefixes, "s3", "secret-access-key"), o.SecretAccessKey, "S3 secret access key.")
	fs.BoolVar(&o.UseSSL, flagName(prefixes, "s3", "use-ssl"), o.UseSSL, "Use TLS for the S3 connection.")
	fs.StringVar(&o.BucketName, flagName(prefixes, "s3", "bucket-name"), o.BucketName, "Bucket receiving CSV exports.")
	fs.StringVar(&o.Region, flagName(prefixes, "s3", "region"), o.Region, "S3 region.")
	fs.StringVar(&o.KeyPrefix, flagName(prefixes, "s3", "key-prefix"), o.KeyPrefix, "Object key prefix for exports.")
	fs.BoolVar(&o.InsecureSkipVerify, flagName(prefixes, "s3", "insecure-skip-verify"), o.InsecureSkipVerify,
		"Skip TLS certificate verification for self-signed object stores.")
}
