// Package config loads the warehouse configuration (dwh.cfg) once per process.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ohjang121/project-three-dwh/internal/queries"
)

// EnvPrefix prefixes environment overrides, e.g. DWH_CLUSTER_DB_PASSWORD.
const EnvPrefix = "DWH"

// DefaultPath is the config file read when no path is given on the command line.
const DefaultPath = "dwh.cfg"

// ErrInvalidConfig is wrapped by every configuration error.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config mirrors the sections of dwh.cfg.
type Config struct {
	AWS     AWSConfig     `mapstructure:"aws_creds"`
	IAMRole IAMRoleConfig `mapstructure:"iam_role"`
	Cluster ClusterConfig `mapstructure:"cluster"`
	S3      S3Config      `mapstructure:"s3"`
}

// AWSConfig holds the region and the IAM user credentials used for provisioning.
// When both keys are empty the default AWS credential chain is used.
type AWSConfig struct {
	Region          string `mapstructure:"region_name"`
	AccessKeyID     string `mapstructure:"iam_user_access_key_id"`
	SecretAccessKey string `mapstructure:"iam_user_secret"`
}

// IAMRoleConfig describes the role Redshift assumes to read S3.
type IAMRoleConfig struct {
	Name      string `mapstructure:"iam_role_name"`
	PolicyARN string `mapstructure:"s3_policy_arn"`
	ARN       string `mapstructure:"iam_role_arn"` // filled in after provisioning
}

// ClusterConfig describes the Redshift cluster and its master credentials.
type ClusterConfig struct {
	Type       string `mapstructure:"cluster_type"`
	NodeType   string `mapstructure:"node_type"`
	NumNodes   int    `mapstructure:"num_nodes"`
	Identifier string `mapstructure:"cluster_identifier"`
	DBName     string `mapstructure:"db_name"`
	User       string `mapstructure:"db_username"`
	Password   string `mapstructure:"db_password"`
	Port       int    `mapstructure:"port"`
	Host       string `mapstructure:"host"` // filled in after provisioning
}

// S3Config locates the raw data.
type S3Config struct {
	LogData     string `mapstructure:"log_data"`
	LogJSONPath string `mapstructure:"log_jsonpath"`
	SongData    string `mapstructure:"song_data"`
}

var defaults = map[string]any{
	"aws_creds.region_name":            "us-west-2",
	"aws_creds.iam_user_access_key_id": "",
	"aws_creds.iam_user_secret":        "",
	"iam_role.iam_role_name":           "",
	"iam_role.s3_policy_arn":           "arn:aws:iam::aws:policy/AmazonS3ReadOnlyAccess",
	"iam_role.iam_role_arn":            "",
	"cluster.cluster_type":             "multi-node",
	"cluster.node_type":                "dc2.large",
	"cluster.num_nodes":                4,
	"cluster.cluster_identifier":       "",
	"cluster.db_name":                  "",
	"cluster.db_username":              "",
	"cluster.db_password":              "",
	"cluster.port":                     5439,
	"cluster.host":                     "",
	"s3.log_data":                      "",
	"s3.log_jsonpath":                  "",
	"s3.song_data":                     "",
}

// Load reads the config file at path, then applies DWH_* environment
// overrides. A .env file in the working directory is loaded first if present.
// An empty path reads configuration from the environment only.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	registry := viper.NewCodecRegistry()
	if err := registry.RegisterCodec("ini", iniCodec{}); err != nil {
		return nil, fmt.Errorf("registering ini codec: %w", err)
	}
	v := viper.NewWithOptions(viper.WithCodecRegistry(registry))

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("ini")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidConfig, path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrInvalidConfig, path, err)
	}
	cfg.normalize()
	return &cfg, nil
}

// normalize strips the quotes hand-edited config files often wrap values in.
func (c *Config) normalize() {
	for _, s := range []*string{
		&c.AWS.Region, &c.AWS.AccessKeyID, &c.AWS.SecretAccessKey,
		&c.IAMRole.Name, &c.IAMRole.PolicyARN, &c.IAMRole.ARN,
		&c.Cluster.Type, &c.Cluster.NodeType, &c.Cluster.Identifier,
		&c.Cluster.DBName, &c.Cluster.User, &c.Cluster.Password, &c.Cluster.Host,
		&c.S3.LogData, &c.S3.LogJSONPath, &c.S3.SongData,
	} {
		*s = queries.Unquote(*s)
	}
}
