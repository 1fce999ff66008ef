package config

import (
	"fmt"
	"strings"
)

// Purpose selects which keys a command needs.
type Purpose int

const (
	// ForProvision covers creating the role and the cluster.
	ForProvision Purpose = iota
	// ForTeardown covers deleting the cluster and the role.
	ForTeardown
	// ForSchema covers connecting to the cluster to drop and create tables.
	ForSchema
	// ForETL covers connecting to the cluster and running COPY and INSERT.
	ForETL
)

// ValidationError lists every missing or malformed key.
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return ErrInvalidConfig.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// Validate checks the keys required for purpose. It never contacts AWS or
// the database.
func (c *Config) Validate(purpose Purpose) error {
	var v validator

	switch purpose {
	case ForProvision:
		c.validateAWS(&v)
		v.required("iam_role.iam_role_name", c.IAMRole.Name)
		v.required("iam_role.s3_policy_arn", c.IAMRole.PolicyARN)
		v.required("cluster.cluster_type", c.Cluster.Type)
		v.required("cluster.node_type", c.Cluster.NodeType)
		v.required("cluster.cluster_identifier", c.Cluster.Identifier)
		v.required("cluster.db_name", c.Cluster.DBName)
		v.required("cluster.db_username", c.Cluster.User)
		v.required("cluster.db_password", c.Cluster.Password)
		c.validatePort(&v)
		switch c.Cluster.Type {
		case "multi-node":
			if c.Cluster.NumNodes < 2 {
				v.invalid("cluster.num_nodes (multi-node needs at least 2, got %d)", c.Cluster.NumNodes)
			}
		case "single-node", "":
		default:
			v.invalid("cluster.cluster_type (%q is not single-node or multi-node)", c.Cluster.Type)
		}
	case ForTeardown:
		c.validateAWS(&v)
		v.required("iam_role.iam_role_name", c.IAMRole.Name)
		v.required("iam_role.s3_policy_arn", c.IAMRole.PolicyARN)
		v.required("cluster.cluster_identifier", c.Cluster.Identifier)
	case ForSchema, ForETL:
		v.required("cluster.host", c.Cluster.Host)
		v.required("cluster.db_name", c.Cluster.DBName)
		v.required("cluster.db_username", c.Cluster.User)
		v.required("cluster.db_password", c.Cluster.Password)
		c.validatePort(&v)
		if purpose == ForETL {
			v.required("iam_role.iam_role_arn", c.IAMRole.ARN)
			v.required("s3.log_data", c.S3.LogData)
			v.required("s3.log_jsonpath", c.S3.LogJSONPath)
			v.required("s3.song_data", c.S3.SongData)
		}
	default:
		return fmt.Errorf("unknown config purpose %d", purpose)
	}

	return v.err()
}

func (c *Config) validateAWS(v *validator) {
	v.required("aws_creds.region_name", c.AWS.Region)
	// Static credentials are all-or-nothing; neither means the default chain.
	if (c.AWS.AccessKeyID == "") != (c.AWS.SecretAccessKey == "") {
		if c.AWS.AccessKeyID == "" {
			v.required("aws_creds.iam_user_access_key_id", "")
		} else {
			v.required("aws_creds.iam_user_secret", "")
		}
	}
}

func (c *Config) validatePort(v *validator) {
	if c.Cluster.Port < 1 || c.Cluster.Port > 65535 {
		v.invalid("cluster.port (%d is out of range)", c.Cluster.Port)
	}
}

type validator struct {
	missingKeys []string
	invalidKeys []string
}

func (v *validator) required(key, value string) {
	if strings.TrimSpace(value) == "" {
		v.missingKeys = append(v.missingKeys, key)
	}
}

func (v *validator) invalid(format string, args ...any) {
	v.invalidKeys = append(v.invalidKeys, fmt.Sprintf(format, args...))
}

func (v *validator) err() error {
	if len(v.missingKeys) == 0 && len(v.invalidKeys) == 0 {
		return nil
	}
	return &ValidationError{Missing: v.missingKeys, Invalid: v.invalidKeys}
}
