package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleConfig = `[AWS_CREDS]
REGION_NAME=us-west-2
IAM_USER_ACCESS_KEY_ID=AKIAEXAMPLE
IAM_USER_SECRET=wJalrXUtnFEMI

[IAM_ROLE]
IAM_ROLE_NAME=dwhRole
S3_POLICY_ARN=arn:aws:iam::aws:policy/AmazonS3ReadOnlyAccess
IAM_ROLE_ARN='arn:aws:iam::123456789012:role/dwhRole'

[CLUSTER]
CLUSTER_TYPE=multi-node
NODE_TYPE=dc2.large
NUM_NODES=4
CLUSTER_IDENTIFIER=dwhCluster
DB_NAME=dwh
DB_USERNAME=dwhuser
DB_PASSWORD=Passw0rd#1
PORT=5439
HOST=dwhcluster.abc123.us-west-2.redshift.amazonaws.com

[S3]
LOG_DATA='s3://udacity-dend/log_data'
LOG_JSONPATH='s3://udacity-dend/log_json_path.json'
SONG_DATA='s3://udacity-dend/song_data'
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dwh.cfg")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"region", cfg.AWS.Region, "us-west-2"},
		{"access key", cfg.AWS.AccessKeyID, "AKIAEXAMPLE"},
		{"role name", cfg.IAMRole.Name, "dwhRole"},
		{"quoted role arn", cfg.IAMRole.ARN, "arn:aws:iam::123456789012:role/dwhRole"},
		{"num nodes", cfg.Cluster.NumNodes, 4},
		{"port", cfg.Cluster.Port, 5439},
		{"password keeps #", cfg.Cluster.Password, "Passw0rd#1"},
		{"quoted log data", cfg.S3.LogData, "s3://udacity-dend/log_data"},
		{"quoted jsonpath", cfg.S3.LogJSONPath, "s3://udacity-dend/log_json_path.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	for _, purpose := range []Purpose{ForProvision, ForTeardown, ForSchema, ForETL} {
		if err := cfg.Validate(purpose); err != nil {
			t.Errorf("Validate(%d) error = %v", purpose, err)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "[CLUSTER]\nDB_NAME=dwh\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.AWS.Region != "us-west-2" || cfg.Cluster.Port != 5439 || cfg.Cluster.NumNodes != 4 {
		t.Errorf("defaults = region %q port %d nodes %d", cfg.AWS.Region, cfg.Cluster.Port, cfg.Cluster.NumNodes)
	}
	if cfg.Cluster.Type != "multi-node" || cfg.Cluster.NodeType != "dc2.large" {
		t.Errorf("cluster defaults = %s %s", cfg.Cluster.Type, cfg.Cluster.NodeType)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("DWH_CLUSTER_DB_PASSWORD", "fromEnv")
	t.Setenv("DWH_CLUSTER_HOST", "localhost")

	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Cluster.Password != "fromEnv" {
		t.Errorf("Password = %q, want fromEnv", cfg.Cluster.Password)
	}
	if cfg.Cluster.Host != "localhost" {
		t.Errorf("Host = %q, want localhost", cfg.Cluster.Host)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.cfg"))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Load() error = %v, want ErrInvalidConfig", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		purpose     Purpose
		wantMissing []string
		wantInvalid string
	}{
		{
			name:        "etl without role arn",
			mutate:      func(c *Config) { c.IAMRole.ARN = "" },
			purpose:     ForETL,
			wantMissing: []string{"iam_role.iam_role_arn"},
		},
		{
			name:    "schema does not need s3",
			mutate:  func(c *Config) { c.S3 = S3Config{}; c.IAMRole.ARN = "" },
			purpose: ForSchema,
		},
		{
			name: "schema lists every missing key",
			mutate: func(c *Config) {
				c.Cluster.Host = ""
				c.Cluster.Password = ""
			},
			purpose:     ForSchema,
			wantMissing: []string{"cluster.host", "cluster.db_password"},
		},
		{
			name:        "half static credentials",
			mutate:      func(c *Config) { c.AWS.SecretAccessKey = "" },
			purpose:     ForProvision,
			wantMissing: []string{"aws_creds.iam_user_secret"},
		},
		{
			name: "default credential chain",
			mutate: func(c *Config) {
				c.AWS.AccessKeyID = ""
				c.AWS.SecretAccessKey = ""
			},
			purpose: ForProvision,
		},
		{
			name:        "multi-node with one node",
			mutate:      func(c *Config) { c.Cluster.NumNodes = 1 },
			purpose:     ForProvision,
			wantInvalid: "cluster.num_nodes",
		},
		{
			name:        "unknown cluster type",
			mutate:      func(c *Config) { c.Cluster.Type = "serverless" },
			purpose:     ForProvision,
			wantInvalid: "cluster.cluster_type",
		},
		{
			name:        "port out of range",
			mutate:      func(c *Config) { c.Cluster.Port = 70000 },
			purpose:     ForETL,
			wantInvalid: "cluster.port",
		},
		{
			name:        "teardown needs identifier",
			mutate:      func(c *Config) { c.Cluster.Identifier = "" },
			purpose:     ForTeardown,
			wantMissing: []string{"cluster.cluster_identifier"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, sampleConfig))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.mutate(cfg)

			err = cfg.Validate(tt.purpose)
			if tt.wantMissing == nil && tt.wantInvalid == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Error("ValidationError does not wrap ErrInvalidConfig")
			}
			if strings.Join(verr.Missing, ",") != strings.Join(tt.wantMissing, ",") {
				t.Errorf("Missing = %v, want %v", verr.Missing, tt.wantMissing)
			}
			if tt.wantInvalid != "" && (len(verr.Invalid) != 1 || !strings.HasPrefix(verr.Invalid[0], tt.wantInvalid)) {
				t.Errorf("Invalid = %v, want %s", verr.Invalid, tt.wantInvalid)
			}
		})
	}
}

func TestConversions(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	conn := cfg.ConnConfig()
	if conn.Host != cfg.Cluster.Host || conn.Port != 5439 || conn.User != "dwhuser" {
		t.Errorf("ConnConfig() = %+v", conn)
	}

	src := cfg.CopySource()
	if err := src.Validate(); err != nil {
		t.Errorf("CopySource().Validate() error = %v", err)
	}
	if src.Region != "us-west-2" {
		t.Errorf("CopySource().Region = %q", src.Region)
	}

	s := cfg.ProvisionSettings()
	if s.NumNodes != 4 || s.Port != 5439 || s.ClusterIdentifier != "dwhCluster" || s.MasterPassword != "Passw0rd#1" {
		t.Errorf("ProvisionSettings() = %+v", s)
	}
}
