package config

import (
	"github.com/ohjang121/project-three-dwh/internal/db"
	"github.com/ohjang121/project-three-dwh/internal/provision"
	"github.com/ohjang121/project-three-dwh/internal/queries"
)

// ConnConfig returns the warehouse connection settings.
func (c *Config) ConnConfig() db.ConnConfig {
	return db.ConnConfig{
		Host:     c.Cluster.Host,
		Port:     c.Cluster.Port,
		DBName:   c.Cluster.DBName,
		User:     c.Cluster.User,
		Password: c.Cluster.Password,
	}
}

// CopySource returns the S3 locations and role used by the bulk load.
func (c *Config) CopySource() queries.CopySource {
	return queries.CopySource{
		RoleARN:     c.IAMRole.ARN,
		Region:      c.AWS.Region,
		LogData:     c.S3.LogData,
		LogJSONPath: c.S3.LogJSONPath,
		SongData:    c.S3.SongData,
	}
}

// ProvisionSettings returns the role and cluster to create or delete.
func (c *Config) ProvisionSettings() provision.Settings {
	return provision.Settings{
		Region:            c.AWS.Region,
		AccessKeyID:       c.AWS.AccessKeyID,
		SecretAccessKey:   c.AWS.SecretAccessKey,
		RoleName:          c.IAMRole.Name,
		PolicyARN:         c.IAMRole.PolicyARN,
		ClusterType:       c.Cluster.Type,
		NodeType:          c.Cluster.NodeType,
		NumNodes:          int32(c.Cluster.NumNodes),
		ClusterIdentifier: c.Cluster.Identifier,
		DBName:            c.Cluster.DBName,
		MasterUser:        c.Cluster.User,
		MasterPassword:    c.Cluster.Password,
		Port:              int32(c.Cluster.Port),
	}
}
