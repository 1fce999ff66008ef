package provision

import (
	"fmt"
	"strings"
)

// FormatCluster returns the cluster's key properties, one per line, with the
// values aligned.
func FormatCluster(c *Cluster) string {
	if c == nil {
		return "No cluster\n"
	}

	endpoint := c.Endpoint.Host
	if endpoint != "" && c.Endpoint.Port != 0 {
		endpoint = fmt.Sprintf("%s:%d", c.Endpoint.Host, c.Endpoint.Port)
	}

	props := [][2]string{
		{"ClusterIdentifier", c.Identifier},
		{"NodeType", c.NodeType},
		{"ClusterStatus", c.Status},
		{"MasterUsername", c.Endpoint.User},
		{"DBName", c.Endpoint.DBName},
		{"Endpoint", endpoint},
		{"NumberOfNodes", fmt.Sprintf("%d", c.NumberOfNodes)},
		{"VpcId", c.VPCID},
		{"IamRoles", strings.Join(c.RoleARNs, ", ")},
	}

	width := 0
	for _, p := range props {
		width = max(width, len(p[0]))
	}

	var sb strings.Builder
	for _, p := range props {
		value := p[1]
		if value == "" {
			value = "-"
		}
		sb.WriteString(fmt.Sprintf("%-*s  %s\n", width, p[0], value))
	}
	return sb.String()
}
