// Package provision creates and deletes the AWS resources the warehouse runs
// on: an IAM role Redshift assumes to read S3, and the Redshift cluster.
package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/redshift"
	redshifttypes "github.com/aws/aws-sdk-go-v2/service/redshift/types"
	"github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"
)

// Provisioning steps, reported in Error.Step.
const (
	StepCreateRole     = "create role"
	StepAttachPolicy   = "attach policy"
	StepGetRole        = "get role"
	StepCreateCluster  = "create cluster"
	StepWaitCluster    = "wait for cluster"
	StepOpenIngress    = "open ingress"
	StepDeleteCluster  = "delete cluster"
	StepDetachPolicy   = "detach policy"
	StepDeleteRole     = "delete role"
	StepDescribeGroups = "describe security groups"
)

// assumeRolePolicy lets Redshift assume the role.
const assumeRolePolicy = `{
    "Version": "2012-10-17",
    "Statement": [
        {
            "Effect": "Allow",
            "Principal": {"Service": "redshift.amazonaws.com"},
            "Action": "sts:AssumeRole"
        }
    ]
}`

// Error identifies the provisioning step and resource that failed.
type Error struct {
	Step     string
	Resource string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Step, e.Resource, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IAMAPI is the subset of the IAM client used here.
type IAMAPI interface {
	CreateRole(ctx context.Context, params *iam.CreateRoleInput, optFns ...func(*iam.Options)) (*iam.CreateRoleOutput, error)
	AttachRolePolicy(ctx context.Context, params *iam.AttachRolePolicyInput, optFns ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error)
	GetRole(ctx context.Context, params *iam.GetRoleInput, optFns ...func(*iam.Options)) (*iam.GetRoleOutput, error)
	DetachRolePolicy(ctx context.Context, params *iam.DetachRolePolicyInput, optFns ...func(*iam.Options)) (*iam.DetachRolePolicyOutput, error)
	DeleteRole(ctx context.Context, params *iam.DeleteRoleInput, optFns ...func(*iam.Options)) (*iam.DeleteRoleOutput, error)
}

// RedshiftAPI is the subset of the Redshift client used here.
type RedshiftAPI interface {
	CreateCluster(ctx context.Context, params *redshift.CreateClusterInput, optFns ...func(*redshift.Options)) (*redshift.CreateClusterOutput, error)
	DescribeClusters(ctx context.Context, params *redshift.DescribeClustersInput, optFns ...func(*redshift.Options)) (*redshift.DescribeClustersOutput, error)
	DeleteCluster(ctx context.Context, params *redshift.DeleteClusterInput, optFns ...func(*redshift.Options)) (*redshift.DeleteClusterOutput, error)
}

// EC2API is the subset of the EC2 client used here.
type EC2API interface {
	DescribeSecurityGroups(ctx context.Context, params *ec2.DescribeSecurityGroupsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error)
	AuthorizeSecurityGroupIngress(ctx context.Context, params *ec2.AuthorizeSecurityGroupIngressInput, optFns ...func(*ec2.Options)) (*ec2.AuthorizeSecurityGroupIngressOutput, error)
}

// Settings describes the role and cluster to provision.
type Settings struct {
	Region          string
	AccessKeyID     string // empty means the default credential chain
	SecretAccessKey string

	RoleName  string
	PolicyARN string

	ClusterType       string // "single-node" or "multi-node"
	NodeType          string
	NumNodes          int32
	ClusterIdentifier string
	DBName            string
	MasterUser        string
	MasterPassword    string
	Port              int32
}

// Endpoint is where clients connect to an available cluster.
type Endpoint struct {
	Host     string
	Port     int32
	DBName   string
	User     string
	Password string
}

// Cluster is the described state of the warehouse cluster.
type Cluster struct {
	Identifier    string
	Status        string
	NodeType      string
	NumberOfNodes int32
	Endpoint      Endpoint
	VPCID         string
	RoleARNs      []string
}

// Provisioner drives IAM, Redshift and EC2 calls in order, stopping at the
// first failure.
type Provisioner struct {
	iam      IAMAPI
	redshift RedshiftAPI
	ec2      EC2API
	settings Settings
	logger   logrus.FieldLogger
	waiter   *Waiter
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithLogger sets the logger for progress messages.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(p *Provisioner) {
		p.logger = logger
	}
}

// WithWaiter replaces the default availability waiter.
func WithWaiter(w *Waiter) Option {
	return func(p *Provisioner) {
		p.waiter = w
	}
}

// New creates a provisioner over the given clients.
func New(iamClient IAMAPI, redshiftClient RedshiftAPI, ec2Client EC2API, settings Settings, opts ...Option) *Provisioner {
	p := &Provisioner{
		iam:      iamClient,
		redshift: redshiftClient,
		ec2:      ec2Client,
		settings: settings,
		logger:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.waiter == nil {
		p.waiter = NewWaiter(redshiftClient)
	}
	if p.waiter.OnPoll == nil {
		p.waiter.OnPoll = func(attempt int, status string) {
			p.logger.WithFields(logrus.Fields{
				"cluster": p.settings.ClusterIdentifier,
				"attempt": attempt,
				"status":  status,
			}).Info("waiting for cluster")
		}
	}
	return p
}

// LoadAWSConfig resolves the SDK config for the settings' region. Static
// credentials are used when both keys are set.
func LoadAWSConfig(ctx context.Context, s Settings) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(s.Region)}
	if s.AccessKeyID != "" && s.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading aws config: %w", err)
	}
	return cfg, nil
}

// NewFromConfig creates a provisioner with real AWS clients.
func NewFromConfig(cfg aws.Config, settings Settings, opts ...Option) *Provisioner {
	return New(iam.NewFromConfig(cfg), redshift.NewFromConfig(cfg), ec2.NewFromConfig(cfg), settings, opts...)
}

// CreateRole creates the Redshift service role, attaches the S3 read policy
// and returns the role ARN. An existing role is reused.
func (p *Provisioner) CreateRole(ctx context.Context) (string, error) {
	name := p.settings.RoleName

	_, err := p.iam.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(name),
		Description:              aws.String("Allows Redshift clusters to call AWS services on your behalf."),
		AssumeRolePolicyDocument: aws.String(assumeRolePolicy),
	})
	var exists *iamtypes.EntityAlreadyExistsException
	switch {
	case err == nil:
		p.logger.WithField("role", name).Info("created IAM role")
	case errors.As(err, &exists):
		p.logger.WithField("role", name).Info("IAM role already exists")
	default:
		return "", &Error{Step: StepCreateRole, Resource: name, Err: err}
	}

	if _, err := p.iam.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		RoleName:  aws.String(name),
		PolicyArn: aws.String(p.settings.PolicyARN),
	}); err != nil {
		return "", &Error{Step: StepAttachPolicy, Resource: name, Err: err}
	}

	out, err := p.iam.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(name)})
	if err != nil {
		return "", &Error{Step: StepGetRole, Resource: name, Err: err}
	}
	if out.Role == nil || aws.ToString(out.Role.Arn) == "" {
		return "", &Error{Step: StepGetRole, Resource: name, Err: errors.New("role has no ARN")}
	}

	arn := aws.ToString(out.Role.Arn)
	p.logger.WithFields(logrus.Fields{"role": name, "arn": arn}).Info("attached S3 read policy")
	return arn, nil
}

// CreateCluster launches the cluster with roleARN attached, waits until it is
// available and opens TCP ingress to its port on the VPC's default security
// group. An existing cluster with the same identifier is reused.
func (p *Provisioner) CreateCluster(ctx context.Context, roleARN string) (*Cluster, error) {
	s := p.settings
	input := &redshift.CreateClusterInput{
		ClusterType:        aws.String(s.ClusterType),
		NodeType:           aws.String(s.NodeType),
		DBName:             aws.String(s.DBName),
		ClusterIdentifier:  aws.String(s.ClusterIdentifier),
		MasterUsername:     aws.String(s.MasterUser),
		MasterUserPassword: aws.String(s.MasterPassword),
		IamRoles:           []string{roleARN},
		Port:               aws.Int32(s.Port),
	}
	if s.ClusterType != "single-node" {
		input.NumberOfNodes = aws.Int32(s.NumNodes)
	}

	_, err := p.redshift.CreateCluster(ctx, input)
	var exists *redshifttypes.ClusterAlreadyExistsFault
	switch {
	case err == nil:
		p.logger.WithField("cluster", s.ClusterIdentifier).Info("creating Redshift cluster")
	case errors.As(err, &exists):
		p.logger.WithField("cluster", s.ClusterIdentifier).Info("Redshift cluster already exists")
	default:
		return nil, &Error{Step: StepCreateCluster, Resource: s.ClusterIdentifier, Err: err}
	}

	started := time.Now()
	raw, state, err := p.waiter.Wait(ctx, s.ClusterIdentifier)
	if err != nil {
		p.logger.WithFields(logrus.Fields{
			"cluster": s.ClusterIdentifier,
			"state":   state.String(),
		}).Error("stopped waiting for cluster")
		return nil, &Error{Step: StepWaitCluster, Resource: s.ClusterIdentifier, Err: err}
	}
	p.logger.WithFields(logrus.Fields{
		"cluster": s.ClusterIdentifier,
		"elapsed": time.Since(started).Round(time.Second).String(),
	}).Info("Redshift cluster available")

	cluster := p.toCluster(raw)
	if err := p.openIngress(ctx, cluster); err != nil {
		return nil, err
	}
	return cluster, nil
}

func (p *Provisioner) toCluster(raw *redshifttypes.Cluster) *Cluster {
	c := &Cluster{
		Identifier:    aws.ToString(raw.ClusterIdentifier),
		Status:        aws.ToString(raw.ClusterStatus),
		NodeType:      aws.ToString(raw.NodeType),
		NumberOfNodes: aws.ToInt32(raw.NumberOfNodes),
		VPCID:         aws.ToString(raw.VpcId),
		Endpoint: Endpoint{
			DBName:   aws.ToString(raw.DBName),
			User:     aws.ToString(raw.MasterUsername),
			Password: p.settings.MasterPassword,
		},
	}
	if raw.Endpoint != nil {
		c.Endpoint.Host = aws.ToString(raw.Endpoint.Address)
		c.Endpoint.Port = aws.ToInt32(raw.Endpoint.Port)
	}
	for _, role := range raw.IamRoles {
		c.RoleARNs = append(c.RoleARNs, aws.ToString(role.IamRoleArn))
	}
	return c
}

// openIngress allows TCP from anywhere to the cluster port. A rule that is
// already present counts as success.
func (p *Provisioner) openIngress(ctx context.Context, c *Cluster) error {
	out, err := p.ec2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("vpc-id"), Values: []string{c.VPCID}},
			{Name: aws.String("group-name"), Values: []string{"default"}},
		},
	})
	if err != nil {
		return &Error{Step: StepDescribeGroups, Resource: c.VPCID, Err: err}
	}
	if len(out.SecurityGroups) == 0 {
		return &Error{Step: StepDescribeGroups, Resource: c.VPCID, Err: errors.New("no default security group")}
	}

	groupID := aws.ToString(out.SecurityGroups[0].GroupId)
	port := c.Endpoint.Port
	if port == 0 {
		port = p.settings.Port
	}

	_, err = p.ec2.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
		GroupId:    aws.String(groupID),
		CidrIp:     aws.String("0.0.0.0/0"),
		IpProtocol: aws.String("tcp"),
		FromPort:   aws.Int32(port),
		ToPort:     aws.Int32(port),
	})
	if err != nil && !hasErrorCode(err, "InvalidPermission.Duplicate") {
		return &Error{Step: StepOpenIngress, Resource: groupID, Err: err}
	}

	p.logger.WithFields(logrus.Fields{"group": groupID, "port": port}).Info("opened cluster port")
	return nil
}

// DeleteCluster deletes the cluster without a final snapshot. A cluster that
// does not exist counts as deleted.
func (p *Provisioner) DeleteCluster(ctx context.Context) error {
	id := p.settings.ClusterIdentifier
	_, err := p.redshift.DeleteCluster(ctx, &redshift.DeleteClusterInput{
		ClusterIdentifier:        aws.String(id),
		SkipFinalClusterSnapshot: aws.Bool(true),
	})
	var notFound *redshifttypes.ClusterNotFoundFault
	switch {
	case err == nil:
		p.logger.WithField("cluster", id).Info("deleting Redshift cluster")
	case errors.As(err, &notFound):
		p.logger.WithField("cluster", id).Info("Redshift cluster not found")
	default:
		return &Error{Step: StepDeleteCluster, Resource: id, Err: err}
	}
	return nil
}

// DeleteRole detaches the S3 policy and deletes the role. A role that does
// not exist counts as deleted.
func (p *Provisioner) DeleteRole(ctx context.Context) error {
	name := p.settings.RoleName
	var notFound *iamtypes.NoSuchEntityException

	_, err := p.iam.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{
		RoleName:  aws.String(name),
		PolicyArn: aws.String(p.settings.PolicyARN),
	})
	if err != nil && !errors.As(err, &notFound) {
		return &Error{Step: StepDetachPolicy, Resource: name, Err: err}
	}

	_, err = p.iam.DeleteRole(ctx, &iam.DeleteRoleInput{RoleName: aws.String(name)})
	switch {
	case err == nil:
		p.logger.WithField("role", name).Info("deleted IAM role")
	case errors.As(err, &notFound):
		p.logger.WithField("role", name).Info("IAM role not found")
	default:
		return &Error{Step: StepDeleteRole, Resource: name, Err: err}
	}
	return nil
}

func hasErrorCode(err error, code string) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == code
}
