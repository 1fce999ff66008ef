package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/redshift"
	redshifttypes "github.com/aws/aws-sdk-go-v2/service/redshift/types"
)

// Waiter defaults.
const (
	DefaultInterval    = 60 * time.Second
	DefaultMaxAttempts = 60
)

// Waiter errors.
var (
	ErrClusterFailed = errors.New("cluster entered a failed state")
	ErrWaitTimeout   = errors.New("timed out waiting for cluster")
)

// State is the waiter's view of a cluster.
type State int

const (
	StateCreating State = iota
	StateAvailable
	StateFailed
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateCreating:
		return "creating"
	case StateAvailable:
		return "available"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed out"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Classify maps a Redshift cluster status onto a waiter state. Unknown
// statuses keep the waiter polling.
func Classify(status string) State {
	switch status = strings.ToLower(status); {
	case status == "available":
		return StateAvailable
	case status == "failed", status == "deleting", status == "storage-full",
		strings.HasPrefix(status, "incompatible-"):
		return StateFailed
	default:
		return StateCreating
	}
}

// Waiter polls DescribeClusters until a cluster is available.
type Waiter struct {
	client      RedshiftAPI
	Interval    time.Duration
	MaxAttempts int
	// OnPoll, when set, is called after every describe with the attempt
	// number and the observed status.
	OnPoll func(attempt int, status string)

	sleep func(ctx context.Context, d time.Duration) error
}

// NewWaiter creates a waiter with the default interval and attempt limit.
func NewWaiter(client RedshiftAPI) *Waiter {
	return &Waiter{
		client:      client,
		Interval:    DefaultInterval,
		MaxAttempts: DefaultMaxAttempts,
		sleep:       sleepContext,
	}
}

// Wait blocks until the cluster is available and returns its description
// with the state the wait ended in. It returns ErrClusterFailed with
// StateFailed for terminal statuses, ErrWaitTimeout with StateTimedOut after
// MaxAttempts polls, or the context's error with StateCreating when ctx is
// done.
func (w *Waiter) Wait(ctx context.Context, identifier string) (*redshifttypes.Cluster, State, error) {
	attempts := w.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		cluster, status, err := w.describe(ctx, identifier)
		if err != nil {
			return nil, StateCreating, err
		}
		if w.OnPoll != nil {
			w.OnPoll(attempt, status)
		}

		switch state := Classify(status); state {
		case StateAvailable:
			return cluster, state, nil
		case StateFailed:
			return nil, state, fmt.Errorf("%w: status %s", ErrClusterFailed, status)
		}

		if attempt == attempts {
			break
		}
		if err := w.sleep(ctx, w.Interval); err != nil {
			return nil, StateCreating, err
		}
	}
	return nil, StateTimedOut, fmt.Errorf("%w after %d attempts", ErrWaitTimeout, attempts)
}

// describe returns the cluster and its status. A cluster that is not yet
// visible reports an empty status so the waiter keeps polling.
func (w *Waiter) describe(ctx context.Context, identifier string) (*redshifttypes.Cluster, string, error) {
	out, err := w.client.DescribeClusters(ctx, &redshift.DescribeClustersInput{
		ClusterIdentifier: aws.String(identifier),
	})
	var notFound *redshifttypes.ClusterNotFoundFault
	if errors.As(err, &notFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("describing cluster: %w", err)
	}
	if len(out.Clusters) == 0 {
		return nil, "", nil
	}
	cluster := out.Clusters[0]
	return &cluster, aws.ToString(cluster.ClusterStatus), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
