package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
)

// Route53Config names the hosted zone and TXT record this bootstrap mode
// uses as a shared peer directory: every live node's address is kept as
// one quoted string in the record's value list.
type Route53Config struct {
	HostedZoneID string
	RecordName   string
	TTL          int64
}

// route53Client is the subset of *route53.Client this package calls,
// narrowed so tests can substitute a fake.
type route53Client interface {
	ListResourceRecordSets(ctx context.Context, in *route53.ListResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error)
	ChangeResourceRecordSets(ctx context.Context, in *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
}

// Route53 discovers and advertises peers through a Route53 hosted zone's
// TXT record, for deployments that don't have a fixed bootstrap address
// (e.g. an auto-scaled node fleet).
type Route53 struct {
	mu     sync.Mutex
	client route53Client
	cfg    Route53Config
}

// NewRoute53 loads AWS credentials from the default provider chain
// (environment, shared config, instance role) and builds a Route53
// bootstrap against cfg.
func NewRoute53(ctx context.Context, cfg Route53Config) (*Route53, error) {
	if cfg.HostedZoneID == "" || cfg.RecordName == "" {
		return nil, fmt.Errorf("bootstrap: route53 requires HostedZoneID and RecordName")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
	}
	return &Route53{client: route53.NewFromConfig(awsCfg), cfg: cfg}, nil
}

func (r *Route53) peers(ctx context.Context) ([]string, error) {
	out, err := r.client.ListResourceRecordSets(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(r.cfg.HostedZoneID),
		StartRecordName: aws.String(r.cfg.RecordName),
		StartRecordType: types.RRTypeTxt,
		MaxItems:        aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: list record sets: %w", err)
	}
	for _, rs := range out.ResourceRecordSets {
		if rs.Name == nil || *rs.Name != ensureTrailingDot(r.cfg.RecordName) {
			continue
		}
		var peers []string
		for _, rr := range rs.ResourceRecords {
			if rr.Value == nil {
				continue
			}
			// Skip the empty placeholder upsert writes when no peers remain.
			if v := unquoteTXT(*rr.Value); v != "" {
				peers = append(peers, v)
			}
		}
		return peers, nil
	}
	return nil, nil
}

// Discover lists the peer addresses currently advertised in the TXT
// record.
func (r *Route53) Discover(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peers(ctx)
}

// Register upserts the TXT record to include self, preserving any other
// peers already present.
func (r *Route53) Register(ctx context.Context, self string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.peers(ctx)
	if err != nil {
		return err
	}
	for _, p := range existing {
		if p == self {
			return nil
		}
	}
	return r.upsert(ctx, append(existing, self))
}

// Deregister removes self from the TXT record, leaving any remaining
// peers intact.
func (r *Route53) Deregister(ctx context.Context, self string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.peers(ctx)
	if err != nil {
		return err
	}
	remaining := existing[:0]
	for _, p := range existing {
		if p != self {
			remaining = append(remaining, p)
		}
	}
	return r.upsert(ctx, remaining)
}

func (r *Route53) upsert(ctx context.Context, peers []string) error {
	records := make([]types.ResourceRecord, 0, len(peers))
	for _, p := range peers {
		records = append(records, types.ResourceRecord{Value: aws.String(quoteTXT(p))})
	}
	if len(records) == 0 {
		// Route53 rejects a record set with zero values; keep a single
		// empty placeholder so the record set itself still exists.
		records = append(records, types.ResourceRecord{Value: aws.String(quoteTXT(""))})
	}

	_, err := r.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(r.cfg.HostedZoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{
				{
					Action: types.ChangeActionUpsert,
					ResourceRecordSet: &types.ResourceRecordSet{
						Name:            aws.String(r.cfg.RecordName),
						Type:            types.RRTypeTxt,
						TTL:             aws.Int64(r.cfg.TTL),
						ResourceRecords: records,
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("bootstrap: change record sets: %w", err)
	}
	return nil
}

func quoteTXT(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func unquoteTXT(s string) string {
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return strings.ReplaceAll(s, `\"`, `"`)
}

func ensureTrailingDot(s string) string {
	if strings.HasSuffix(s, ".") {
		return s
	}
	return s + "."
}
