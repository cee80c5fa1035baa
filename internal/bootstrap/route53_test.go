package bootstrap

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
)

type fakeRoute53Client struct {
	name  string
	peers []string
}

func (f *fakeRoute53Client) ListResourceRecordSets(ctx context.Context, in *route53.ListResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ListResourceRecordSetsOutput, error) {
	records := make([]types.ResourceRecord, 0, len(f.peers))
	for _, p := range f.peers {
		records = append(records, types.ResourceRecord{Value: aws.String(quoteTXT(p))})
	}
	return &route53.ListResourceRecordSetsOutput{
		ResourceRecordSets: []types.ResourceRecordSet{
			{
				Name:            aws.String(ensureTrailingDot(f.name)),
				Type:            types.RRTypeTxt,
				ResourceRecords: records,
			},
		},
	}, nil
}

func (f *fakeRoute53Client) ChangeResourceRecordSets(ctx context.Context, in *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error) {
	var peers []string
	for _, c := range in.ChangeBatch.Changes {
		for _, rr := range c.ResourceRecordSet.ResourceRecords {
			v := unquoteTXT(*rr.Value)
			if v != "" {
				peers = append(peers, v)
			}
		}
	}
	f.peers = peers
	return &route53.ChangeResourceRecordSetsOutput{}, nil
}

func newTestRoute53(peers ...string) *Route53 {
	return &Route53{
		client: &fakeRoute53Client{name: "_chord._peers.example.com", peers: peers},
		cfg:    Route53Config{HostedZoneID: "Z123", RecordName: "_chord._peers.example.com", TTL: 30},
	}
}

func TestRoute53DiscoverEmpty(t *testing.T) {
	r := newTestRoute53()
	peers, err := r.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(peers) != 0 {
		t.Fatalf("Discover() = %v, want empty", peers)
	}
}

func TestRoute53RegisterAddsSelf(t *testing.T) {
	r := newTestRoute53("n1:8080")
	if err := r.Register(context.Background(), "n2:8080"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	peers, err := r.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(peers) != 2 {
		t.Fatalf("Discover() = %v, want 2 peers", peers)
	}
}

func TestRoute53RegisterIdempotent(t *testing.T) {
	r := newTestRoute53("n1:8080")
	if err := r.Register(context.Background(), "n1:8080"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	peers, _ := r.Discover(context.Background())
	if len(peers) != 1 {
		t.Fatalf("Discover() = %v, want exactly 1 (no duplicate)", peers)
	}
}

func TestRoute53Deregister(t *testing.T) {
	r := newTestRoute53("n1:8080", "n2:8080")
	if err := r.Deregister(context.Background(), "n1:8080"); err != nil {
		t.Fatalf("Deregister: %v", err)
	}
	peers, _ := r.Discover(context.Background())
	if len(peers) != 1 || peers[0] != "n2:8080" {
		t.Fatalf("Discover() = %v, want [n2:8080]", peers)
	}
}
