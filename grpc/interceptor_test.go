package grpc

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/prepdeck/authkit"
)

// staticSource returns a fixed snapshot, standing in for a SessionManager.
type staticSource struct {
	snap authkit.SessionSnapshot
}

func (s *staticSource) Session() authkit.SessionSnapshot { return s.snap }

func TestUnaryClientInterceptor(t *testing.T) {
	source := &staticSource{snap: authkit.SessionSnapshot{
		Identity: &authkit.Identity{ID: "user-1"},
	}}
	interceptor := UnaryClientInterceptor(source)

	var gotUserID string
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		if vals := md.Get(DefaultMetadataKeyUserID); len(vals) > 0 {
			gotUserID = vals[0]
		}
		return nil
	}

	if err := interceptor(context.Background(), "/prepdeck.v1.Decks/List", nil, nil, nil, invoker); err != nil {
		t.Fatalf("interceptor error = %v", err)
	}
	if gotUserID != "user-1" {
		t.Errorf("user id metadata = %q, want user-1", gotUserID)
	}
}

func TestUnaryClientInterceptor_TracksSessionChanges(t *testing.T) {
	source := &staticSource{}
	interceptor := UnaryClientInterceptor(source)

	seen := []string{}
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		if vals := md.Get(DefaultMetadataKeyUserID); len(vals) > 0 {
			seen = append(seen, vals[0])
		} else {
			seen = append(seen, "")
		}
		return nil
	}

	// anonymous call, then a signed-in one over the same interceptor
	interceptor(context.Background(), "/m", nil, nil, nil, invoker)
	source.snap = authkit.SessionSnapshot{Identity: &authkit.Identity{ID: "user-2"}}
	interceptor(context.Background(), "/m", nil, nil, nil, invoker)

	if len(seen) != 2 || seen[0] != "" || seen[1] != "user-2" {
		t.Errorf("seen = %v, want [ user-2] reflecting the sign-in", seen)
	}
}

func TestStreamClientInterceptor(t *testing.T) {
	source := &staticSource{snap: authkit.SessionSnapshot{
		Identity: &authkit.Identity{ID: "user-3"},
	}}
	interceptor := StreamClientInterceptor(source)

	var gotUserID string
	streamer := func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		md, _ := metadata.FromOutgoingContext(ctx)
		if vals := md.Get(DefaultMetadataKeyUserID); len(vals) > 0 {
			gotUserID = vals[0]
		}
		return nil, nil
	}

	if _, err := interceptor(context.Background(), nil, nil, "/prepdeck.v1.Progress/Stream", streamer); err != nil {
		t.Fatalf("interceptor error = %v", err)
	}
	if gotUserID != "user-3" {
		t.Errorf("user id metadata = %q, want user-3", gotUserID)
	}
}
