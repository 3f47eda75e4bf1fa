// Package grpc attaches the authkit session to outgoing gRPC calls so the
// PrepDeck backend can tell which signed-in user a request belongs to, and
// provides the matching incoming-metadata helpers for services that need to
// read it back out.
package grpc

import (
	"context"

	"google.golang.org/grpc/metadata"

	"github.com/prepdeck/authkit"
)

// Default metadata keys for session context.
// These can be customized via Config if needed.
const (
	// DefaultMetadataKeyUserID is the default gRPC metadata key for the signed-in user ID
	DefaultMetadataKeyUserID = "x-user-id"

	// DefaultMetadataKeyUserEmail is the default gRPC metadata key for the signed-in user's email
	DefaultMetadataKeyUserEmail = "x-user-email"
)

// SessionSource yields the current session snapshot. SessionManager
// satisfies it.
type SessionSource interface {
	Session() authkit.SessionSnapshot
}

// Config holds the metadata key configuration for session context.
type Config struct {
	// MetadataKeyUserID is the gRPC metadata key for the signed-in user ID.
	// Defaults to "x-user-id".
	MetadataKeyUserID string

	// MetadataKeyUserEmail is the gRPC metadata key for the signed-in
	// user's email. Defaults to "x-user-email".
	MetadataKeyUserEmail string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MetadataKeyUserID:    DefaultMetadataKeyUserID,
		MetadataKeyUserEmail: DefaultMetadataKeyUserEmail,
	}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeyUserID == "" {
		c.MetadataKeyUserID = DefaultMetadataKeyUserID
	}
	if c.MetadataKeyUserEmail == "" {
		c.MetadataKeyUserEmail = DefaultMetadataKeyUserEmail
	}
}

// SessionToOutgoingContext adds the signed-in user to outgoing gRPC context
// metadata. An anonymous or still-resolving session adds nothing.
func SessionToOutgoingContext(ctx context.Context, snap authkit.SessionSnapshot) context.Context {
	return SessionToOutgoingContextWithConfig(ctx, snap, nil)
}

// SessionToOutgoingContextWithConfig adds the signed-in user using the specified config.
func SessionToOutgoingContextWithConfig(ctx context.Context, snap authkit.SessionSnapshot, config *Config) context.Context {
	if config == nil {
		config = DefaultConfig()
	}
	config.EnsureDefaults()

	if snap.Identity == nil {
		return ctx
	}
	ctx = metadata.AppendToOutgoingContext(ctx, config.MetadataKeyUserID, snap.Identity.ID)
	if snap.Identity.Email != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, config.MetadataKeyUserEmail, snap.Identity.Email)
	}
	return ctx
}

// UserIDFromContext extracts the signed-in user ID from incoming gRPC
// context metadata. Returns empty string if no user is attached.
func UserIDFromContext(ctx context.Context) string {
	return UserIDFromContextWithConfig(ctx, nil)
}

// UserIDFromContextWithConfig extracts the user ID using the specified config.
func UserIDFromContextWithConfig(ctx context.Context, config *Config) string {
	if config == nil {
		config = DefaultConfig()
	}
	config.EnsureDefaults()

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(config.MetadataKeyUserID); len(values) > 0 {
		return values[0]
	}
	return ""
}

// IsAuthenticated returns true if there is a signed-in user in the context.
func IsAuthenticated(ctx context.Context) bool {
	return UserIDFromContext(ctx) != ""
}
