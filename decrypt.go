package newsletter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shaharia-lab/newsletter/binary"
	"github.com/shaharia-lab/newsletter/observability"
)

var (
	// ErrNoDecrypter is returned when decryption is required but no Decrypter was configured.
	ErrNoDecrypter = errors.New("newsletter: no decrypter configured")
	// ErrNoIdentity is returned when the own identity is not known yet.
	ErrNoIdentity = errors.New("newsletter: own identity is not available")
)

// SessionRepository is the signal session store handed to the Decrypter.
// This package passes it through untouched.
type SessionRepository interface{}

// Identity is the logged in account.
type Identity struct {
	ID string
	// LinkedID is the secondary (lid) identity, empty when unknown.
	LinkedID string
}

// IdentityProvider returns the current own identity.
type IdentityProvider interface {
	Me() (Identity, error)
}

// StaticIdentity is an IdentityProvider returning a fixed identity.
type StaticIdentity Identity

func (s StaticIdentity) Me() (Identity, error) {
	if s.ID == "" {
		return Identity{}, ErrNoIdentity
	}
	return Identity(s), nil
}

// DecryptedMessage is what a Decrypter returns for one item. FullMessage
// must not be used before Decrypt has completed.
type DecryptedMessage struct {
	FullMessage any
	// Decrypt commits the side effects of decryption (session ratchet
	// advancement and the like). It must run exactly once.
	Decrypt func(ctx context.Context) error

	once sync.Once
	err  error
}

// Finalize runs Decrypt at most once and returns the finalized payload.
// The context handed to Decrypt is detached from ctx cancellation so a
// started finalize always runs to completion.
func (m *DecryptedMessage) Finalize(ctx context.Context) (any, error) {
	m.once.Do(func() {
		if m.Decrypt != nil {
			m.err = m.Decrypt(context.WithoutCancel(ctx))
		}
	})
	if m.err != nil {
		return nil, m.err
	}
	return m.FullMessage, nil
}

// Decrypter decrypts an encrypted message node for the given own identities.
type Decrypter interface {
	DecryptMessageNode(ctx context.Context, node *binary.Node, ownID, ownLinkedID string, sessions SessionRepository, logger observability.Logger) (*DecryptedMessage, error)
}

// DecryptError attributes a decrypt failure to the item it happened on.
// It unwraps to the Decrypter's own error.
type DecryptError struct {
	From     string
	ServerID string
	Err      error
}

func (e *DecryptError) Error() string {
	return fmt.Sprintf("newsletter: decrypt message %s from %s: %v", e.ServerID, e.From, e.Err)
}

func (e *DecryptError) Unwrap() error {
	return e.Err
}

// decryptItem runs the Decrypter for item and finalizes the result.
func (c *Client) decryptItem(ctx context.Context, item *binary.Node) (any, error) {
	if c.decrypter == nil {
		return nil, ErrNoDecrypter
	}
	me, err := c.identity.Me()
	if err != nil {
		return nil, err
	}

	decrypted, err := c.decrypter.DecryptMessageNode(ctx, item, me.ID, me.LinkedID, c.sessions, c.logger)
	if err != nil {
		return nil, err
	}
	if decrypted == nil {
		return nil, errors.New("decrypter returned no message")
	}
	return decrypted.Finalize(ctx)
}
