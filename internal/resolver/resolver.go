package resolver

import (
	"context"

	"mychangex/internal/domain" // Models and error kinds
	"mychangex/internal/phone"  // Normalization and payload parsing
)

// Sessions is the session accessor the resolver needs for the current user.
type Sessions interface {
	Get(ctx context.Context, accountID uint) (*domain.Session, error)
}

// AccountLookup finds an account by its normalized phone.
type AccountLookup interface {
	AccountByPhone(ctx context.Context, normalized string) (*domain.Account, error)
}

// Resolver turns user-supplied input, typed or scanned, into a verified
// recipient account. It is a pure lookup: no ledger state is touched.
type Resolver struct {
	sessions Sessions
	accounts AccountLookup
}

// New creates a resolver over the given session and account stores.
func New(sessions Sessions, accounts AccountLookup) *Resolver {
	return &Resolver{sessions: sessions, accounts: accounts}
}

// Resolve extracts a phone from the input, normalizes it, rejects
// self-transfer and looks the recipient up. scanned marks QR/barcode input:
// junk from a scanner fails with ErrInvalidPayload, junk typed by the user
// fails with ErrInvalidPhone so the UI can reprompt the right field.
func (r *Resolver) Resolve(ctx context.Context, input string, currentUserID uint, scanned bool) (*domain.Account, error) {
	// A valid session is a hard precondition
	sess, err := r.sessions.Get(ctx, currentUserID)
	if err != nil {
		return nil, err
	}
	raw := input
	// Scanned input is classified once into a tagged variant
	if scanned {
		p := phone.ParsePayload(input)
		if p.Kind == phone.Unrecognized {
			return nil, domain.ErrInvalidPayload
		}
		raw = p.Phone
	}
	normalized, err := phone.Normalize(raw)
	if err != nil {
		return nil, err
	}
	// A sender's own phone is already normalized at signup
	if normalized == sess.Phone {
		return nil, domain.ErrSelfTransfer
	}
	acct, err := r.accounts.AccountByPhone(ctx, normalized)
	if err != nil {
		return nil, err
	}
	return acct, nil
}
