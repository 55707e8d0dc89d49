package keyring

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tx-composer/lib/ss58"
	"tx-composer/lib/utils"

	"github.com/moznion/go-optional"
)

var (
	ErrUnknownIdentity = errors.New("unknown identity")
	ErrInvalidPublic   = errors.New("invalid public key")
)

// Entry describes one identity of the address book. Either Path names a
// derivation from the development phrase, or Public holds a hex account
// id that can be selected but not used for signing.
type Entry struct {
	Scheme Scheme
	Path   string
	Public string
}

// DefaultEntries is the built in address book.
func DefaultEntries() []Entry {
	return []Entry{
		{Scheme: Sr25519, Path: ""},
		{Scheme: Sr25519, Public: "be5ddb1579b72e84524fc29e78609e3caf42e85aa118ebfe0b0ad404b5bdd25f"},
		{Scheme: Sr25519, Path: "//Alice"},
		{Scheme: Sr25519, Public: "fe65717dad0447d715f660a0a58411de509b42e6efb8375f562f58a554d5860e"},
		{Scheme: Sr25519, Path: "//Bob"},
		{Scheme: Sr25519, Path: "//Charlie"},
		{Scheme: Sr25519, Public: "306721211d5404bd9da88e0204360a1a9ab8b87c66c1bc2fcdd37f3c2222cc20"},
		{Scheme: Sr25519, Path: "//Fred"},
		{Scheme: Ed25519, Path: "//Alice"},
		{Scheme: Ecdsa, Path: "//Alice"},
	}
}

type Identity struct {
	Scheme  Scheme
	Account [32]byte
	// derivation path, empty for the root key and public only entries
	Path   string
	signer signer
}

func (i Identity) CanSign() bool {
	return i.signer != nil
}

type Keyring struct {
	logger     *slog.Logger
	ss58Prefix uint16
	identities []Identity
}

func New(logger *slog.Logger, ss58Prefix uint16, entries []Entry) (*Keyring, error) {
	k := &Keyring{
		logger:     logger.With("sub-service", "keyring"),
		ss58Prefix: ss58Prefix,
		identities: make([]Identity, 0, len(entries)),
	}

	for _, e := range entries {
		id, err := newIdentity(e)
		if err != nil {
			return nil, err
		}
		k.logger.Debug("loaded identity", "scheme", id.Scheme, "path", id.Path, "can-sign", id.CanSign())
		k.identities = append(k.identities, id)
	}

	return k, nil
}

func newIdentity(e Entry) (Identity, error) {
	if e.Public != "" {
		b, err := hex.DecodeString(strings.TrimPrefix(e.Public, "0x"))
		if err != nil || len(b) != 32 {
			return Identity{}, fmt.Errorf("%w: %q", ErrInvalidPublic, e.Public)
		}
		id := Identity{Scheme: e.Scheme}
		copy(id.Account[:], b)
		return id, nil
	}

	s, err := newSigner(e.Scheme, e.Path)
	if err != nil {
		return Identity{}, fmt.Errorf("identity %s %q: %w", e.Scheme, e.Path, err)
	}
	return Identity{
		Scheme:  s.scheme(),
		Account: s.account(),
		Path:    e.Path,
		signer:  s,
	}, nil
}

func (k *Keyring) SS58Prefix() uint16 {
	return k.ss58Prefix
}

func (k *Keyring) SetSS58Prefix(prefix uint16) {
	k.ss58Prefix = prefix
}

func (k *Keyring) Len() int {
	return len(k.identities)
}

// Names are display labels, "[+]" marking identities that can sign.
func (k *Keyring) Names() []string {
	return utils.Map(k.identities, func(id Identity) string {
		mark := "[-]"
		if id.CanSign() {
			mark = "[+]"
		}
		addr, err := ss58.Encode(k.ss58Prefix, id.Account)
		if err != nil {
			addr = "0x" + hex.EncodeToString(id.Account[:])
		}
		return mark + " " + addr
	})
}

func (k *Keyring) Identity(i int) (Identity, error) {
	if i < 0 || i >= len(k.identities) {
		return Identity{}, fmt.Errorf("%w: index %d", ErrUnknownIdentity, i)
	}
	return k.identities[i], nil
}

// Resolve returns the account id of the identity at index i.
func (k *Keyring) Resolve(i int) ([32]byte, error) {
	id, err := k.Identity(i)
	if err != nil {
		return [32]byte{}, err
	}
	return id.Account, nil
}

func (k *Keyring) lookup(account [32]byte) (Identity, bool) {
	for _, id := range k.identities {
		if id.Account == account && id.CanSign() {
			return id, true
		}
	}
	return Identity{}, false
}

// Sign signs payload with the identity owning account. The result is
// absent when no identity with a secret owns the account.
func (k *Keyring) Sign(account [32]byte, payload []byte) optional.Option[Signature] {
	id, ok := k.lookup(account)
	if !ok {
		k.logger.Debug("no secret for account", "account", hex.EncodeToString(account[:]))
		return optional.None[Signature]()
	}
	b, err := id.signer.sign(payload)
	if err != nil {
		k.logger.Error("signing failed", "scheme", id.Scheme, "err", err)
		return optional.None[Signature]()
	}
	return optional.Some(Signature{Scheme: id.Scheme, Bytes: b})
}
