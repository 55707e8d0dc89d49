package builder

import (
	"encoding/hex"
	"strconv"
	"strings"

	"tx-composer/modules/tree"

	"github.com/moznion/go-optional"
)

// upper bound for a sequence length typed by hand
const maxSequence = 1024

func (b *Builder) commit(n *tree.Node) {
	text := string(b.buffer)

	switch c := n.Content.(type) {
	case *tree.FixedBytes:
		// the declared length stays, a mismatch is reported when encoding
		c.Bytes = []byte(text)
	case *tree.VariableBytes:
		c.Bytes = []byte(text)
	case *tree.Primitive:
		if err := c.Set(text); err != nil {
			b.logger.Debug("input rejected", "err", err)
			return
		}
	case *tree.Sequence:
		size, err := strconv.Atoi(text)
		if err != nil || size < 0 || size > maxSequence {
			b.logger.Debug("invalid sequence length", "input", text)
			return
		}
		if err := b.constructor.Resize(c, size); err != nil {
			b.logger.Warn("failed to resize sequence", "err", err)
			return
		}
	case *tree.Account:
		if !b.commitAccount(c) {
			return
		}
	case *tree.Hash:
		if !b.commitHash(c, text) {
			return
		}
	case *tree.Signature:
		b.commitSignature(c)
		return
	case *tree.Variant:
		if !b.commitVariant(n, c) {
			return
		}
	default:
		b.logger.Debug("nothing to commit", "cursor", b.cursor)
		return
	}

	b.invalidate()
}

func (b *Builder) commitAccount(acc *tree.Account) bool {
	if b.selector.IsNone() {
		return false
	}
	i := b.selector.Unwrap().Index()
	account, err := b.identities.Resolve(i)
	if err != nil {
		b.logger.Error("selected identity does not resolve", "index", i, "err", err)
		return false
	}
	acc.Value = optional.Some(account)
	return true
}

// commitHash only edits hashes without a chain role, those are kept in
// sync by autofill.
func (b *Builder) commitHash(h *tree.Hash, text string) bool {
	if h.Role != tree.HashOther {
		b.logger.Debug("hash is filled from the chain", "role", h.Role.String())
		return false
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(text, "0x"))
	if err != nil || len(raw) != len(h.Value) {
		b.logger.Debug("invalid hash", "input", text)
		return false
	}
	copy(h.Value[:], raw)
	return true
}

func (b *Builder) commitSignature(sig *tree.Signature) {
	author := b.Author()
	if author.IsNone() {
		b.logger.Warn("select an author before signing")
		return
	}
	// a failed attempt leaves the leaf empty
	sig.Value = optional.None[[]byte]()

	payload, err := b.SignablePayload()
	if err != nil {
		b.logger.Warn("transaction is not ready for signing", "err", err)
		return
	}

	signed := b.identities.Sign(author.Unwrap(), payload)
	if signed.IsNone() {
		b.logger.Warn("author can not sign")
		return
	}
	s := signed.Unwrap()
	if s.Scheme != sig.Scheme {
		b.logger.Warn("author signs with another scheme", "author", s.Scheme.String(), "expected", sig.Scheme.String())
		return
	}
	sig.Value = optional.Some(s.Bytes)
	b.logger.Info("transaction signed", "scheme", s.Scheme.String(), "payload", len(payload))
}

// commitVariant rebuilds the payload from scratch for the selected
// alternative, even when it is the current one.
func (b *Builder) commitVariant(n *tree.Node, v *tree.Variant) bool {
	if b.selector.IsNone() {
		return false
	}
	i := b.selector.Unwrap().Index()
	fields, err := b.constructor.Alternative(n.Type, i, v.Hint)
	if err != nil {
		b.logger.Warn("failed to construct alternative", "name", v.Available[i].Name, "err", err)
		return false
	}
	v.Selected, v.Candidate = i, i
	v.Fields = fields
	return true
}
