package builder

import (
	"strconv"

	"tx-composer/modules/tree"

	"github.com/moznion/go-optional"
)

// Autofill anchors the validity window at tip and writes the account
// nonce when it is known. Repeating a call with the same arguments
// changes nothing. A signed transaction is left alone so the signature
// stays valid.
func (b *Builder) Autofill(tip Tip, nonce optional.Option[uint64]) {
	b.lastTip = optional.Some(tip)
	if b.Signed() {
		return
	}

	b.anchor(tip)
	if nonce.IsNone() {
		return
	}
	value := strconv.FormatUint(nonce.Unwrap(), 10)
	b.tx.Walk(func(_ int, s tree.Slot) bool {
		if p, ok := s.Node.Content.(*tree.Primitive); ok && p.Specialty == tree.SpecialtyNonce {
			if err := p.Set(value); err != nil {
				b.logger.Warn("nonce does not fit", "nonce", value, "err", err)
			}
		}
		return true
	})
}

func (b *Builder) eras() []*tree.Era {
	var res []*tree.Era
	b.tx.Walk(func(_ int, s tree.Slot) bool {
		if era, ok := s.Node.Content.(*tree.Era); ok {
			res = append(res, era)
		}
		return true
	})
	return res
}

// anchor moves mortal windows to start at tip and points block hashes at
// it. Immortal transactions reference the genesis block instead.
func (b *Builder) anchor(tip Tip) {
	mortal := false
	for _, era := range b.eras() {
		era.Anchor(tip.Number)
		mortal = mortal || !era.Immortal
	}

	hash := b.tx.Genesis
	if mortal {
		hash = tip.Hash
	}
	b.tx.Walk(func(_ int, s tree.Slot) bool {
		if h, ok := s.Node.Content.(*tree.Hash); ok && h.Role == tree.HashBlock {
			h.Value = hash
		}
		return true
	})
}

// syncWindow re-anchors after an era toggle with the last known tip, or
// falls back to genesis until one arrives.
func (b *Builder) syncWindow() {
	if b.lastTip.IsSome() {
		b.anchor(b.lastTip.Unwrap())
		return
	}
	b.anchor(Tip{Hash: b.tx.Genesis})
}
