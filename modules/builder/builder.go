// Package builder is the edit controller of a transaction: it owns the
// value trees, the cursor and the edit state, and applies the commit
// rules of each node kind.
package builder

import (
	"fmt"
	"log/slog"

	"tx-composer/lib/utils"
	"tx-composer/modules/keyring"
	"tx-composer/modules/schema"
	"tx-composer/modules/tree"

	"github.com/moznion/go-optional"
)

// Identities is the address book the builder signs with.
type Identities interface {
	Names() []string
	Resolve(i int) ([32]byte, error)
	Sign(account [32]byte, payload []byte) optional.Option[keyring.Signature]
}

// Constructor builds default values from the type catalogue.
type Constructor interface {
	NewTransaction() (*tree.Transaction, error)
	Alternative(id tree.TypeID, i int, hint tree.Hint) ([]*tree.Node, error)
	Resize(seq *tree.Sequence, n int) error
}

type Mode uint8

const (
	Browse Mode = iota
	Edit
)

func (m Mode) String() string {
	if m == Edit {
		return "edit"
	}
	return "browse"
}

// Tip is the latest block known to the chain watcher.
type Tip struct {
	Number uint64
	Hash   [32]byte
}

// Detail is the content of the detail panel for the slot at the cursor.
type Detail struct {
	Description string
	Content     string
	Buffer      optional.Option[string]
	Selection   optional.Option[*Selector]
}

type Builder struct {
	logger      *slog.Logger
	identities  Identities
	constructor Constructor
	ss58Prefix  uint16

	tx       *tree.Transaction
	cursor   int
	mode     Mode
	buffer   []rune
	selector optional.Option[*Selector]
	lastTip  optional.Option[Tip]
}

func New(logger *slog.Logger, identities Identities, constructor Constructor, ss58Prefix uint16) (*Builder, error) {
	tx, err := constructor.NewTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to construct transaction: %w", err)
	}

	return &Builder{
		logger:      logger.With("sub-service", "builder"),
		identities:  identities,
		constructor: constructor,
		ss58Prefix:  ss58Prefix,
		tx:          tx,
		selector:    optional.None[*Selector](),
		lastTip:     optional.None[Tip](),
	}, nil
}

func (b *Builder) Transaction() *tree.Transaction {
	return b.tx
}

func (b *Builder) Cursor() int {
	return b.cursor
}

func (b *Builder) Mode() Mode {
	return b.mode
}

func (b *Builder) SS58Prefix() uint16 {
	return b.ss58Prefix
}

func (b *Builder) SetSS58Prefix(prefix uint16) {
	b.ss58Prefix = prefix
}

func (b *Builder) Cards() []tree.Card {
	return tree.Cards(b.tx, b.ss58Prefix)
}

// violation reports a cursor that resolves to no slot. It never happens
// while the cursor is clamped after every structural change.
func (b *Builder) violation(op string, err error) {
	b.logger.Error("cursor resolves to no slot", "op", op, "cursor", b.cursor, "total", b.tx.Count(), "err", err)
}

func (b *Builder) clampCursor() {
	b.cursor = utils.Clamp(b.cursor, 0, b.tx.Count()-1)
}

// MoveCursor moves the cursor in browse mode and the selection in edit
// mode. Neither wraps.
func (b *Builder) MoveCursor(dir int) {
	if b.mode == Edit {
		if b.selector.IsNone() {
			return
		}
		s := b.selector.Unwrap()
		for ; dir > 0; dir-- {
			s.Inc()
		}
		for ; dir < 0; dir++ {
			s.Dec()
		}
		return
	}
	b.cursor = utils.Clamp(b.cursor+dir, 0, b.tx.Count()-1)
}

// Cycle applies an immediate structural change to the slot at the cursor:
// it moves a variant candidate, toggles an era or grows and shrinks a
// sequence by one element.
func (b *Builder) Cycle(dir int) {
	if b.mode != Browse || dir == 0 {
		return
	}
	n, err := b.tx.Dive(b.cursor)
	if err != nil {
		b.violation("cycle", err)
		return
	}

	switch c := n.Content.(type) {
	case *tree.Variant:
		c.Step(dir)
	case *tree.Era:
		c.Toggle()
		b.invalidate()
		b.syncWindow()
	case *tree.Sequence:
		size := len(c.Elements) + 1
		if dir < 0 {
			size = len(c.Elements) - 1
		}
		if size < 0 || size > maxSequence {
			return
		}
		if err := b.constructor.Resize(c, size); err != nil {
			b.logger.Warn("failed to resize sequence", "err", err)
			return
		}
		b.invalidate()
		b.clampCursor()
	}
}

// ToggleEdit enters edit mode, or commits the buffer and selection to the
// slot at the cursor and returns to browse mode.
func (b *Builder) ToggleEdit() {
	if b.mode == Browse {
		b.enterEdit()
		return
	}

	n, err := b.tx.Dive(b.cursor)
	if err != nil {
		b.violation("commit", err)
	} else {
		b.commit(n)
	}

	b.buffer = b.buffer[:0]
	b.selector = optional.None[*Selector]()
	b.mode = Browse
	b.clampCursor()
}

func (b *Builder) enterEdit() {
	b.mode = Edit
	b.buffer = b.buffer[:0]
	b.selector = optional.None[*Selector]()

	s, err := b.tx.Peek(b.cursor)
	if err != nil {
		b.violation("edit", err)
		return
	}
	switch c := s.Node.Content.(type) {
	case *tree.Account:
		if names := b.identities.Names(); len(names) > 0 {
			b.selector = optional.Some(NewSelector(names, b.identityIndex(c.Value)))
		}
	case *tree.Variant:
		b.selector = optional.Some(NewSelector(c.Names(), c.Candidate))
	}
}

// identityIndex finds the identity behind account, the first one when
// unset or unknown.
func (b *Builder) identityIndex(account optional.Option[[32]byte]) int {
	if account.IsNone() {
		return 0
	}
	for i := range b.identities.Names() {
		if acc, err := b.identities.Resolve(i); err == nil && acc == account.Unwrap() {
			return i
		}
	}
	return 0
}

func (b *Builder) PushChar(r rune) {
	if b.mode == Edit {
		b.buffer = append(b.buffer, r)
	}
}

func (b *Builder) PopChar() {
	if b.mode == Edit && len(b.buffer) > 0 {
		b.buffer = b.buffer[:len(b.buffer)-1]
	}
}

func (b *Builder) Paste(text string) {
	if b.mode == Edit {
		b.buffer = append(b.buffer, []rune(text)...)
	}
}

func (b *Builder) Buffer() string {
	return string(b.buffer)
}

// Details describes the slot at the cursor.
func (b *Builder) Details() Detail {
	d := Detail{
		Buffer:    optional.None[string](),
		Selection: optional.None[*Selector](),
	}
	s, err := b.tx.Peek(b.cursor)
	if err != nil {
		b.violation("details", err)
		return d
	}

	d.Description = tree.Describe(s.Node)
	d.Content = tree.Detail(s.Node, b.ss58Prefix)
	if b.mode == Edit {
		d.Buffer = optional.Some(string(b.buffer))
	}
	if b.selector.IsSome() {
		d.Selection = optional.Some(b.selector.Unwrap().clone())
	}
	return d
}

// Author is the first account chosen in the author tree.
func (b *Builder) Author() optional.Option[[32]byte] {
	res := optional.None[[32]byte]()
	tree.Slots(b.tx.Author, func(s tree.Slot) bool {
		if acc, ok := s.Node.Content.(*tree.Account); ok && acc.Value.IsSome() {
			res = acc.Value
			return false
		}
		return true
	})
	return res
}

func (b *Builder) signatures() []*tree.Signature {
	var res []*tree.Signature
	tree.Slots(b.tx.Signature, func(s tree.Slot) bool {
		if sig, ok := s.Node.Content.(*tree.Signature); ok {
			res = append(res, sig)
		}
		return true
	})
	return res
}

// Signed reports whether a signature is in place.
func (b *Builder) Signed() bool {
	for _, sig := range b.signatures() {
		if sig.Value.IsSome() {
			return true
		}
	}
	return false
}

// invalidate drops a signature made over content that just changed.
func (b *Builder) invalidate() {
	for _, sig := range b.signatures() {
		if sig.Value.IsSome() {
			b.logger.Info("transaction changed, signature dropped")
			sig.Value = optional.None[[]byte]()
		}
	}
}

// SignablePayload encodes the call and the extensions. It is computed on
// every call since any edit changes it.
func (b *Builder) SignablePayload() ([]byte, error) {
	return schema.Signable(b.tx)
}

// FinalizedPayload is absent until the transaction is signed.
func (b *Builder) FinalizedPayload() optional.Option[[]byte] {
	if !b.Signed() {
		return optional.None[[]byte]()
	}
	out, err := schema.Finalized(b.tx)
	if err != nil {
		b.logger.Warn("transaction is not complete", "err", err)
		return optional.None[[]byte]()
	}
	return optional.Some(out)
}
