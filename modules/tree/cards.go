package tree

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"tx-composer/lib/ss58"
)

type Card struct {
	Text   string
	Indent int
}

// Cards projects the transaction into one display record per slot.
func Cards(tx *Transaction, ss58Prefix uint16) []Card {
	res := make([]Card, 0, tx.Count())
	tx.Walk(func(_ int, s Slot) bool {
		res = append(res, Card{
			Text:   Summary(s.Node, ss58Prefix),
			Indent: s.Depth,
		})
		return true
	})
	return res
}

func hexString(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func address(prefix uint16, account [32]byte) string {
	addr, err := ss58.Encode(prefix, account)
	if err != nil {
		return hexString(account[:])
	}
	return addr
}

// Summary is the one line text of a node.
func Summary(n *Node, ss58Prefix uint16) string {
	text := content(n, ss58Prefix)
	if n.Name != "" {
		return n.Name + ": " + text
	}
	return text
}

func content(n *Node, ss58Prefix uint16) string {
	switch c := n.Content.(type) {
	case *Primitive:
		value := c.Value
		if c.Kind == Str || c.Kind == Char {
			value = fmt.Sprintf("%q", value)
		}
		if c.Specialty != SpecialtyNone {
			return c.Specialty.String() + ": " + value
		}
		return value
	case *FixedBytes:
		return hexString(c.Bytes)
	case *VariableBytes:
		return hexString(c.Bytes)
	case *Sequence:
		return fmt.Sprintf("Sequence of length %d:", len(c.Elements))
	case *Variant:
		name := c.Current().Name
		if c.Candidate != c.Selected {
			return fmt.Sprintf("%s (next: %s)", name, c.Available[c.Candidate].Name)
		}
		return name
	case *Account:
		if c.Value.IsNone() {
			return "AccountId32"
		}
		return "address: " + address(ss58Prefix, c.Value.Unwrap())
	case *Hash:
		label := "H256: " + hexString(c.Value[:])
		if c.Role != HashOther {
			return c.Role.String() + " " + label
		}
		return label
	case *Era:
		if c.Immortal {
			return "Immortal"
		}
		return fmt.Sprintf("Phase: %d Period: %d", c.Phase, c.Period)
	case *Signature:
		if c.Value.IsNone() {
			return ">>>Sign here!<<<"
		}
		return "Signed: " + hexString(c.Value.Unwrap())
	case *Composite:
		return fmt.Sprintf("Composite of %d fields", len(c.Fields))
	case *Tuple:
		return fmt.Sprintf("Tuple of %d elements", len(c.Elements))
	default:
		return ""
	}
}

// Describe joins the documentation of a node.
func Describe(n *Node) string {
	return strings.Join(n.Info, " ~ ")
}

func bytesDetail(b []byte) string {
	text := "not UTF8"
	if utf8.Valid(b) {
		text = string(b)
	}
	return fmt.Sprintf("Value: %s\n\nString: %s\n\nLength: %d", hexString(b), text, len(b))
}

// Detail is the long form of a node's content for the detail panel.
func Detail(n *Node, ss58Prefix uint16) string {
	switch c := n.Content.(type) {
	case *FixedBytes:
		return bytesDetail(c.Bytes) + fmt.Sprintf(" of %d", c.Length)
	case *VariableBytes:
		return bytesDetail(c.Bytes)
	case *Sequence:
		return fmt.Sprintf("Length: %d", len(c.Elements))
	case *Account:
		if c.Value.IsNone() {
			return "No account selected"
		}
		acc := c.Value.Unwrap()
		return fmt.Sprintf("Address: %s\n\nPublic: %s", address(ss58Prefix, acc), hexString(acc[:]))
	case *Variant:
		lines := make([]string, 0, 2)
		cur := c.Current()
		lines = append(lines, cur.Name+": "+strings.Join(cur.Docs, " "))
		if c.Candidate != c.Selected {
			next := c.Available[c.Candidate]
			lines = append(lines, "next "+next.Name+": "+strings.Join(next.Docs, " "))
		}
		return strings.Join(lines, "\n\n")
	case *Era:
		if c.Immortal {
			return "Immortal: valid forever"
		}
		return fmt.Sprintf("Mortal: valid for %d blocks from phase %d", c.Period, c.Phase)
	case *Signature:
		if c.Value.IsNone() {
			return c.Scheme.String() + " signature, not signed yet"
		}
		return c.Scheme.String() + " signature " + hexString(c.Value.Unwrap())
	default:
		return content(n, ss58Prefix)
	}
}
