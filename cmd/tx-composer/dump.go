package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"tx-composer/modules/builder"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

type palette struct {
	indent *color.Color
	text   *color.Color
	label  *color.Color
	fail   *color.Color
}

func newPalette(w io.Writer) palette {
	p := palette{
		indent: color.New(color.FgHiBlack),
		text:   color.New(color.FgCyan),
		label:  color.New(color.FgYellow, color.Bold),
		fail:   color.New(color.FgRed),
	}

	enable := false
	if f, ok := w.(*os.File); ok {
		enable = isatty.IsTerminal(f.Fd())
	}
	for _, c := range []*color.Color{p.indent, p.text, p.label, p.fail} {
		if enable {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// dump prints the card projection and the signing payload of a fresh
// transaction.
func dump(w io.Writer, b *builder.Builder) error {
	p := newPalette(w)

	for _, c := range b.Cards() {
		if _, err := fmt.Fprintln(w, p.indent.Sprint(strings.Repeat(" | ", c.Indent))+p.text.Sprint(c.Text)); err != nil {
			return err
		}
	}

	payload, err := b.SignablePayload()
	if err != nil {
		_, err = fmt.Fprintln(w, p.label.Sprint("signable: ")+p.fail.Sprint(err))
		return err
	}
	_, err = fmt.Fprintln(w, p.label.Sprint("signable: ")+"0x"+hex.EncodeToString(payload))
	return err
}
