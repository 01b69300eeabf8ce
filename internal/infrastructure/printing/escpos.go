package printing

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Alignment of printed text
type Alignment byte

const (
	AlignLeft   Alignment = 0
	AlignCenter Alignment = 1
	AlignRight  Alignment = 2
)

const (
	esc = 0x1B
	gs  = 0x1D
	lf  = 0x0A
)

// Builder accumulates an ESC/POS command stream.
// All text goes through Fold, so printers without a UTF-8 code page print
// "acao" instead of mojibake for "ação".
type Builder struct {
	buf  bytes.Buffer
	cols int
}

// NewBuilder starts a stream for a printer with cols characters per line
func NewBuilder(cols int) *Builder {
	if cols <= 0 {
		cols = 48
	}
	b := &Builder{cols: cols}
	b.buf.Write([]byte{esc, '@'})
	return b
}

// Columns returns the characters per line
func (b *Builder) Columns() int { return b.cols }

func (b *Builder) Align(a Alignment) *Builder {
	b.buf.Write([]byte{esc, 'a', byte(a)})
	return b
}

func (b *Builder) Bold(on bool) *Builder {
	b.buf.Write([]byte{esc, 'E', boolByte(on)})
	return b
}

// Large toggles double width and height
func (b *Builder) Large(on bool) *Builder {
	n := byte(0x00)
	if on {
		n = 0x11
	}
	b.buf.Write([]byte{gs, '!', n})
	return b
}

// Text writes folded text without a line break
func (b *Builder) Text(s string) *Builder {
	b.buf.WriteString(Fold(s))
	return b
}

// Line writes s wrapped to the paper width
func (b *Builder) Line(s string) *Builder {
	for _, l := range Wrap(Fold(s), b.cols) {
		b.buf.WriteString(l)
		b.buf.WriteByte(lf)
	}
	return b
}

// Pair writes left and right on the same line, right aligned to the edge
func (b *Builder) Pair(left, right string) *Builder {
	b.buf.WriteString(PadPair(Fold(left), Fold(right), b.cols))
	b.buf.WriteByte(lf)
	return b
}

// Separator writes a full-width dashed line
func (b *Builder) Separator() *Builder {
	b.buf.WriteString(strings.Repeat("-", b.cols))
	b.buf.WriteByte(lf)
	return b
}

// Feed prints and feeds n lines
func (b *Builder) Feed(n int) *Builder {
	if n < 0 {
		n = 0
	}
	if n > 255 {
		n = 255
	}
	b.buf.Write([]byte{esc, 'd', byte(n)})
	return b
}

// Cut feeds past the cutter and performs a partial cut
func (b *Builder) Cut() *Builder {
	b.buf.Write([]byte{gs, 'V', 66, 0})
	return b
}

// QRCode prints a model 2 QR code using the GS ( k function set
func (b *Builder) QRCode(data string, size byte) *Builder {
	if data == "" {
		return b
	}
	if size < 1 || size > 16 {
		size = 5
	}
	// model 2
	b.buf.Write([]byte{gs, '(', 'k', 4, 0, 49, 65, 50, 0})
	// module size
	b.buf.Write([]byte{gs, '(', 'k', 3, 0, 49, 67, size})
	// error correction level M
	b.buf.Write([]byte{gs, '(', 'k', 3, 0, 49, 69, 49})
	// store data
	n := len(data) + 3
	b.buf.Write([]byte{gs, '(', 'k', byte(n % 256), byte(n / 256), 49, 80, 48})
	b.buf.WriteString(data)
	// print
	b.buf.Write([]byte{gs, '(', 'k', 3, 0, 49, 81, 48})
	return b
}

// Bytes returns the command stream
func (b *Builder) Bytes() []byte {
	return b.buf.Bytes()
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

var foldReplacer = strings.NewReplacer(
	"º", "o", "ª", "a", "°", "o",
	"“", `"`, "”", `"`, "‘", "'", "’", "'",
	"–", "-", "—", "-", "…", "...", "€", "EUR",
)

// Fold removes diacritics and replaces anything outside printable ASCII
// with '?'.
func Fold(s string) string {
	s = foldReplacer.Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return ' '
		case r < 0x20 || r == 0x7F:
			return -1
		case r > 0x7E:
			return '?'
		}
		return r
	}, out)
}

// Wrap breaks s into lines of at most width characters, preferring spaces
func Wrap(s string, width int) []string {
	s = strings.TrimRight(s, " ")
	if s == "" {
		return []string{""}
	}
	var lines []string
	for utf8.RuneCountInString(s) > width {
		r := []rune(s)
		cut := width
		for i := width; i > width/2; i-- {
			if r[i] == ' ' {
				cut = i
				break
			}
		}
		lines = append(lines, strings.TrimRight(string(r[:cut]), " "))
		s = strings.TrimLeft(string(r[cut:]), " ")
	}
	return append(lines, s)
}

// PadPair joins left and right with spaces so the line is exactly width
// characters. Left is truncated when both do not fit.
func PadPair(left, right string, width int) string {
	l, r := []rune(left), []rune(right)
	if len(r) >= width {
		return string(r[:width])
	}
	space := width - len(r)
	if len(l) >= space {
		l = l[:max(space-1, 0)]
	}
	return string(l) + strings.Repeat(" ", width-len(l)-len(r)) + string(r)
}
