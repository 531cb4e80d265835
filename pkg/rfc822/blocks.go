package rfc822

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"iter"
	"unicode/utf8"
)

// Blocks splits r into blank-line-delimited blocks of raw bytes. The trailing single '\n'
// of the final line within a block is stripped. A run of multiple consecutive blank lines
// between blocks does not produce empty blocks.
func Blocks(r io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

		var buf bytes.Buffer
		haveContent := false

		flush := func() bool {
			if !haveContent {
				return true
			}
			block := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
			out := make([]byte, len(block))
			copy(out, block)
			buf.Reset()
			haveContent = false
			return yield(out, nil)
		}

		for scanner.Scan() {
			line := scanner.Bytes()
			if len(bytes.TrimSpace(line)) == 0 {
				if !flush() {
					return
				}
				continue
			}
			haveContent = true
			buf.Write(line)
			buf.WriteByte('\n')
		}

		if err := scanner.Err(); err != nil {
			yield(nil, fmt.Errorf("rfc822: %w", err))
			return
		}

		flush()
	}
}

// StringBlocks is Blocks, decoded as UTF-8 strings. Fails with a *BadUTF8Error if a block
// is not valid UTF-8.
func StringBlocks(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for block, err := range Blocks(r) {
			if err != nil {
				yield("", err)
				return
			}
			if !utf8.Valid(block) {
				if !yield("", &BadUTF8Error{Offset: invalidUTF8Offset(block)}) {
					return
				}
				continue
			}
			if !yield(string(block), nil) {
				return
			}
		}
	}
}

func invalidUTF8Offset(b []byte) int {
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(b)
}
