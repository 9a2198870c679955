// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package preprocess

// commentBlanker turns source lines into "code views" where every comment
// byte is replaced by a space. Views keep the byte length of the input so
// columns found in a view index the original line directly.
type commentBlanker struct {
	depth int // open /* */ nesting carried over from previous lines
}

func (c *commentBlanker) next(line string) string {
	buf := []byte(line)
	for i := 0; i < len(buf); i++ {
		switch {
		case c.depth > 0:
			if buf[i] == '*' && i+1 < len(buf) && buf[i+1] == '/' {
				c.depth--
				buf[i], buf[i+1] = ' ', ' '
				i++
				continue
			}
			if buf[i] == '/' && i+1 < len(buf) && buf[i+1] == '*' {
				c.depth++
				buf[i], buf[i+1] = ' ', ' '
				i++
				continue
			}
			buf[i] = ' '
		case buf[i] == '/' && i+1 < len(buf) && buf[i+1] == '/':
			for j := i; j < len(buf); j++ {
				buf[j] = ' '
			}
			return string(buf)
		case buf[i] == '/' && i+1 < len(buf) && buf[i+1] == '*':
			c.depth++
			buf[i], buf[i+1] = ' ', ' '
			i++
		}
	}
	return string(buf)
}
