package vfs

import (
	"fmt"
	"strconv"
)

// Permission is one read/write/delete triplet.
//
// The third bit is the classic execute bit. On a folder it grants listing
// and deleting within; it is what Delete and Move check on the parent.
type Permission uint8

const (
	PermRead   Permission = 4
	PermWrite  Permission = 2
	PermDelete Permission = 1

	PermAll  = PermRead | PermWrite | PermDelete
	PermNone Permission = 0
)

// Has reports whether p grants every bit of q.
func (p Permission) Has(q Permission) bool {
	return p&q == q
}

func (p Permission) String() string {
	b := []byte("---")
	if p.Has(PermRead) {
		b[0] = 'r'
	}
	if p.Has(PermWrite) {
		b[1] = 'w'
	}
	if p.Has(PermDelete) {
		b[2] = 'x'
	}
	return string(b)
}

func (p Permission) action() string {
	switch p {
	case PermRead:
		return "read"
	case PermWrite:
		return "write"
	case PermDelete:
		return "delete"
	default:
		return p.String()
	}
}

// Mode is a 9-bit owner/group/other permission set.
type Mode uint16

const (
	// DefaultFolderMode is rwxr-xr-x.
	DefaultFolderMode Mode = 0o755

	// DefaultFileMode is rw-r--r--.
	DefaultFileMode Mode = 0o644

	// DefaultRootMode is rwxrwxrwx.
	DefaultRootMode Mode = 0o777
)

// NewMode assembles a Mode from three triplets.
func NewMode(owner, group, other Permission) Mode {
	return Mode(owner&PermAll)<<6 | Mode(group&PermAll)<<3 | Mode(other&PermAll)
}

func (m Mode) Owner() Permission { return Permission(m>>6) & PermAll }
func (m Mode) Group() Permission { return Permission(m>>3) & PermAll }
func (m Mode) Other() Permission { return Permission(m) & PermAll }

// String renders the mode as "rwxr-xr-x".
func (m Mode) String() string {
	return m.Owner().String() + m.Group().String() + m.Other().String()
}

// ParseMode parses a symbolic mode ("rwxr-xr-x") or a three-digit octal
// mode ("755").
func ParseMode(s string) (Mode, error) {
	switch len(s) {
	case 3:
		n, err := strconv.ParseUint(s, 8, 16)
		if err != nil {
			return 0, fmt.Errorf("invalid octal mode %q", s)
		}
		return Mode(n), nil
	case 9:
		var m Mode
		for i := 0; i < 9; i++ {
			want := "rwx"[i%3]
			switch s[i] {
			case want:
				m |= 1 << (8 - i)
			case '-':
			default:
				return 0, fmt.Errorf("invalid mode %q: unexpected %q at position %d", s, s[i], i)
			}
		}
		return m, nil
	default:
		return 0, fmt.Errorf("invalid mode %q", s)
	}
}

// MustParseMode is ParseMode for constants; it panics on error.
func MustParseMode(s string) Mode {
	m, err := ParseMode(s)
	if err != nil {
		panic(err)
	}
	return m
}

// MarshalText encodes the mode symbolically.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a symbolic or octal mode.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
