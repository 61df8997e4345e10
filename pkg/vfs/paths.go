package vfs

import (
	"path"
	"strings"
)

// RootPath is the implicit root folder. It always exists and cannot be
// deleted, moved or copied.
const RootPath = "/"

// CleanPath validates and normalizes an absolute, "/"-delimited path.
func CleanPath(p string) (string, error) {
	if p == "" || !strings.HasPrefix(p, "/") {
		return "", invalidOperation(p, "path must be absolute")
	}
	if strings.ContainsRune(p, 0) {
		return "", invalidOperation(p, "path contains NUL")
	}
	return path.Clean(p), nil
}

// JoinPath appends name to a parent folder path.
func JoinPath(parent, name string) string {
	if parent == RootPath {
		return RootPath + name
	}
	return parent + "/" + name
}

// SplitPath returns the parent folder and the base name of a clean path.
func SplitPath(p string) (parent, name string) {
	return path.Dir(p), path.Base(p)
}

// ExtensionOf returns the lowercased extension of a name without the dot.
// Dotfiles such as ".profile" have no extension.
func ExtensionOf(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// IsWithin reports whether p is root or lies below it.
func IsWithin(p, root string) bool {
	if root == RootPath {
		return true
	}
	return p == root || strings.HasPrefix(p, root+"/")
}

// rebase substitutes the oldRoot prefix of p with newRoot.
func rebase(p, oldRoot, newRoot string) string {
	return newRoot + strings.TrimPrefix(p, oldRoot)
}

// ancestors returns the parent of p and every ancestor up to the root,
// nearest first.
func ancestors(p string) []string {
	var out []string
	for p != RootPath {
		p = path.Dir(p)
		out = append(out, p)
	}
	return out
}

func validateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return invalidOperation(name, "invalid name")
	case strings.ContainsAny(name, "/\x00"):
		return invalidOperation(name, "name must not contain '/' or NUL")
	}
	return nil
}
