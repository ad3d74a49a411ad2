// Copyright (C) 2026 zappend-go contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package fsref implements a uniform (filesystem, path) handle with a URI
// and storage options, path arithmetic that respects chained (nested
// protocol) URIs, and the basic read/write/delete operations every other
// package in zappend-go builds on.
package fsref

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
)

// WriteMode is the mode a Ref.Write call is opened with.
type WriteMode string

const (
	ModeWriteText   WriteMode = "w"
	ModeWriteBinary WriteMode = "wb"
	ModeAppendText  WriteMode = "a"
	ModeAppendBin   WriteMode = "ab"
)

func (m WriteMode) appends() bool {
	return m == ModeAppendText || m == ModeAppendBin
}

// Options is a normalized set of filesystem storage options (credentials,
// endpoint overrides, etc). Two Options are equal iff they contain the same
// keys mapped to the same values.
type Options map[string]string

func (o Options) normalized() string {
	if len(o) == 0 {
		return ""
	}
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s;", k, o[k])
	}
	return b.String()
}

// Equal reports whether o and other contain the same key/value pairs.
func (o Options) Equal(other Options) bool {
	return o.normalized() == other.normalized()
}

// Ref is a (filesystem, path) handle: a URI plus storage options. The
// filesystem handle backing a Ref is resolved lazily on first use and is
// owned exclusively by that Ref (see Resolve).
type Ref struct {
	URI     string
	Options Options

	once sync.Once
	fs   Filesystem
	err  error
}

// New constructs a Ref for the given URI and storage options.
func New(uri string, opts Options) *Ref {
	return &Ref{URI: uri, Options: opts}
}

// Equal reports whether r and other refer to the same URI with equivalent
// storage options.
func (r *Ref) Equal(other *Ref) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.URI == other.URI && r.Options.Equal(other.Options)
}

func (r *Ref) String() string { return r.URI }

// chainSep is the separator fsspec-style chained ("nested protocol") URIs
// use between the outer and inner filesystem specs, e.g.
// "simplecache::s3://bucket/key".
const chainSep = "::"

// splitChain splits a possibly-chained URI into its first segment and the
// (verbatim, untouched) remainder, if any.
func splitChain(uri string) (first, rest string, chained bool) {
	i := strings.Index(uri, chainSep)
	if i < 0 {
		return uri, "", false
	}
	return uri[:i], uri[i+len(chainSep):], true
}

func joinChain(first, rest string, chained bool) string {
	if !chained {
		return first
	}
	return first + chainSep + rest
}

// schemeAndPath splits a URI segment into its scheme (including the "://"
// if present) and path component.
func schemeAndPath(seg string) (scheme, p string) {
	if i := strings.Index(seg, "://"); i >= 0 {
		return seg[:i+3], seg[i+3:]
	}
	return "", seg
}

// ErrEmptyPath is returned by Parent when the reference's path is empty.
var ErrEmptyPath = errors.New("cannot get parent of empty path")

// Parent returns a Ref for the parent directory of r. For a chained URI,
// only the first segment's path is shortened.
func (r *Ref) Parent() (*Ref, error) {
	first, rest, chained := splitChain(r.URI)
	scheme, p := schemeAndPath(first)
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return nil, ErrEmptyPath
	}
	dir := path.Dir(p)
	if dir == "." {
		dir = ""
	}
	return &Ref{URI: joinChain(scheme+dir, rest, chained), Options: r.Options}, nil
}

// Join returns a Ref for rel joined onto r's path. rel must be a relative
// (non-absolute) path. An empty rel returns r itself. For a chained URI,
// rel is joined onto the first segment's path only.
func (r *Ref) Join(rel string) (*Ref, error) {
	if rel == "" {
		return r, nil
	}
	if path.IsAbs(rel) || strings.HasPrefix(rel, "/") {
		return nil, fmt.Errorf("fsref: cannot join absolute path %q", rel)
	}
	first, rest, chained := splitChain(r.URI)
	scheme, p := schemeAndPath(first)
	joined := path.Join(p, rel)
	return &Ref{URI: joinChain(scheme+joined, rest, chained), Options: r.Options}, nil
}

// Base returns the final path component of r (for a chained URI, of its
// first segment), the same way path.Base would for a plain path.
func (r *Ref) Base() string {
	first, _, _ := splitChain(r.URI)
	_, p := schemeAndPath(first)
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// Resolve lazily resolves and caches the Filesystem backing r.
func (r *Ref) Resolve() (Filesystem, string, error) {
	r.once.Do(func() {
		r.fs, r.err = Open(r.URI, r.Options)
	})
	if r.err != nil {
		return nil, "", r.err
	}
	_, p := schemeAndPath(r.URI)
	if i := strings.Index(r.URI, chainSep); i >= 0 {
		_, p = schemeAndPath(r.URI[:i])
	}
	return r.fs, p, nil
}

// Exists reports whether the path referenced by r exists.
func (r *Ref) Exists() (bool, error) {
	fs, p, err := r.Resolve()
	if err != nil {
		return false, err
	}
	return fs.Exists(p)
}

// Mkdir creates the directory at r's path, including parents.
func (r *Ref) Mkdir() error {
	fs, p, err := r.Resolve()
	if err != nil {
		return err
	}
	return fs.Mkdir(p)
}

// ReadBytes reads the full contents of the file at r's path.
func (r *Ref) ReadBytes() ([]byte, error) {
	fs, p, err := r.Resolve()
	if err != nil {
		return nil, err
	}
	return fs.ReadBytes(p)
}

// ReadString reads the full contents of the file at r's path as a string.
func (r *Ref) ReadString() (string, error) {
	b, err := r.ReadBytes()
	return string(b), err
}

// Write writes data to the file at r's path. mode defaults to binary if
// data is []byte-sourced (always true here since Write always takes
// bytes); callers that want text semantics pass ModeWriteText explicitly.
// a/ab modes append instead of truncating.
func (r *Ref) Write(data []byte, mode WriteMode) error {
	if mode == "" {
		mode = ModeWriteBinary
	}
	fs, p, err := r.Resolve()
	if err != nil {
		return err
	}
	return fs.WriteBytes(p, data, mode.appends())
}

// RenameTo renames the file or directory at r's path to dst's path. Both
// refs must resolve to the same backing Filesystem.
func (r *Ref) RenameTo(dst *Ref) error {
	fs, p, err := r.Resolve()
	if err != nil {
		return err
	}
	_, np, err := dst.Resolve()
	if err != nil {
		return err
	}
	return fs.Rename(p, np)
}

// List returns the immediate child names of the directory at r's path.
func (r *Ref) List() ([]string, error) {
	fs, p, err := r.Resolve()
	if err != nil {
		return nil, err
	}
	return fs.List(p)
}

// Delete removes the file or directory at r's path. It fails if the path is
// a non-empty directory unless recursive is true.
func (r *Ref) Delete(recursive bool) error {
	fs, p, err := r.Resolve()
	if err != nil {
		return err
	}
	return fs.Delete(p, recursive)
}
