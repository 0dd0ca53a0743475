// Copyright (c) 2025 optionfactory
// SPDX-License-Identifier: MIT

// Package routes reads route lists, one prefix per line, for
// the tree bitmap tools.
//
// A line holds a CIDR and an optional value, separated by whitespace:
//
//	# comment
//	10.0.0.0/8        corp
//	2001:db8::/32     doc net
//	192.168.1.1       host route
//
// An address without prefix length is a host route. Files with the
// suffix .gz are gunzipped.
package routes

import (
	"bufio"
	"context"
	"io"
	"net/netip"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/optionfactory/treebitmap"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var log = logrus.WithField("component", "routes")

// ErrSyntax is wrapped by all parse errors, with file and line number.
var ErrSyntax = errors.New("syntax error")

// Route is a prefix with its value.
type Route struct {
	Prefix netip.Prefix
	Value  string
}

// Parse reads the routes from r, name is used in error messages.
//
// Prefixes with host bits set are rejected, the table does not
// silently mask them either.
func Parse(r io.Reader, name string) ([]Route, error) {
	var routes []Route

	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		pfx, err := parsePrefix(fields[0])
		if err != nil {
			return nil, errors.WithMessagef(ErrSyntax, "%s:%d: %v", name, lineNo, err)
		}

		routes = append(routes, Route{
			Prefix: pfx,
			Value:  strings.Join(fields[1:], " "),
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", name)
	}

	log.Debugf("parsed %d routes from %s", len(routes), name)
	return routes, nil
}

func parsePrefix(s string) (netip.Prefix, error) {
	if !strings.Contains(s, "/") {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		return netip.PrefixFrom(addr.WithZone(""), addr.BitLen()), nil
	}

	pfx, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	if pfx != pfx.Masked() {
		return netip.Prefix{}, errors.Errorf("%s: host bits set, want %s", s, pfx.Masked())
	}
	return pfx, nil
}

// Open opens the file for reading, a .gz file is gunzipped.
func Open(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if !strings.HasSuffix(path, ".gz") {
		return file, nil
	}

	rgz, err := gzip.NewReader(file)
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "gunzip %s", path)
	}

	return &gzipFile{Reader: rgz, file: file}, nil
}

// gzipFile closes the decompressor and the underlying file.
type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	err := g.Reader.Close()
	if ferr := g.file.Close(); err == nil {
		err = ferr
	}
	return err
}

// LoadFile opens and parses the route file at path.
func LoadFile(path string) ([]Route, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return Parse(r, path)
}

// LoadFiles parses the route files concurrently and returns all routes
// in the order of the paths. The first error cancels the other loaders.
func LoadFiles(ctx context.Context, paths ...string) ([]Route, error) {
	results := make([][]Route, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			routes, err := LoadFile(path)
			if err != nil {
				return err
			}
			results[i] = routes
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Route
	for _, routes := range results {
		all = append(all, routes...)
	}

	log.WithField("files", len(paths)).Infof("loaded %d routes", len(all))
	return all, nil
}

// Fill inserts the routes into tbl, a later route replaces the value
// of an earlier route with the same prefix. Returns the number of
// replaced values.
func Fill(tbl *treebitmap.Table[string], routes []Route) (replaced int, err error) {
	for _, r := range routes {
		old, ok, err := tbl.InsertPrefix(r.Prefix, r.Value)
		if err != nil {
			return replaced, err
		}
		if ok {
			replaced++
			log.Debugf("%s: replaced %q with %q", r.Prefix, old, r.Value)
		}
	}
	return replaced, nil
}
