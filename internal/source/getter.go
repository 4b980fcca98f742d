// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-getter/v2"
)

// ErrFetch is returned when a remote input cannot be downloaded.
var ErrFetch = errors.New("failed to fetch remote input")

const (
	goGetterPathSeparator = "//"
	goGetterRefSeparator  = "?"
	minimumGetterParts    = 3 // scheme, host and path, then the subdirectory
)

// fetch downloads src with go-getter into a temporary directory and returns its content.
// Sources with a go-getter subdirectory (repo//path/file.csv) are fetched as a directory
// and the named file is read from it.
func fetch(ctx context.Context, src string) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "each-getter-*")
	if err != nil {
		return nil, errors.Join(ErrFetch, err)
	}

	defer os.RemoveAll(tmpDir) //nolint:errcheck

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Join(ErrFetch, err)
	}

	client := getter.Client{
		DisableSymlinks: true,
	}

	req := &getter.Request{
		Src:     src,
		Dst:     filepath.Join(tmpDir, "input"),
		Pwd:     wd,
		GetMode: getter.ModeFile,
	}

	var fileName string

	if dirURL, name := splitFileNameFromGetterURL(src); dirURL != "" {
		req.Src = dirURL
		req.Dst = filepath.Join(tmpDir, "g")
		req.GetMode = getter.ModeDir
		fileName = name
	}

	res, err := client.Get(ctx, req)
	if err != nil {
		return nil, errors.Join(ErrFetch, err)
	}

	p := res.Dst
	if fileName != "" {
		p = filepath.Join(res.Dst, fileName)
	}

	b, err := os.ReadFile(p)
	if err != nil {
		return nil, errors.Join(ErrFetch, err)
	}

	return b, nil
}

// splitFileNameFromGetterURL splits a go-getter URL with a subdirectory into the URL of
// the directory and the file name. Any ref query is kept on the directory URL.
// Both results are empty when the URL has no subdirectory.
func splitFileNameFromGetterURL(url string) (string, string) {
	var ref string

	parts := strings.Split(url, goGetterPathSeparator)
	if len(parts) < minimumGetterParts {
		return "", ""
	}

	last := parts[len(parts)-1]
	if before, after, ok := strings.Cut(last, goGetterRefSeparator); ok {
		ref = after
		last = before
	}

	if last == "" || strings.HasSuffix(last, "/") {
		return "", ""
	}

	fileName := filepath.Base(last)
	dir := filepath.Dir(last)

	if dir == "." {
		parts = parts[:len(parts)-1]
	} else {
		parts[len(parts)-1] = dir
	}

	newURL := strings.Join(parts, goGetterPathSeparator)
	if ref != "" {
		newURL = fmt.Sprintf("%s%s%s", newURL, goGetterRefSeparator, ref)
	}

	return newURL, fileName
}
