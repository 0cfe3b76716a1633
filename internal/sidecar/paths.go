// Package sidecar reads and rewrites the files stitcher keeps next to
// source code: .stitcher.yaml documents, legacy signature JSON and the
// per-package stitcher.lock.
package sidecar

import (
	"path"
	"strings"
)

const (
	DocSuffix     = ".stitcher.yaml"
	SignatureDir  = ".stitcher/signatures"
	LockFileName  = "stitcher.lock"
	LockVersion   = "1.0"
	jsonIndent    = "  "
	yamlIndentLen = 2
)

// DocPath is the document sidecar of a source file: pkg/core.py ->
// pkg/core.stitcher.yaml.
func DocPath(src string) string {
	return strings.TrimSuffix(src, path.Ext(src)) + DocSuffix
}

// SignaturePath is the legacy signature sidecar of a source file:
// pkg/core.py -> .stitcher/signatures/pkg/core.json.
func SignaturePath(src string) string {
	return path.Join(SignatureDir, strings.TrimSuffix(src, path.Ext(src))+".json")
}

func LockPath(packageRoot string) string {
	return path.Join(packageRoot, LockFileName)
}

type Kind int

const (
	KindUnknown Kind = iota
	KindDoc
	KindSignature
	KindLock
)

func KindOf(p string) Kind {
	switch {
	case path.Base(p) == LockFileName:
		return KindLock
	case strings.HasSuffix(p, DocSuffix):
		return KindDoc
	case strings.HasPrefix(p, SignatureDir+"/") && strings.HasSuffix(p, ".json"):
		return KindSignature
	}
	return KindUnknown
}
