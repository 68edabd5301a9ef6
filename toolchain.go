package rip

import "context"

// Decoder decompiles the APK at apk into dir.
type Decoder interface {
	DecodeAPK(ctx context.Context, apk, dir string) error
}

// Builder recompiles the decoded sources at dir into the APK at apk.
type Builder interface {
	BuildAPK(ctx context.Context, dir, apk string) error
}

// Merger merges the split APK bundle at split into a single APK at apk.
type Merger interface {
	MergeAPK(ctx context.Context, split, apk string) error
}

// Toolchain can both decode and rebuild APKs.
type Toolchain interface {
	Decoder
	Builder
}
