package android

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"github.com/frantjc/rip"
	"github.com/frantjc/rip/apktool"
	"github.com/frantjc/rip/keytool"
)

// APKDecoder lazily decodes the APK at Name and reads what it needs
// out of the decoded sources.
type APKDecoder struct {
	Name string

	decoder  rip.Decoder
	keytool  keytool.Command
	dir      string
	tmp      bool
	decoded  bool
	manifest *Manifest
	metadata *apktool.Metadata
}

type APKDecoderOpt func(*APKDecoder)

// WithDecoder sets the tool used to decode the APK. It defaults to
// `apktool` on the PATH.
func WithDecoder(decoder rip.Decoder) APKDecoderOpt {
	return func(a *APKDecoder) {
		a.decoder = decoder
	}
}

func WithKeytool(keytool keytool.Command) APKDecoderOpt {
	return func(a *APKDecoder) {
		a.keytool = keytool
	}
}

// WithDir decodes into dir instead of a temporary directory.
// Close leaves dir in place.
func WithDir(dir string) APKDecoderOpt {
	return func(a *APKDecoder) {
		a.dir = dir
	}
}

func NewAPKDecoder(name string, opts ...APKDecoderOpt) *APKDecoder {
	ad := &APKDecoder{Name: name, decoder: apktool.Command("apktool"), keytool: "keytool"}

	for _, opt := range opts {
		opt(ad)
	}

	return ad
}

// Dir returns the directory the APK is decoded into, decoding it if need be.
func (a *APKDecoder) Dir(ctx context.Context) (string, error) {
	if err := a.decode(ctx); err != nil {
		return "", err
	}

	return a.dir, nil
}

func (a *APKDecoder) decode(ctx context.Context) error {
	if a.decoded {
		return nil
	} else if a.dir == "" {
		var err error
		a.dir, err = os.MkdirTemp("", "rip-decode-*")
		if err != nil {
			return err
		}
		a.tmp = true
	}

	rip.LoggerFrom(ctx).V(1).Info("decoding", "apk", a.Name, "dir", a.dir)

	if err := a.decoder.DecodeAPK(ctx, a.Name, a.dir); err != nil {
		return fmt.Errorf("decode %s: %w", a.Name, err)
	}

	a.decoded = true

	return nil
}

func (a *APKDecoder) Manifest(ctx context.Context) (*Manifest, error) {
	if err := a.decode(ctx); err != nil {
		return nil, err
	}

	if a.manifest != nil {
		return a.manifest, nil
	}

	f, err := os.Open(filepath.Join(a.dir, AndroidManifestName))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	manifest := &Manifest{}
	if err := xml.NewDecoder(f).Decode(manifest); err != nil {
		return nil, fmt.Errorf("decode %s: %w", AndroidManifestName, err)
	}

	a.manifest = manifest
	return a.manifest, nil
}

// Metadata returns the apktool.yml that `apktool decode` writes.
// Other decoders don't write one, so the error wraps fs.ErrNotExist.
func (a *APKDecoder) Metadata(ctx context.Context) (*apktool.Metadata, error) {
	if err := a.decode(ctx); err != nil {
		return nil, err
	}

	if a.metadata != nil {
		return a.metadata, nil
	}

	f, err := os.Open(filepath.Join(a.dir, apktool.MetadataName))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if a.metadata, err = apktool.DecodeMetadata(f); err != nil {
		return nil, err
	}

	return a.metadata, nil
}

// SHA256CertFingerprints doesn't need the APK to be decoded.
func (a *APKDecoder) SHA256CertFingerprints(ctx context.Context) ([]string, error) {
	return a.keytool.SHA256CertFingerprints(ctx, a.Name)
}

// Info summarizes the decoded APK. Version falls back to
// apktool.yml when the manifest has none.
func (a *APKDecoder) Info(ctx context.Context) (*Info, error) {
	manifest, err := a.Manifest(ctx)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Package:     manifest.Package(),
		VersionName: manifest.VersionName(),
		VersionCode: manifest.VersionCode(),
	}

	if info.VersionName == "" {
		if metadata, err := a.Metadata(ctx); err == nil {
			info.VersionName = metadata.VersionName()
		}
	}

	return info, nil
}

// Close removes the decoded sources if they were decoded into a
// temporary directory. The APK itself is left alone.
func (a *APKDecoder) Close() error {
	if a.tmp {
		if err := os.RemoveAll(a.dir); err != nil {
			return err
		}

		a.dir = ""
		a.tmp = false
	}

	a.decoded = false
	a.metadata = nil
	a.manifest = nil

	return nil
}

// Info is what `rip decode` reports about an APK.
type Info struct {
	Package                string   `json:"package,omitempty" yaml:"package,omitempty"`
	VersionName            string   `json:"versionName,omitempty" yaml:"versionName,omitempty"`
	VersionCode            string   `json:"versionCode,omitempty" yaml:"versionCode,omitempty"`
	SHA256CertFingerprints []string `json:"sha256CertFingerprints,omitempty" yaml:"sha256CertFingerprints,omitempty"`
	Dir                    string   `json:"dir,omitempty" yaml:"dir,omitempty"`
}
