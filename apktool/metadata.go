package apktool

import (
	"fmt"
	"io"

	xslice "github.com/frantjc/x/slice"
	"gopkg.in/yaml.v3"
)

// MetadataName is the name of the file that `apktool decode`
// writes its Metadata to in the output directory.
const MetadataName = "apktool.yml"

type UsesFramework struct {
	IDs []int `yaml:"ids"`
	Tag any   `yaml:"tag"`
}

type SDKInfo struct {
	MinSDKVersion    int `yaml:"minSdkVersion"`
	TargetSDKVersion int `yaml:"targetSdkVersion"`
}

type PackageInfo struct {
	ForcedPackageID       int `yaml:"forcedPackageId"`
	RenameManifestPackage any `yaml:"renameManifestPackage"`
}

type VersionInfo struct {
	VersionCode int    `yaml:"versionCode"`
	VersionName string `yaml:"versionName"`
}

// Metadata is the contents of apktool.yml. `apktool build` reads it
// back, so DoNotCompress decides which entries of the rebuilt APK are
// stored rather than deflated.
type Metadata struct {
	Version                string         `yaml:"version,omitempty"`
	APKFileName            string         `yaml:"apkFileName,omitempty"`
	IsFrameworkAPK         bool           `yaml:"isFrameworkApk,omitempty"`
	UsesFramework          *UsesFramework `yaml:"usesFramework,omitempty"`
	SDKInfo                *SDKInfo       `yaml:"sdkInfo,omitempty"`
	PackageInfo            *PackageInfo   `yaml:"packageInfo,omitempty"`
	VersionInfo            *VersionInfo   `yaml:"versionInfo,omitempty"`
	ResourcesAreCompressed bool           `yaml:"resourcesAreCompressed,omitempty"`
	SharedLibrary          bool           `yaml:"sharedLibrary,omitempty"`
	SparseResources        bool           `yaml:"sparseResources,omitempty"`
	UnknownFiles           map[string]int `yaml:"unknownFiles,omitempty"`
	DoNotCompress          []string       `yaml:"doNotCompress,omitempty"`
}

// DecodeMetadata reads apktool.yml from r.
func DecodeMetadata(r io.Reader) (*Metadata, error) {
	metadata := &Metadata{}
	if err := yaml.NewDecoder(r).Decode(metadata); err != nil {
		return nil, fmt.Errorf("decode %s: %w", MetadataName, err)
	}

	return metadata, nil
}

// VersionName returns the version name, falling back to the version code.
func (m *Metadata) VersionName() string {
	if m.VersionInfo == nil {
		return ""
	}

	code := ""
	if m.VersionInfo.VersionCode > 0 {
		code = fmt.Sprint(m.VersionInfo.VersionCode)
	}

	return xslice.Coalesce(m.VersionInfo.VersionName, code)
}
