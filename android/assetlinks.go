package android

const (
	RelationHandleAllURLs = "delegate_permission/common.handle_all_urls"
	NamespaceAndroidApp   = "android_app"
)

// AssetLink is one statement of a Digital Asset Links
// /.well-known/assetlinks.json file.
type AssetLink struct {
	Relation []string `json:"relation,omitempty" yaml:"relation,omitempty"`
	Target   Target   `json:"target,omitempty" yaml:"target,omitempty"`
}

type Target struct {
	Namespace              string   `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	PackageName            string   `json:"package_name,omitempty" yaml:"package_name,omitempty"`
	SHA256CertFingerprints []string `json:"sha256_cert_fingerprints,omitempty" yaml:"sha256_cert_fingerprints,omitempty"`
}

// NewAssetLink returns the statement that lets the app pkg, signed
// with one of fingerprints, handle all of a site's URLs.
func NewAssetLink(pkg string, fingerprints ...string) AssetLink {
	return AssetLink{
		Relation: []string{RelationHandleAllURLs},
		Target: Target{
			Namespace:              NamespaceAndroidApp,
			PackageName:            pkg,
			SHA256CertFingerprints: fingerprints,
		},
	}
}
